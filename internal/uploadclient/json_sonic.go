//go:build sonic

package uploadclient

import "github.com/bytedance/sonic"

// for imroc/req
var (
	jsonMarshal   = sonic.Marshal
	jsonUnmarshal = sonic.Unmarshal
)
