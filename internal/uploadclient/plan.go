package uploadclient

import (
	"sync/atomic"
	"time"
)

type Kind string

const (
	KindDirect    Kind = "direct"
	KindPresigned Kind = "presigned"
)

// Metadata describes the payload handed to Upload. Only the name and
// content type travel during negotiation, never the bytes.
type Metadata struct {
	Name        string
	ContentType string
}

// Plan is the server's answer for one upload. It can be executed once.
type Plan struct {
	Kind Kind

	// direct
	DirectUploadURL string

	// presigned
	UploadURL  string
	ObjectPath string
	ExpiresAt  time.Time

	contentType string
	spent       atomic.Bool
}

// Spent reports whether the plan was already executed.
func (p *Plan) Spent() bool {
	return p.spent.Load()
}

func (p *Plan) claim() bool {
	return p.spent.CompareAndSwap(false, true)
}

type negotiateRequest struct {
	Name        string `json:"name"`
	Size        uint64 `json:"size"`
	ContentType string `json:"contentType"`
}

type negotiateResponse struct {
	UploadURL       string     `json:"uploadURL"`
	ObjectPath      string     `json:"objectPath"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	UseDirectUpload bool       `json:"useDirectUpload"`
	DirectUploadURL string     `json:"directUploadUrl"`
}

type directResponse struct {
	ObjectPath string `json:"objectPath"`
	FileName   string `json:"fileName"`
	URL        string `json:"url"`
}
