package uploads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"path", Config{DirectEndpoint: "/api/uploads/direct"}, false},
		{"absolute url", Config{DirectEndpoint: "https://uploads.loja.example.com/api/uploads/direct"}, false},
		{"relative path", Config{DirectEndpoint: "api/uploads/direct"}, true},
		{"scheme relative", Config{DirectEndpoint: "//evil.example.com/upload"}, true},
		{"query", Config{DirectEndpoint: "/api/uploads/direct?x=1"}, true},
		{"ftp", Config{DirectEndpoint: "ftp://files.example.com/up"}, true},
		{"negative size", Config{MaxSize: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
