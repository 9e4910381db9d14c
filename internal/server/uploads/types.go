package uploads

import (
	"errors"
	"time"
)

var (
	ErrNameRequired       = errors.New("name is required")
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Kind tags which variant of a Plan is populated.
type Kind string

const (
	KindDirect    Kind = "direct"
	KindPresigned Kind = "presigned"
)

// UploadRequest is the client-declared metadata of a file about to be
// uploaded. Nothing in it is trusted.
type UploadRequest struct {
	Name        string `json:"name"`
	Size        uint64 `json:"size"`
	ContentType string `json:"contentType"`
}

// Plan tells the caller how to perform one upload. Exactly one of Direct or
// Presigned is set, matching Kind.
type Plan struct {
	Kind      Kind
	Direct    *DirectUpload
	Presigned *PresignedUpload
}

// DirectUpload asks the caller to POST the bytes as multipart to Endpoint.
type DirectUpload struct {
	Endpoint string
}

// PresignedUpload asks the caller to PUT the bytes to WriteURL before
// ExpiresAt. ObjectPath is the public reference once the PUT succeeds.
type PresignedUpload struct {
	WriteURL   string
	ExpiresAt  time.Time
	ObjectPath string
}

// PlanResponse is the wire form of a Plan.
type PlanResponse struct {
	UploadURL       string     `json:"uploadURL,omitempty"`
	ObjectPath      string     `json:"objectPath,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	UseDirectUpload bool       `json:"useDirectUpload"`
	DirectUploadURL string     `json:"directUploadUrl,omitempty"`
}

func (p *Plan) Response() *PlanResponse {
	switch p.Kind {
	case KindPresigned:
		exp := p.Presigned.ExpiresAt.UTC()
		return &PlanResponse{
			UploadURL:  p.Presigned.WriteURL,
			ObjectPath: p.Presigned.ObjectPath,
			ExpiresAt:  &exp,
		}
	default:
		return &PlanResponse{
			UseDirectUpload: true,
			DirectUploadURL: p.Direct.Endpoint,
		}
	}
}

// DirectUploadResponse is returned by the direct multipart endpoint.
type DirectUploadResponse struct {
	ObjectPath string `json:"objectPath"`
	FileName   string `json:"fileName"`
	URL        string `json:"url"`
}
