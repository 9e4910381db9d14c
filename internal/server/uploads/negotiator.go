package uploads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/revendaauto/backoffice/internal/server/blob"
	"github.com/revendaauto/backoffice/internal/utils"
)

// URLMinter mints presigned write URLs on the remote object store.
type URLMinter interface {
	MintWriteURL(ctx context.Context, contentType string, originalName string) (*blob.WriteURL, error)
}

// LocalTarget is the local store as seen by the negotiator.
type LocalTarget interface {
	Available(ctx context.Context) error
}

// Observer receives one call per negotiation.
type Observer interface {
	ObserveNegotiation(kind Kind, outcome string)
}

// Negotiator decides how a client should upload a file. The mode is fixed
// when the negotiator is built and never changes afterwards.
type Negotiator struct {
	mode           Kind
	maxSize        uint64
	directEndpoint string
	local          LocalTarget
	remote         URLMinter
	observer       Observer
}

// NewNegotiator builds a negotiator. A nil remote means the deployment has
// no object store and every plan is a direct upload.
func NewNegotiator(cfg *Config, local LocalTarget, remote URLMinter) *Negotiator {
	n := &Negotiator{
		mode:           KindDirect,
		maxSize:        DefaultMaxSize,
		directEndpoint: DefaultDirectEndpoint,
		local:          local,
		remote:         remote,
	}
	if remote != nil {
		n.mode = KindPresigned
	}
	if cfg != nil {
		if cfg.MaxSize > 0 {
			n.maxSize = uint64(cfg.MaxSize)
		}
		if cfg.DirectEndpoint != "" {
			n.directEndpoint = cfg.DirectEndpoint
		}
	}
	return n
}

// WithObserver attaches a negotiation observer.
func (n *Negotiator) WithObserver(o Observer) *Negotiator {
	n.observer = o
	return n
}

func (n *Negotiator) Mode() Kind {
	return n.mode
}

func (n *Negotiator) MaxSize() uint64 {
	return n.maxSize
}

// Negotiate returns the plan for one upload attempt.
func (n *Negotiator) Negotiate(ctx context.Context, req UploadRequest) (plan *Plan, err error) {
	defer func() {
		n.observe(err)
	}()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.Size > n.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds the %s limit", ErrPayloadTooLarge, humanize.IBytes(req.Size), humanize.IBytes(n.maxSize))
	}

	if n.mode == KindPresigned {
		return n.presigned(ctx, name, req.ContentType)
	}
	return n.direct(ctx)
}

func (n *Negotiator) presigned(ctx context.Context, name, contentType string) (*Plan, error) {
	if contentType == "" {
		contentType = utils.ContentTypeByExt(name)
	}

	w, err := n.remote.MintWriteURL(ctx, contentType, name)
	if err != nil {
		slog.Error("uploads mint write url", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return &Plan{
		Kind: KindPresigned,
		Presigned: &PresignedUpload{
			WriteURL:   w.URL,
			ExpiresAt:  w.ExpiresAt,
			ObjectPath: w.ObjectPath,
		},
	}, nil
}

func (n *Negotiator) direct(ctx context.Context) (*Plan, error) {
	if n.local == nil {
		return nil, ErrStorageUnavailable
	}
	if err := n.local.Available(ctx); err != nil {
		slog.Error("uploads local store", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return &Plan{
		Kind:   KindDirect,
		Direct: &DirectUpload{Endpoint: n.directEndpoint},
	}, nil
}

func (n *Negotiator) observe(err error) {
	if n.observer == nil {
		return
	}
	n.observer.ObserveNegotiation(n.mode, Outcome(err))
}

// Outcome maps a negotiation error to a short label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNameRequired):
		return "invalid"
	case errors.Is(err, ErrPayloadTooLarge):
		return "too_large"
	case errors.Is(err, ErrStorageUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
