package blob

import (
	"errors"
	"io"
	"time"
)

var (
	ErrInvalidKey        = errors.New("invalid key")
	ErrInvalidObjectPath = errors.New("invalid object path")
	ErrObjectNotFound    = errors.New("object not found")
)

// WriteURL is a presigned PUT target together with the public path the
// object will be reachable at once the PUT succeeds.
type WriteURL struct {
	URL        string
	Key        string
	ObjectPath string
	ExpiresAt  time.Time
}

type Object struct {
	Body         io.ReadCloser
	ContentType  string
	Size         int64
	ETag         string
	LastModified time.Time
}
