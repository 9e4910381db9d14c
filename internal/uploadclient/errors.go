package uploadclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoServerURL        = errors.New("uploadclient: server url missing")
	ErrPlanSpent          = errors.New("uploadclient: plan already executed")
	ErrPlanExpired        = errors.New("uploadclient: plan expired")
	ErrUploadRejected     = errors.New("uploadclient: upload rejected")
	ErrPayloadTooLarge    = errors.New("uploadclient: payload too large")
	ErrStorageUnavailable = errors.New("uploadclient: storage unavailable")
)

const (
	codePayloadTooLarge    = "E_PAYLOAD_TOO_LARGE"
	codeStorageUnavailable = "E_STORAGE_UNAVAILABLE"
)

// APIError is the error body the server answers with.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// classify turns a non-2xx answer into one of the package sentinels.
func classify(status int, apiErr *APIError, operation string) error {
	sentinel := ErrUploadRejected
	switch {
	case status == http.StatusRequestEntityTooLarge, apiErr != nil && apiErr.Code == codePayloadTooLarge:
		sentinel = ErrPayloadTooLarge
	case apiErr != nil && apiErr.Code == codeStorageUnavailable:
		sentinel = ErrStorageUnavailable
	}

	if apiErr != nil && apiErr.Code != "" {
		return fmt.Errorf("%w: %s: %w", sentinel, operation, apiErr)
	}
	return fmt.Errorf("%w: %s: status %d", sentinel, operation, status)
}
