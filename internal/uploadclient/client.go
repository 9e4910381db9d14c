package uploadclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/imroc/req/v3"
	"github.com/revendaauto/backoffice/internal/utils"
	"github.com/revendaauto/backoffice/internal/version"
)

const (
	requestURLPath = "/api/uploads/request-url"
	defaultTimeout = 2 * time.Minute
)

var userAgent = fmt.Sprintf("%s/%s (%s; %s/%s)", strings.ReplaceAll(version.AppName, " ", ""), version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// Client uploads files to the back-office server. It never retries: every
// failure is reported to the caller as is.
type Client struct {
	api        *req.Client
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

// WithAccessToken authenticates API calls as a staff member. Presigned
// PUTs never carry it.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.api.SetCommonBearerAuthToken(token)
	}
}

// WithHTTPClient replaces the client used for presigned PUTs.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(serverURL string, opts ...Option) (*Client, error) {
	if serverURL == "" {
		return nil, ErrNoServerURL
	}
	if !utils.IsValidURL(serverURL) {
		return nil, fmt.Errorf("uploadclient: invalid server url %q", serverURL)
	}

	c := &Client{
		api: req.C().
			SetBaseURL(strings.TrimRight(serverURL, "/")).
			SetUserAgent(userAgent).
			SetTimeout(defaultTimeout).
			SetJsonMarshal(jsonMarshal).
			SetJsonUnmarshal(jsonUnmarshal),
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Upload negotiates a plan for data and executes it. It returns the public
// object path of the stored file.
func (c *Client) Upload(ctx context.Context, data []byte, meta Metadata) (string, error) {
	plan, err := c.Negotiate(ctx, uint64(len(data)), meta)
	if err != nil {
		return "", err
	}
	return c.Execute(ctx, plan, data, meta)
}

// Negotiate asks the server how a payload of the given size should be
// uploaded.
func (c *Client) Negotiate(ctx context.Context, size uint64, meta Metadata) (*Plan, error) {
	contentType := meta.ContentType
	if contentType == "" {
		// the server signs with the same fallback, the PUT has to match it
		contentType = utils.ContentTypeByExt(meta.Name)
	}

	var (
		out    negotiateResponse
		apiErr APIError
	)
	resp, err := c.api.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetBody(&negotiateRequest{
			Name:        meta.Name,
			Size:        size,
			ContentType: contentType,
		}).
		SetSuccessResult(&out).
		SetErrorResult(&apiErr).
		Post(requestURLPath)
	if err != nil {
		return nil, fmt.Errorf("uploadclient: negotiate: %w", err)
	}
	if !resp.IsSuccessState() {
		return nil, classify(resp.StatusCode, errorBody(&apiErr), "negotiate")
	}

	plan := &Plan{contentType: contentType}
	switch {
	case out.UseDirectUpload:
		if out.DirectUploadURL == "" {
			return nil, fmt.Errorf("%w: negotiate: direct plan without endpoint", ErrUploadRejected)
		}
		plan.Kind = KindDirect
		plan.DirectUploadURL = out.DirectUploadURL
	default:
		if out.UploadURL == "" || out.ObjectPath == "" || out.ExpiresAt == nil {
			return nil, fmt.Errorf("%w: negotiate: incomplete presigned plan", ErrUploadRejected)
		}
		plan.Kind = KindPresigned
		plan.UploadURL = out.UploadURL
		plan.ObjectPath = out.ObjectPath
		plan.ExpiresAt = *out.ExpiresAt
	}

	slog.Debug("upload plan", "kind", plan.Kind, "name", meta.Name, "size", humanize.IBytes(size))
	return plan, nil
}

// Execute performs a plan. A plan runs at most once; later calls fail with
// ErrPlanSpent without touching the network.
func (c *Client) Execute(ctx context.Context, plan *Plan, data []byte, meta Metadata) (string, error) {
	if plan == nil {
		return "", errors.New("uploadclient: nil plan")
	}
	if plan.Kind == KindPresigned && !c.now().Before(plan.ExpiresAt) {
		return "", fmt.Errorf("%w: %w", ErrUploadRejected, ErrPlanExpired)
	}
	if !plan.claim() {
		return "", ErrPlanSpent
	}

	switch plan.Kind {
	case KindPresigned:
		return c.putPresigned(ctx, plan, data)
	case KindDirect:
		return c.postDirect(ctx, plan, data, meta)
	default:
		return "", fmt.Errorf("uploadclient: unknown plan kind %q", plan.Kind)
	}
}

func (c *Client) putPresigned(ctx context.Context, plan *Plan, data []byte) (string, error) {
	// plain net/http: the signed URL must not carry our bearer token and the
	// store needs the exact Content-Length up front
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, plan.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("uploadclient: presigned put: %w", err)
	}
	httpReq.ContentLength = int64(len(data))
	httpReq.Header.Set("Content-Type", plan.contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("uploadclient: presigned put: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", classify(resp.StatusCode, nil, "presigned put")
	}
	return plan.ObjectPath, nil
}

func (c *Client) postDirect(ctx context.Context, plan *Plan, data []byte, meta Metadata) (string, error) {
	name := meta.Name
	if name == "" {
		name = "upload"
	}

	var (
		out    directResponse
		apiErr APIError
	)
	resp, err := c.api.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetFileUpload(req.FileUpload{
			ParamName: "file",
			FileName:  name,
			GetFileContent: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			},
			FileSize:    int64(len(data)),
			ContentType: plan.contentType,
		}).
		SetSuccessResult(&out).
		SetErrorResult(&apiErr).
		Post(plan.DirectUploadURL)
	if err != nil {
		return "", fmt.Errorf("uploadclient: direct upload: %w", err)
	}
	if !resp.IsSuccessState() {
		return "", classify(resp.StatusCode, errorBody(&apiErr), "direct upload")
	}
	if out.ObjectPath == "" {
		return "", fmt.Errorf("%w: direct upload: empty object path", ErrUploadRejected)
	}
	return out.ObjectPath, nil
}

func errorBody(e *APIError) *APIError {
	if e.Code == "" && e.Message == "" {
		return nil
	}
	return e
}
