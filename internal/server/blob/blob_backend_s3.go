package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/revendaauto/backoffice/internal/utils"
)

type S3Backend struct {
	s3Client    *s3.Client
	s3Presigner *s3.PresignClient
	config      *Config
	now         func() time.Time
}

func NewS3Backend(s3Client *s3.Client, cfg *Config) *S3Backend {
	return &S3Backend{
		s3Client:    s3Client,
		s3Presigner: s3.NewPresignClient(s3Client),
		config:      cfg.withDefaults(),
		now:         time.Now,
	}
}

func NewS3BackendWithConfig(cfg *Config) (*S3Backend, error) {
	// a buildable client lets the sdk add AWS_CA_BUNDLE roots to it
	httpClient := awshttp.NewBuildableClient().
		WithTimeout(30 * time.Second).
		WithTransportOptions(func(tr *http.Transport) {
			tr.MaxIdleConns = 100
			tr.MaxIdleConnsPerHost = 50
			tr.IdleConnTimeout = 90 * time.Second
			tr.TLSHandshakeTimeout = 10 * time.Second
			tr.ExpectContinueTimeout = 1 * time.Second
		})

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	awsClient := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UseAccelerate {
			o.UseAccelerate = true
		}
		// presigned PUTs must not carry a checksum of an empty body
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return NewS3Backend(awsClient, cfg), nil
}

// ===================================================================================================

// MintWriteURL presigns a PUT for a freshly generated key. The returned
// ObjectPath is derived from the URL alone.
func (s *S3Backend) MintWriteURL(ctx context.Context, contentType string, originalName string) (*WriteURL, error) {
	key := s.newKey(utils.SafeExt(originalName))
	if !ValidateKey(key) {
		return nil, ErrInvalidKey
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	expiresAt := s.now().Add(s.config.UploadExpiry)
	req, err := s.s3Presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(s.config.UploadExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	objectPath, err := s.ObjectPathFromURL(req.URL)
	if err != nil {
		return nil, err
	}

	slog.Debug("blob presign put", "key", key, "expires", expiresAt)
	return &WriteURL{
		URL:        req.URL,
		Key:        key,
		ObjectPath: objectPath,
		ExpiresAt:  expiresAt,
	}, nil
}

// MintReadURL presigns a GET for an existing object path.
func (s *S3Backend) MintReadURL(ctx context.Context, objectPath string) (string, error) {
	key, err := s.KeyFromObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	req, err := s.s3Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(DefaultReadExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// GetObject streams an object. Missing objects yield ErrObjectNotFound,
// anything else is returned wrapped.
func (s *S3Backend) GetObject(ctx context.Context, objectPath string) (*Object, error) {
	key, err := s.KeyFromObjectPath(objectPath)
	if err != nil {
		return nil, err
	}

	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}

	contentType := aws.ToString(resp.ContentType)
	if contentType == "" {
		contentType = utils.ContentTypeByExt(key)
	}

	return &Object{
		Body:         resp.Body,
		ContentType:  contentType,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         strings.ReplaceAll(aws.ToString(resp.ETag), "\"", ""),
		LastModified: aws.ToTime(resp.LastModified),
	}, nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (s *S3Backend) Ping(ctx context.Context) error {
	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.BucketName),
	})
	if err != nil {
		return fmt.Errorf("head bucket %q: %w", s.config.BucketName, err)
	}
	return nil
}

// ===================================================================================================

// ObjectPathFromURL maps a presigned URL to the public object path. Both
// virtual-hosted and path-style URLs are handled.
func (s *S3Backend) ObjectPathFromURL(rawURL string) (string, error) {
	return objectPathFromURL(rawURL, s.config.BucketName, s.config.PublicPrefix)
}

// KeyFromObjectPath reverses ObjectPathFromURL.
func (s *S3Backend) KeyFromObjectPath(objectPath string) (string, error) {
	return keyFromObjectPath(objectPath, s.config.PublicPrefix)
}

func (s *S3Backend) newKey(ext string) string {
	d := s.now().UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s%s", s.config.KeyPrefix, d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func objectPathFromURL(rawURL, bucket, publicPrefix string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidObjectPath, err)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if !strings.HasPrefix(u.Hostname(), bucket+".") {
		key = strings.TrimPrefix(key, bucket+"/")
	}
	if !ValidateKey(key) {
		return "", ErrInvalidObjectPath
	}

	return path.Join(publicPrefix, key), nil
}

func keyFromObjectPath(objectPath, publicPrefix string) (string, error) {
	key, ok := strings.CutPrefix(objectPath, publicPrefix+"/")
	if !ok || !ValidateKey(key) {
		return "", ErrInvalidObjectPath
	}
	return key, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
