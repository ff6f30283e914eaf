// Package assets produces signed, time-limited download URLs for stored
// asset keys.
package assets

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultExpiry = 15 * time.Minute

// Signer turns a stored asset key into a URL a client can fetch for a
// limited time.
type Signer interface {
	SignURL(ctx context.Context, key string) (string, error)
}

// SignerFunc adapts a function to the Signer interface.
type SignerFunc func(ctx context.Context, key string) (string, error)

func (f SignerFunc) SignURL(ctx context.Context, key string) (string, error) {
	return f(ctx, key)
}

// Options mutate how the MinioSigner is constructed.
//
// Use the WithX helpers below.
type Options struct {
	// Expiry is how long signed URLs stay valid.
	Expiry time.Duration
	// Secure toggles HTTPS for the storage endpoint.
	Secure bool
	// Region pins the bucket region so signing needs no location lookup.
	Region string
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() Options {
	return Options{Expiry: defaultExpiry}
}

// WithExpiry sets how long signed URLs stay valid.
func WithExpiry(d time.Duration) Option {
	return func(o *Options) { o.Expiry = d }
}

// WithSecure toggles HTTPS for the storage endpoint.
func WithSecure(secure bool) Option {
	return func(o *Options) { o.Secure = secure }
}

// WithRegion pins the bucket region.
func WithRegion(region string) Option {
	return func(o *Options) { o.Region = region }
}

// MinioSigner signs asset keys as S3 presigned GET URLs. The signature is
// computed locally, so signing never talks to the storage service.
type MinioSigner struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

var _ Signer = (*MinioSigner)(nil)

// NewMinioSigner builds a signer for one bucket on an S3-compatible endpoint.
func NewMinioSigner(endpoint, accessKey, secretKey, bucket string, opts ...Option) (*MinioSigner, error) {
	if bucket == "" {
		return nil, fmt.Errorf("assets: bucket is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Expiry <= 0 {
		o.Expiry = defaultExpiry
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: o.Secure,
		Region: o.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("assets: connect %s: %w", endpoint, err)
	}
	return &MinioSigner{client: client, bucket: bucket, expiry: o.Expiry}, nil
}

// SignURL returns a presigned GET URL for key in the configured bucket.
func (s *MinioSigner) SignURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("assets: empty asset key")
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("assets: sign %q: %w", key, err)
	}
	return u.String(), nil
}
