// Package minio archives fetched detail documents and run artifacts in
// S3-compatible object storage.
package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/fishlwr/internal/config"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/errors"
)

// API is the subset of *minio.Client used here.
type API interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// Buckets names the two buckets the pipeline writes to.
type Buckets struct {
	Raw      string
	Artifact string
}

// Client holds the connection and bucket layout.
type Client struct {
	api           API
	buckets       Buckets
	retentionDays int
	logger        logging.Logger
}

// NewClient connects, then creates missing buckets and the raw-document
// expiry rule.
func NewClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	c := NewClientWithAPI(api, Buckets{Raw: cfg.RawBucket, Artifact: cfg.ArtifactBucket}, cfg.RawRetentionDay, log)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.EnsureBuckets(ctx); err != nil {
		return nil, err
	}
	c.applyRetention(ctx)

	c.logger.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wraps an existing API implementation.
func NewClientWithAPI(api API, buckets Buckets, retentionDays int, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{api: api, buckets: buckets, retentionDays: retentionDays, logger: log}
}

// Buckets returns the configured bucket names.
func (c *Client) Buckets() Buckets { return c.buckets }

// EnsureBuckets creates the raw and artifact buckets when absent.
func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{c.buckets.Raw, c.buckets.Artifact} {
		if bucket == "" {
			continue
		}
		exists, err := c.api.BucketExists(ctx, bucket)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket existence").WithDetail("bucket=" + bucket)
		}
		if exists {
			continue
		}
		if err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket").WithDetail("bucket=" + bucket)
		}
		c.logger.Info("Created bucket", logging.String("bucket", bucket))
	}
	return nil
}

// applyRetention expires raw documents after retentionDays.  Failure only
// warns: archives are a debugging aid.
func (c *Client) applyRetention(ctx context.Context) {
	if c.retentionDays <= 0 || c.buckets.Raw == "" {
		return
	}
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{{
		ID:         "raw-expiry",
		Status:     "Enabled",
		Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(c.retentionDays)},
	}}
	if err := c.api.SetBucketLifecycle(ctx, c.buckets.Raw, lc); err != nil {
		c.logger.Warn("Failed to set lifecycle for raw bucket", logging.Err(err))
	}
}

// HealthCheck confirms the artifact bucket is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.BucketExists(ctx, c.buckets.Artifact); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "minio health check failed")
	}
	return nil
}

//Personal.AI order the ending
