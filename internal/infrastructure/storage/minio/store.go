package minio

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/errors"
)

// ErrObjectNotFound is returned by Get for a missing key.
var ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")

// RawKey is the archive key of one detail document: raw/<runID>/<id>.html.
func RawKey(runID, entityID string) string {
	return path.Join("raw", runID, entityID+".html")
}

// ArtifactKey is the key of a run output file: runs/<runID>/<name>.
func ArtifactKey(runID, name string) string {
	return path.Join("runs", runID, name)
}

// Put stores data under bucket/key.
func (c *Client) Put(ctx context.Context, bucket, key string, data []byte, contentType string, meta map[string]string) error {
	_, err := c.api.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail(bucket + "/" + key)
	}
	c.logger.Debug("Object stored", logging.String("bucket", bucket), logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

// Get reads bucket/key fully.
func (c *Client) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := c.api.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed").WithDetail(bucket + "/" + key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed").WithDetail(bucket + "/" + key)
	}
	return data, nil
}

// ArchiveRaw stores one fetched detail document in the raw bucket.
func (c *Client) ArchiveRaw(ctx context.Context, runID, entityID string, body []byte) error {
	return c.Put(ctx, c.buckets.Raw, RawKey(runID, entityID), body, "text/html; charset=utf-8",
		map[string]string{"run-id": runID, "entity-id": entityID})
}

// PutArtifact stores a run output file in the artifact bucket.
func (c *Client) PutArtifact(ctx context.Context, runID, name string, data []byte, contentType string) error {
	return c.Put(ctx, c.buckets.Artifact, ArtifactKey(runID, name), data, contentType,
		map[string]string{"run-id": runID})
}

//Personal.AI order the ending
