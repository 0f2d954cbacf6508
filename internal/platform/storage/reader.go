package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
)

const defaultMaxObjectBytes = 4 << 20

// ErrObjectNotFound reports a missing bucket or object.
var ErrObjectNotFound = errors.New("storage: object not found")

type openFunc func(ctx context.Context, bucket, object string) (io.ReadCloser, error)

// ObjectReader reads small JSON documents (the bootstrap catalog) from Cloud Storage.
type ObjectReader struct {
	open     openFunc
	maxBytes int64
}

// NewObjectReader wraps a Cloud Storage client.
func NewObjectReader(client *gcs.Client) (*ObjectReader, error) {
	if client == nil {
		return nil, errors.New("storage reader: client is required")
	}
	return &ObjectReader{
		open: func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
			rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
			if err != nil {
				return nil, err
			}
			return rc, nil
		},
		maxBytes: defaultMaxObjectBytes,
	}, nil
}

// ReadObject returns the object contents. Objects larger than the reader limit are rejected.
func (r *ObjectReader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	bucket = strings.TrimSpace(bucket)
	object = strings.TrimPrefix(strings.TrimSpace(object), "/")
	if bucket == "" || object == "" {
		return nil, errors.New("storage reader: bucket and object are required")
	}

	rc, err := r.open(ctx, bucket, object)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, bucket, object)
		}
		return nil, fmt.Errorf("storage reader: open gs://%s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("storage reader: read gs://%s/%s: %w", bucket, object, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("storage reader: gs://%s/%s exceeds %d bytes", bucket, object, r.maxBytes)
	}
	return data, nil
}
