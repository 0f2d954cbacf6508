package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readerWith(open openFunc, max int64) *ObjectReader {
	return &ObjectReader{open: open, maxBytes: max}
}

func TestReadObjectReturnsContents(t *testing.T) {
	var gotBucket, gotObject string
	reader := readerWith(func(_ context.Context, bucket, object string) (io.ReadCloser, error) {
		gotBucket, gotObject = bucket, object
		return io.NopCloser(strings.NewReader(`[{"name":"Stethoscope"}]`)), nil
	}, 1024)

	data, err := reader.ReadObject(context.Background(), " medshop-seed ", "/catalog/products.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Stethoscope"}]`, string(data))
	assert.Equal(t, "medshop-seed", gotBucket)
	assert.Equal(t, "catalog/products.json", gotObject)
}

func TestReadObjectMapsMissingObject(t *testing.T) {
	reader := readerWith(func(context.Context, string, string) (io.ReadCloser, error) {
		return nil, gcs.ErrObjectNotExist
	}, 1024)

	_, err := reader.ReadObject(context.Background(), "b", "o.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestReadObjectRejectsOversizedObject(t *testing.T) {
	reader := readerWith(func(context.Context, string, string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(strings.Repeat("x", 11))), nil
	}, 10)

	_, err := reader.ReadObject(context.Background(), "b", "o.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 10 bytes")
}

func TestReadObjectValidatesInput(t *testing.T) {
	reader := readerWith(func(context.Context, string, string) (io.ReadCloser, error) {
		t.Fatal("open should not be called")
		return nil, errors.New("unreachable")
	}, 10)

	_, err := reader.ReadObject(context.Background(), "", "o.json")
	assert.Error(t, err)

	_, err = NewObjectReader(nil)
	assert.Error(t, err)
}
