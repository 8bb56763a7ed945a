package storage

import (
	"context"
	"errors"
	"io"

	gcsstorage "cloud.google.com/go/storage"
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/api/iterator"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/targetpath"
)

// gcsBackend mirrors s3Backend/azureBlobBackend over a GCS bucket handle.
type gcsBackend struct {
	bucketName string
	bucket     *gcsstorage.BucketHandle
	converter  *targetpath.Expr
}

func newGCSBackend(bucketName string, bucket *gcsstorage.BucketHandle, conv *targetpath.Expr) *gcsBackend {
	if conv == nil {
		conv = targetpath.Default()
	}
	return &gcsBackend{bucketName: bucketName, bucket: bucket, converter: conv}
}

func (b *gcsBackend) key(t *target.Target) (string, error) { return b.converter.ToPath(t) }

func (b *gcsBackend) Exists(t *target.Target) bool {
	key, err := b.key(t)
	if err != nil {
		return false
	}
	_, err = b.bucket.Object(key).Attrs(context.Background())
	return err == nil
}

func (b *gcsBackend) Read(t *target.Target) (any, error) {
	key, err := b.key(t)
	if err != nil {
		return nil, err
	}
	r, err := b.bucket.Object(key).NewReader(context.Background())
	if err != nil {
		return nil, cmn.TargetDoesNotExist(t.String())
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var data any
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *gcsBackend) Write(t *target.Target, data any) error {
	key, err := b.key(t)
	if err != nil {
		return err
	}
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(data)
	if err != nil {
		return err
	}
	w := b.bucket.Object(key).NewWriter(context.Background())
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (b *gcsBackend) Remove(t *target.Target) error {
	key, err := b.key(t)
	if err != nil {
		return err
	}
	if !b.Exists(t) {
		return cmn.TargetDoesNotExist(t.String())
	}
	return b.bucket.Object(key).Delete(context.Background())
}

func (b *gcsBackend) List() ([]*target.Target, error) {
	var out []*target.Target
	it := b.bucket.Objects(context.Background(), nil)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return out, err
		}
		t, err := b.converter.FromPath(attrs.Name)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (b *gcsBackend) Failed() []string { return nil }

func (b *gcsBackend) Location(t *target.Target) string {
	key, _ := b.key(t)
	return "gs://" + b.bucketName + "/" + key
}

func (b *gcsBackend) Check(t *target.Target) error {
	_, err := b.key(t)
	return err
}

// NewGCS builds a GCS-backed Storage over an already-configured bucket handle.
func NewGCS(bucketName string, bucket *gcsstorage.BucketHandle, conv *targetpath.Expr, temporary bool) (*Common, error) {
	if bucket == nil {
		return nil, errors.New("storage: NewGCS requires a non-nil bucket handle")
	}
	return NewCommon("gs://"+bucketName, newGCSBackend(bucketName, bucket, conv), temporary), nil
}
