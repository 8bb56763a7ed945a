package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	jsoniter "github.com/json-iterator/go"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/targetpath"
)

// s3Backend stores each target as one jsoniter-encoded object, keyed by the
// same converter every other backend shares.
type s3Backend struct {
	client    *s3.Client
	bucket    string
	converter *targetpath.Expr
}

func newS3Backend(bucket string, conv *targetpath.Expr, client *s3.Client) *s3Backend {
	if conv == nil {
		conv = targetpath.Default()
	}
	return &s3Backend{client: client, bucket: bucket, converter: conv}
}

func (b *s3Backend) key(t *target.Target) (string, error) { return b.converter.ToPath(t) }

func (b *s3Backend) Exists(t *target.Target) bool {
	key, err := b.key(t)
	if err != nil {
		return false
	}
	_, err = b.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket), Key: aws.String(key),
	})
	return err == nil
}

func (b *s3Backend) Read(t *target.Target) (any, error) {
	key, err := b.key(t)
	if err != nil {
		return nil, err
	}
	out, err := b.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(b.bucket), Key: aws.String(key),
	})
	if err != nil {
		return nil, cmn.TargetDoesNotExist(t.String())
	}
	defer out.Body.Close()
	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	var data any
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *s3Backend) Write(t *target.Target, data any) error {
	key, err := b.key(t)
	if err != nil {
		return err
	}
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(data)
	if err != nil {
		return err
	}
	_, err = b.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(b.bucket), Key: aws.String(key), Body: bytes.NewReader(raw),
	})
	return err
}

func (b *s3Backend) Remove(t *target.Target) error {
	key, err := b.key(t)
	if err != nil {
		return err
	}
	if !b.Exists(t) {
		return cmn.TargetDoesNotExist(t.String())
	}
	_, err = b.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket), Key: aws.String(key),
	})
	return err
}

func (b *s3Backend) List() ([]*target.Target, error) {
	var out []*target.Target
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			t, err := b.converter.FromPath(aws.ToString(obj.Key))
			if err != nil {
				continue
			}
			out = append(out, t)
		}
	}
	return out, nil
}

func (b *s3Backend) Failed() []string { return nil }

func (b *s3Backend) Location(t *target.Target) string {
	key, _ := b.key(t)
	return "s3://" + b.bucket + "/" + key
}

func (b *s3Backend) Check(t *target.Target) error {
	_, err := b.key(t)
	return err
}

// NewS3 builds an S3-backed Storage over an already-configured client.
func NewS3(bucket string, conv *targetpath.Expr, client *s3.Client, temporary bool) (*Common, error) {
	if client == nil {
		return nil, errors.New("storage: NewS3 requires a non-nil s3.Client")
	}
	return NewCommon("s3://"+bucket, newS3Backend(bucket, conv, client), temporary), nil
}
