package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	jsoniter "github.com/json-iterator/go"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/targetpath"
)

// azureBlobBackend mirrors s3Backend, one jsoniter-encoded blob per target.
type azureBlobBackend struct {
	client    *azblob.Client
	container string
	converter *targetpath.Expr
}

func newAzureBlobBackend(containerName string, conv *targetpath.Expr, client *azblob.Client) *azureBlobBackend {
	if conv == nil {
		conv = targetpath.Default()
	}
	return &azureBlobBackend{client: client, container: containerName, converter: conv}
}

func (b *azureBlobBackend) key(t *target.Target) (string, error) { return b.converter.ToPath(t) }

func (b *azureBlobBackend) Exists(t *target.Target) bool {
	_, err := b.Read(t)
	return err == nil
}

func (b *azureBlobBackend) Read(t *target.Target) (any, error) {
	key, err := b.key(t)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.DownloadStream(context.Background(), b.container, key, nil)
	if err != nil {
		return nil, cmn.TargetDoesNotExist(t.String())
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var data any
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *azureBlobBackend) Write(t *target.Target, data any) error {
	key, err := b.key(t)
	if err != nil {
		return err
	}
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(data)
	if err != nil {
		return err
	}
	_, err = b.client.UploadBuffer(context.Background(), b.container, key, raw, nil)
	return err
}

func (b *azureBlobBackend) Remove(t *target.Target) error {
	key, err := b.key(t)
	if err != nil {
		return err
	}
	if !b.Exists(t) {
		return cmn.TargetDoesNotExist(t.String())
	}
	_, err = b.client.DeleteBlob(context.Background(), b.container, key, nil)
	return err
}

func (b *azureBlobBackend) List() ([]*target.Target, error) {
	var out []*target.Target
	pager := b.client.NewListBlobsFlatPager(b.container, &azblob.ListBlobsFlatOptions{})
	for pager.More() {
		page, err := pager.NextPage(context.Background())
		if err != nil {
			return nil, err
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			t, err := b.converter.FromPath(*item.Name)
			if err != nil {
				continue
			}
			out = append(out, t)
		}
	}
	return out, nil
}

func (b *azureBlobBackend) Failed() []string { return nil }

func (b *azureBlobBackend) Location(t *target.Target) string {
	key, _ := b.key(t)
	return "azblob://" + b.container + "/" + key
}

func (b *azureBlobBackend) Check(t *target.Target) error {
	_, err := b.key(t)
	return err
}

// NewAzureBlob builds an Azure Blob-backed Storage over an already-configured client.
func NewAzureBlob(containerName string, conv *targetpath.Expr, client *azblob.Client, temporary bool) (*Common, error) {
	if client == nil {
		return nil, errors.New("storage: NewAzureBlob requires a non-nil azblob.Client")
	}
	return NewCommon("azblob://"+containerName, newAzureBlobBackend(containerName, conv, client), temporary), nil
}
