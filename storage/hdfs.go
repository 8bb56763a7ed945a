package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/colinmarc/hdfs/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/targetpath"
)

// hdfsBackend stores each target as one jsoniter-encoded file under root,
// rooted the same way the file backend is but over an HDFS client.
type hdfsBackend struct {
	client     *hdfs.Client
	root       string
	converter  *targetpath.Expr
	lastFailed []string
}

func newHDFSBackend(root string, conv *targetpath.Expr, client *hdfs.Client) *hdfsBackend {
	if conv == nil {
		conv = targetpath.Default()
	}
	return &hdfsBackend{client: client, root: root, converter: conv}
}

const hdfsFilename = "data.json"

func (b *hdfsBackend) dir(t *target.Target) (string, error) {
	rel, err := b.converter.ToPath(t)
	if err != nil {
		return "", cmn.InvalidTarget(t.String(), err)
	}
	return path.Join(b.root, rel), nil
}

func (b *hdfsBackend) Exists(t *target.Target) bool {
	dir, err := b.dir(t)
	if err != nil {
		return false
	}
	_, err = b.client.Stat(path.Join(dir, hdfsFilename))
	return err == nil
}

func (b *hdfsBackend) Read(t *target.Target) (any, error) {
	dir, err := b.dir(t)
	if err != nil {
		return nil, err
	}
	f, err := b.client.Open(path.Join(dir, hdfsFilename))
	if err != nil {
		return nil, cmn.TargetDoesNotExist(t.String())
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var data any
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *hdfsBackend) Write(t *target.Target, data any) error {
	dir, err := b.dir(t)
	if err != nil {
		return err
	}
	if err := b.client.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(data)
	if err != nil {
		return err
	}
	dest := path.Join(dir, hdfsFilename)
	b.client.Remove(dest) // best-effort, overwrite semantics handled by Common
	w, err := b.client.Create(dest)
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (b *hdfsBackend) Remove(t *target.Target) error {
	dir, err := b.dir(t)
	if err != nil {
		return err
	}
	if !b.Exists(t) {
		return cmn.TargetDoesNotExist(t.String())
	}
	return b.client.RemoveAll(dir)
}

// List walks the HDFS tree with Client.Walk, treating a directory holding
// data.json as a leaf target - same leaf convention as the local file
// backend, just walked over the HDFS client instead of the filesystem.
func (b *hdfsBackend) List() ([]*target.Target, error) {
	var out []*target.Target
	var failed []string

	err := b.client.Walk(b.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || info.Name() != hdfsFilename {
			return nil
		}
		dir := path.Dir(p)
		rel := strings.TrimPrefix(strings.TrimPrefix(dir, b.root), "/")
		t, ferr := b.converter.FromPath(rel)
		if ferr != nil {
			failed = append(failed, rel)
			return nil
		}
		out = append(out, t)
		return nil
	})
	b.lastFailed = failed
	if err != nil && !errorsIsNotExist(err) {
		return out, err
	}
	return out, nil
}

func errorsIsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}

func (b *hdfsBackend) Failed() []string { return b.lastFailed }

func (b *hdfsBackend) Location(t *target.Target) string {
	dir, _ := b.dir(t)
	return "hdfs://" + dir
}

func (b *hdfsBackend) Check(t *target.Target) error {
	_, err := b.dir(t)
	return err
}

// NewHDFS builds an HDFS-backed Storage rooted at root over an
// already-configured client.
func NewHDFS(root string, conv *targetpath.Expr, client *hdfs.Client, temporary bool) (*Common, error) {
	if client == nil {
		return nil, errors.New("storage: NewHDFS requires a non-nil hdfs.Client")
	}
	return NewCommon("hdfs://"+root, newHDFSBackend(root, conv, client), temporary), nil
}
