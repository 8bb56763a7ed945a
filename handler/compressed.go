package handler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v3"
)

// compressedSuffix marks LZ4-compressed sidecar files inside a target dir.
const compressedSuffix = ".lz4"

// Compressed wraps another FileHandler, running the bytes it writes to disk
// through streaming LZ4 before they reach the backend's byte sink. Useful
// for large array/blob payloads on the file backend, which saves through a
// handler; the bunt, S3, Azure, GCS and HDFS backends encode with jsoniter
// directly and do not use handlers.
//
// Compressed only supports handlers whose Save/Load write/read a single
// plain file into dir (e.g. JSON); it transparently compresses that file
// in place and decompresses on Load.
type Compressed struct {
	Inner    FileHandler
	Filename string // the file Inner is expected to write, e.g. "data.json"
}

func (c Compressed) Save(dir string, ref TargetRef, data any) error {
	if err := c.Inner.Save(dir, ref, data); err != nil {
		return err
	}
	plain := filepath.Join(dir, c.Filename)
	raw, err := os.ReadFile(plain)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := os.WriteFile(plain+compressedSuffix, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Remove(plain)
}

func (c Compressed) Load(dir string, ref TargetRef) (any, error) {
	compressed := filepath.Join(dir, c.Filename+compressedSuffix)
	f, err := os.Open(compressed)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := lz4.NewReader(f)
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("handler: lz4 decompress %s: %w", compressed, err)
	}

	plain := filepath.Join(dir, c.Filename)
	if err := os.WriteFile(plain, raw, 0o644); err != nil {
		return nil, err
	}
	defer os.Remove(plain)
	return c.Inner.Load(dir, ref)
}
