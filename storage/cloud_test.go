package storage

import (
	"path/filepath"
	"testing"
)

// These don't reach real S3/GCS/Azure/HDFS endpoints - no network, no
// credentials - but they exercise each constructor's validation path so the
// backend code isn't dead weight behind an SDK import nobody calls.

func TestNewS3RejectsNilClient(t *testing.T) {
	if _, err := NewS3("bucket", nil, nil, false); err == nil {
		t.Fatalf("expected error for nil s3 client")
	}
}

func TestNewGCSRejectsNilBucket(t *testing.T) {
	if _, err := NewGCS("bucket", nil, nil, false); err == nil {
		t.Fatalf("expected error for nil gcs bucket handle")
	}
}

func TestNewAzureBlobRejectsNilClient(t *testing.T) {
	if _, err := NewAzureBlob("container", nil, nil, false); err == nil {
		t.Fatalf("expected error for nil azblob client")
	}
}

func TestNewHDFSRejectsNilClient(t *testing.T) {
	if _, err := NewHDFS("root", nil, nil, false); err == nil {
		t.Fatalf("expected error for nil hdfs client")
	}
}

// NewBunt needs no external service, so it gets the full round trip the
// others can only get from a live backend.
func TestNewBuntWriteReadList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := NewBunt(path, nil, false)
	if err != nil {
		t.Fatalf("new bunt: %v", err)
	}
	tg := mustTarget(t, "alpha")
	if err := s.Write(tg, map[string]any{"v": 1.0}, ModeUnset); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !s.Exists(tg) {
		t.Fatalf("expected target to exist")
	}
	v, err := s.Read(tg)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["v"] != 1.0 {
		t.Fatalf("unexpected read result: %v", v)
	}
	listed, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "alpha" {
		t.Fatalf("unexpected list result: %v", listed)
	}
}
