package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/handler"
	"github.com/py-baudin/machines/nlog"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/targetpath"
)

// fileBackend is a directory-tree Backend, ported from filedb.py's FileDB:
// every target maps to one leaf directory (via the shared targetpath.Expr)
// holding the handler-written files plus an optional signature sidecar.
type fileBackend struct {
	root            string
	converter       *targetpath.Expr
	handlers        map[string]handler.FileHandler // keyed by target name or kind
	defaultHandler  handler.FileHandler
	failed          []string
}

// FileOption configures a file backend at construction time.
type FileOption func(*fileBackend)

// WithHandler registers a named (by target name or kind) handler override.
func WithHandler(key string, h handler.FileHandler) FileOption {
	return func(fb *fileBackend) { fb.handlers[key] = h }
}

// WithDefaultHandler overrides the fallback handler (handler.JSON otherwise).
func WithDefaultHandler(h handler.FileHandler) FileOption {
	return func(fb *fileBackend) { fb.defaultHandler = h }
}

func newFileBackend(root string, conv *targetpath.Expr, opts ...FileOption) *fileBackend {
	if conv == nil {
		conv = targetpath.Default()
	}
	fb := &fileBackend{
		root:           root,
		converter:      conv,
		handlers:       map[string]handler.FileHandler{},
		defaultHandler: handler.JSON,
	}
	for _, opt := range opts {
		opt(fb)
	}
	return fb
}

func (fb *fileBackend) path(t *target.Target) (string, error) {
	rel, err := fb.converter.ToPath(t)
	if err != nil {
		return "", cmn.InvalidTarget(t.String(), err)
	}
	return filepath.Join(fb.root, filepath.FromSlash(rel)), nil
}

func (fb *fileBackend) handlerFor(t *target.Target) handler.FileHandler {
	if t.Handler != nil {
		return t.Handler
	}
	if h, ok := fb.handlers[t.Name]; ok {
		return h
	}
	if t.Kind != "" {
		if h, ok := fb.handlers[t.Kind]; ok {
			return h
		}
	}
	return fb.defaultHandler
}

func (fb *fileBackend) Exists(t *target.Target) bool {
	p, err := fb.path(t)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func (fb *fileBackend) Read(t *target.Target) (any, error) {
	p, err := fb.path(t)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p); err != nil {
		return nil, cmn.TargetDoesNotExist(t.String())
	}
	return fb.handlerFor(t).Load(p, t)
}

// Write saves first to a sibling temp directory, then atomically renames it
// into place - ported from FileDB.__setitem__'s tempdir-then-copytree, using
// os.Rename instead of copytree+cleanup since both sides are on one volume.
func (fb *fileBackend) Write(t *target.Target, data any) error {
	p, err := fb.path(t)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(p); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if err := fb.handlerFor(t).Save(tmp, t, data); err != nil {
		return err
	}
	nlog.Infof("storage: writing target %s to %s", t, p)
	if err := os.Rename(tmp, p); err != nil {
		return err
	}
	return nil
}

func (fb *fileBackend) Remove(t *target.Target) error {
	p, err := fb.path(t)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err != nil {
		return cmn.TargetDoesNotExist(t.String())
	}
	if err := os.RemoveAll(p); err != nil {
		return err
	}
	removeEmptyDirs(p, fb.root)
	return nil
}

// removeEmptyDirs prunes now-empty ancestor directories up to (but not
// including) root - mirrors filedb.py's removedirs.
func removeEmptyDirs(path, root string) {
	dir := filepath.Dir(path)
	for {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// List walks the tree with godirwalk, treating any directory with files and
// no subdirectories as a leaf target; entries that fail to round-trip
// through the converter are recorded via Failed rather than aborting List.
func (fb *fileBackend) List() ([]*target.Target, error) {
	var out []*target.Target
	fb.failed = nil

	if _, err := os.Stat(fb.root); os.IsNotExist(err) {
		return nil, nil
	}

	err := godirwalk.Walk(fb.root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == fb.root || !de.IsDir() {
				return nil
			}
			isLeaf, err := isLeafDir(path)
			if err != nil || !isLeaf {
				return nil
			}
			rel, err := filepath.Rel(fb.root, path)
			if err != nil {
				return nil
			}
			t, err := fb.converter.FromPath(filepath.ToSlash(rel))
			if err != nil {
				fb.failed = append(fb.failed, rel)
				return nil
			}
			out = append(out, t)
			return nil
		},
		Unsorted: true,
	})
	return out, err
}

func isLeafDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	hasFile := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() {
			return false, nil
		}
		hasFile = true
	}
	return hasFile, nil
}

func (fb *fileBackend) Failed() []string { return fb.failed }

func (fb *fileBackend) Location(t *target.Target) string {
	p, err := fb.path(t)
	if err != nil {
		return ""
	}
	return p
}

func (fb *fileBackend) Check(t *target.Target) error {
	_, err := fb.path(t)
	return err
}

// NewFile builds a directory-tree backed Storage rooted at root.
func NewFile(root string, conv *targetpath.Expr, temporary bool, opts ...FileOption) *Common {
	fb := newFileBackend(root, conv, opts...)
	return NewCommon(root, fb, temporary)
}
