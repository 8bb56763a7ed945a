package storage

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/buntdb"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/targetpath"
)

var buntJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// buntBackend is an embedded, crash-safe KV Backend over buntdb, for
// single-machine pipelines wanting an on-disk, queryable index of existing
// targets without the directory-walk cost of the file backend. Target
// signatures (canonical key strings from targetpath.Expr) are the buntdb
// keys; values are jsoniter-encoded.
type buntBackend struct {
	db        *buntdb.DB
	converter *targetpath.Expr
}

const buntSigIndex = "signature"

func newBuntBackend(path string, conv *targetpath.Expr) (*buntBackend, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv = targetpath.Default()
	}
	if err := db.CreateIndex(buntSigIndex, "*", buntdb.IndexString); err != nil && err != buntdb.ErrIndexExists {
		return nil, err
	}
	return &buntBackend{db: db, converter: conv}, nil
}

func (b *buntBackend) key(t *target.Target) (string, error) {
	return b.converter.ToPath(t)
}

func (b *buntBackend) Exists(t *target.Target) bool {
	key, err := b.key(t)
	if err != nil {
		return false
	}
	var found bool
	b.db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Get(key)
		found = err == nil
		return nil
	})
	return found
}

func (b *buntBackend) Read(t *target.Target) (any, error) {
	key, err := b.key(t)
	if err != nil {
		return nil, err
	}
	var raw string
	err = b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err != nil {
		return nil, cmn.TargetDoesNotExist(t.String())
	}
	var data any
	if err := buntJSON.UnmarshalFromString(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *buntBackend) Write(t *target.Target, data any) error {
	key, err := b.key(t)
	if err != nil {
		return err
	}
	encoded, err := buntJSON.MarshalToString(data)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, encoded, nil)
		return err
	})
}

func (b *buntBackend) Remove(t *target.Target) error {
	key, err := b.key(t)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		if err == buntdb.ErrNotFound {
			return cmn.TargetDoesNotExist(t.String())
		}
		return err
	})
}

func (b *buntBackend) List() ([]*target.Target, error) {
	var out []*target.Target
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(buntSigIndex, func(key, _ string) bool {
			t, err := b.converter.FromPath(key)
			if err != nil {
				return true // skip malformed key, keep ascending
			}
			out = append(out, t)
			return true
		})
	})
	return out, err
}

func (b *buntBackend) Failed() []string { return nil }

func (b *buntBackend) Location(t *target.Target) string {
	key, err := b.key(t)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("bunt:%s", key)
}

func (b *buntBackend) Check(t *target.Target) error {
	_, err := b.key(t)
	return err
}

// NewBunt builds a buntdb-backed Storage at path.
func NewBunt(path string, conv *targetpath.Expr, temporary bool) (*Common, error) {
	b, err := newBuntBackend(path, conv)
	if err != nil {
		return nil, err
	}
	return NewCommon(path, b, temporary), nil
}
