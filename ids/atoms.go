// Package ids implements the engine's identifier model: Index and Branch
// atom lists plus the (Index, Branch) Identifier pair.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package ids

import (
	"regexp"
	"strconv"
	"strings"
)

// atomRe matches a single valid Index/Branch atom.
var atomRe = regexp.MustCompile(`^[A-Za-z0-9_+:\-()]+$`)

// NullID is the external string representation of an empty id component.
const NullID = "_"

// base is the shared representation behind Index and Branch: an ordered
// list of string atoms, plus the distinguished "empty" state (nil slice).
// Index and Branch differ only in how they order against "empty" and
// whether concatenation deduplicates - see index.go and branch.go.
type base struct {
	atoms []string
}

func newBase(atoms []string) base {
	if len(atoms) == 0 {
		return base{}
	}
	cp := make([]string, len(atoms))
	copy(cp, atoms)
	return base{atoms: cp}
}

// parseAtoms normalizes a variety of constructor inputs (mirrors IdBase.__init__
// in the original: accepts nil, string, int-like, or a sequence of atoms).
func parseAtoms(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" || val == NullID {
			return nil, nil
		}
		return []string{val}, nil
	case []string:
		out := make([]string, 0, len(val))
		for _, a := range val {
			if a == "" {
				continue
			}
			out = append(out, a)
		}
		return out, nil
	case int:
		return []string{strconv.Itoa(val)}, nil
	}
	return nil, errInvalidAtoms
}

func validateAtoms(atoms []string) error {
	for _, a := range atoms {
		if !atomRe.MatchString(a) {
			return errInvalidAtom(a)
		}
	}
	return nil
}

// IsEmpty reports whether the id component carries no atoms.
func (b base) IsEmpty() bool { return len(b.atoms) == 0 }

// Len returns the number of atoms.
func (b base) Len() int { return len(b.atoms) }

// Atoms returns a defensive copy of the underlying atom list.
func (b base) Atoms() []string {
	if len(b.atoms) == 0 {
		return nil
	}
	cp := make([]string, len(b.atoms))
	copy(cp, b.atoms)
	return cp
}

// String renders atoms in dot-joined external form, or NullID when empty.
func (b base) String() string {
	if b.IsEmpty() {
		return NullID
	}
	return strings.Join(b.atoms, ".")
}

// match implements '*' wildcard matching against the joined atom string,
// per spec.md 4.1 / original target.py IdBase.match.
func match(joined, pattern string, matchNull bool) bool {
	if pattern == "" {
		return matchNull && joined == ""
	}
	re := wildcardRe(pattern)
	return re.MatchString(joined)
}

func wildcardRe(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// zipLongest pairs atoms of a and b for ordering comparisons, filling the
// shorter list with "" (mirrors itertools.zip_longest(fillvalue="")).
func zipLongest(a, b []string) [][2]string {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([][2]string, n)
	for i := 0; i < n; i++ {
		var av, bv string
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = [2]string{av, bv}
	}
	return out
}
