// Package targetpath implements the bidirectional Target <-> relative path
// converter described in spec.md 4.1, ported from
// original_source/machines/targetpath.py's TargetToPathExpr/IdToPathExpr.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package targetpath

import (
	"fmt"
	"regexp"
	"strings"
)

const idPlaceholder = "<id>"

var defaultAtomRe = regexp.MustCompile(`^[A-Za-z0-9_+:\-()]+$`)

// idExpr compiles one sub-template (the "index" or "branch" template) into
// a head section, an optional single generative group, and a tail section.
// Mirrors IdToPathExpr's prefix/head_vals/gen_str/gen_vals/tail_vals split.
type idExpr struct {
	raw          string
	headLiterals []string // len == headCount+1
	headCount    int
	hasGen       bool
	genLiterals  [2]string // literal before/after the <id> inside the group
	tailLiterals []string  // len == tailCount+1
	tailCount    int
}

func compileIDExpr(tmpl string) (*idExpr, error) {
	open := strings.Index(tmpl, "[")
	var before, group, after string
	hasGen := false
	if open >= 0 {
		close := strings.Index(tmpl[open:], "]")
		if close < 0 {
			return nil, fmt.Errorf("targetpath: unbalanced '[' in template %q", tmpl)
		}
		close += open
		if strings.Contains(tmpl[close+1:], "[") {
			return nil, fmt.Errorf("targetpath: at most one generative group allowed in %q", tmpl)
		}
		before, group, after = tmpl[:open], tmpl[open+1:close], tmpl[close+1:]
		hasGen = true
	} else {
		before, group, after = tmpl, "", ""
	}

	headLiterals, headCount := splitPlaceholder(before)
	var genLiterals [2]string
	if hasGen {
		lits, count := splitPlaceholder(group)
		if count != 1 {
			return nil, fmt.Errorf("targetpath: generative group must contain exactly one %s, got %q", idPlaceholder, group)
		}
		genLiterals = [2]string{lits[0], lits[1]}
	}
	tailLiterals, tailCount := splitPlaceholder(after)

	if headCount == 0 && !hasGen && tailCount == 0 {
		return nil, fmt.Errorf("targetpath: template %q must contain at least one %s", tmpl, idPlaceholder)
	}

	return &idExpr{
		raw: tmpl, headLiterals: headLiterals, headCount: headCount,
		hasGen: hasGen, genLiterals: genLiterals,
		tailLiterals: tailLiterals, tailCount: tailCount,
	}, nil
}

func splitPlaceholder(s string) (literals []string, count int) {
	parts := strings.Split(s, idPlaceholder)
	return parts, len(parts) - 1
}

// minArity returns the minimum atom count; fixedArity reports whether the
// template has no generative group and so takes exactly headCount atoms.
func (e *idExpr) minArity() int  { return e.headCount + e.tailCount }
func (e *idExpr) fixedArity() bool { return !e.hasGen }

func (e *idExpr) toPath(atoms []string) (string, error) {
	if e.fixedArity() {
		if len(atoms) != e.headCount {
			return "", fmt.Errorf("targetpath: template %q expects exactly %d atoms, got %d", e.raw, e.headCount, len(atoms))
		}
	} else if len(atoms) < e.minArity() {
		return "", fmt.Errorf("targetpath: template %q expects at least %d atoms, got %d", e.raw, e.minArity(), len(atoms))
	}

	var b strings.Builder
	idx := 0
	for i := 0; i < e.headCount; i++ {
		b.WriteString(e.headLiterals[i])
		if err := writeAtom(&b, atoms[idx]); err != nil {
			return "", err
		}
		idx++
	}
	b.WriteString(e.headLiterals[e.headCount])

	if e.hasGen {
		genCount := len(atoms) - e.headCount - e.tailCount
		for i := 0; i < genCount; i++ {
			b.WriteString(e.genLiterals[0])
			if err := writeAtom(&b, atoms[idx]); err != nil {
				return "", err
			}
			idx++
			b.WriteString(e.genLiterals[1])
		}
	}

	for i := 0; i < e.tailCount; i++ {
		b.WriteString(e.tailLiterals[i])
		if err := writeAtom(&b, atoms[idx]); err != nil {
			return "", err
		}
		idx++
	}
	b.WriteString(e.tailLiterals[e.tailCount])
	return b.String(), nil
}

func writeAtom(b *strings.Builder, atom string) error {
	if !defaultAtomRe.MatchString(atom) {
		return fmt.Errorf("targetpath: invalid atom %q", atom)
	}
	b.WriteString(atom)
	return nil
}

func (e *idExpr) fromPath(s string) ([]string, error) {
	rest := s
	var atoms []string

	for i := 0; i < e.headCount; i++ {
		var err error
		rest, err = stripLiteral(rest, e.headLiterals[i])
		if err != nil {
			return nil, err
		}
		var atom string
		atom, rest, err = consumeUntil(rest, nextBoundary(e, i, false))
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)
	}
	var err error
	rest, err = stripLiteral(rest, e.headLiterals[e.headCount])
	if err != nil {
		return nil, err
	}

	if e.hasGen {
		for {
			if e.tailCount == 0 && rest == "" {
				break
			}
			if e.genLiterals[0] != "" && !strings.HasPrefix(rest, e.genLiterals[0]) {
				break
			}
			trial := strings.TrimPrefix(rest, e.genLiterals[0])
			atom, rem, err := consumeUntil(trial, e.genLiterals[1])
			if err != nil {
				break
			}
			if e.genLiterals[1] != "" {
				var err2 error
				rem, err2 = stripLiteral(rem, e.genLiterals[1])
				if err2 != nil {
					break
				}
			}
			atoms = append(atoms, atom)
			rest = rem
		}
	}

	for i := 0; i < e.tailCount; i++ {
		rest, err = stripLiteral(rest, e.tailLiterals[i])
		if err != nil {
			return nil, err
		}
		var atom string
		atom, rest, err = consumeUntil(rest, nextBoundary(e, i, true))
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)
	}
	rest, err = stripLiteral(rest, e.tailLiterals[e.tailCount])
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("targetpath: trailing content %q left unparsed by template %q", rest, e.raw)
	}
	return atoms, nil
}

// nextBoundary gives the literal text expected right after the atom being
// consumed, used to bound greedy atom matching when the next literal is
// non-empty.
func nextBoundary(e *idExpr, i int, tail bool) string {
	if !tail {
		if i+1 <= e.headCount {
			return e.headLiterals[i+1]
		}
		return ""
	}
	if i+1 <= e.tailCount {
		return e.tailLiterals[i+1]
	}
	return ""
}

func stripLiteral(s, lit string) (string, error) {
	if !strings.HasPrefix(s, lit) {
		return "", fmt.Errorf("targetpath: expected literal %q in %q", lit, s)
	}
	return s[len(lit):], nil
}

// consumeUntil extracts the longest atom-charset prefix of s, stopping
// before the given terminator literal when it is non-empty (found via
// substring search), or consuming a maximal run otherwise.
func consumeUntil(s, terminator string) (atom, rest string, err error) {
	var candidate string
	if terminator == "" {
		candidate = greedyAtom(s)
		rest = s[len(candidate):]
	} else {
		i := strings.Index(s, terminator)
		if i < 0 {
			candidate = greedyAtom(s)
			rest = s[len(candidate):]
		} else {
			candidate = s[:i]
			rest = s[i:]
		}
	}
	if candidate == "" || !defaultAtomRe.MatchString(candidate) {
		return "", "", fmt.Errorf("targetpath: could not extract a valid atom from %q", s)
	}
	return candidate, rest, nil
}

func greedyAtom(s string) string {
	i := 0
	for i < len(s) && isAtomByte(s[i]) {
		i++
	}
	return s[:i]
}

func isAtomByte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '+' || c == ':' || c == '-' || c == '(' || c == ')':
		return true
	}
	return false
}
