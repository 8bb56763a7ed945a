package targetpath

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/target"
)

// Expr is the production Target <-> path converter, ported from
// TargetToPathExpr in the original targetpath.py. It is configured by three
// template strings (struct, index, branch) and two literal "missing" tokens
// (spec.md 4.1).
type Expr struct {
	StructTmpl string // e.g. "<index>/<name><branch>"
	IndexTmpl  string // e.g. "<id>[.<id>]"
	BranchTmpl string // e.g. "~<id>[.<id>]"
	NoIndex    string // literal substituted when index is empty, e.g. "_"
	NoBranch   string // literal substituted when branch is empty, e.g. ""

	Name          string // pin: if set, converter is dedicated to this target name
	DefaultBranch ids.Branch
	hasDefault    bool

	indexExpr  *idExpr
	branchExpr *idExpr
	structRe   *regexp.Regexp
	hasName    bool
}

// NewExpr compiles the three templates. Default matches spec.md 6's
// example layout: "<root>/<index-path>/<name>[~<branch-path>]/".
func NewExpr(structTmpl, indexTmpl, branchTmpl, noIndex, noBranch string) (*Expr, error) {
	e := &Expr{StructTmpl: structTmpl, IndexTmpl: indexTmpl, BranchTmpl: branchTmpl, NoIndex: noIndex, NoBranch: noBranch}
	var err error
	e.indexExpr, err = compileIDExpr(indexTmpl)
	if err != nil {
		return nil, err
	}
	e.branchExpr, err = compileIDExpr(branchTmpl)
	if err != nil {
		return nil, err
	}
	if err := e.compileStruct(); err != nil {
		return nil, err
	}
	return e, nil
}

// Default builds the converter for the layout documented in spec.md 6:
// <root>/<index-path>/<name>[~<branch-path>]/
func Default() *Expr {
	e, err := NewExpr("<index>/<name><branch>", "<id>[.<id>]", "~<id>[.<id>]", "_", "")
	if err != nil {
		panic(err) // defaults are always well-formed
	}
	return e
}

// TargetDir builds a converter dedicated to a single target name with no
// <name> segment in its layout, matching original_source's TARGETDIR_EXPR
// preset for a directory reserved to one target (the name is already
// implied by picking that storage, unlike Default's shared workdir layout).
func TargetDir(name string) (*Expr, error) {
	e := &Expr{StructTmpl: "<index><branch>", IndexTmpl: "<id>[.<id>]", BranchTmpl: "~<id>[.<id>]", NoIndex: "_", NoBranch: "", Name: name}
	var err error
	e.indexExpr, err = compileIDExpr(e.IndexTmpl)
	if err != nil {
		return nil, err
	}
	e.branchExpr, err = compileIDExpr(e.BranchTmpl)
	if err != nil {
		return nil, err
	}
	if err := e.compileStruct(); err != nil {
		return nil, err
	}
	return e, nil
}

// WithName pins the converter to a single target name; <name> may then be
// omitted from the struct template.
func (e *Expr) WithName(name string) *Expr {
	cp := *e
	cp.Name = name
	cp.compileStruct()
	return &cp
}

// WithDefaultBranch pins a branch that is always used for writes and
// omitted from the path; reads reconstruct it when the branch segment is
// absent.
func (e *Expr) WithDefaultBranch(b ids.Branch) *Expr {
	cp := *e
	cp.DefaultBranch = b
	cp.hasDefault = true
	return &cp
}

const (
	idxTok    = "<index>"
	nameTok   = "<name>"
	branchTok = "<branch>"
)

func (e *Expr) compileStruct() error {
	tmpl := e.StructTmpl
	e.hasName = strings.Contains(tmpl, nameTok)
	if !e.hasName && e.Name == "" {
		return fmt.Errorf("targetpath: struct template %q must contain %s unless the converter is bound to a single name", tmpl, nameTok)
	}
	if !strings.Contains(tmpl, idxTok) || !strings.Contains(tmpl, branchTok) {
		return fmt.Errorf("targetpath: struct template %q must contain %s and %s", tmpl, idxTok, branchTok)
	}

	// Build a matching regex with named, non-greedy capture groups.
	pattern := regexp.QuoteMeta(tmpl)
	pattern = strings.ReplaceAll(pattern, regexp.QuoteMeta(idxTok), `(?P<index>.*?)`)
	pattern = strings.ReplaceAll(pattern, regexp.QuoteMeta(branchTok), `(?P<branch>.*?)`)
	if e.hasName {
		pattern = strings.ReplaceAll(pattern, regexp.QuoteMeta(nameTok), `(?P<name>[\w]+)`)
	}
	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return err
	}
	e.structRe = re
	return nil
}

// ToPath renders t's storage-relative path.
func (e *Expr) ToPath(t *target.Target) (string, error) {
	if e.Name != "" && t.Name != e.Name {
		return "", fmt.Errorf("targetpath: converter is dedicated to name %q, got %q", e.Name, t.Name)
	}

	indexStr := e.NoIndex
	if !t.Index.IsEmpty() {
		s, err := e.indexExpr.toPath(t.Index.Atoms())
		if err != nil {
			return "", err
		}
		indexStr = s
	}

	branch := t.Branch
	branchStr := e.NoBranch
	if e.hasDefault && branch.Equal(e.DefaultBranch) {
		// pinned default branch is omitted from the path
	} else if !branch.IsEmpty() {
		s, err := e.branchExpr.toPath(branch.Atoms())
		if err != nil {
			return "", err
		}
		branchStr = s
	}

	out := e.StructTmpl
	out = strings.Replace(out, idxTok, indexStr, 1)
	out = strings.Replace(out, branchTok, branchStr, 1)
	if e.hasName {
		out = strings.Replace(out, nameTok, t.Name, 1)
	}
	return out, nil
}

// FromPath reconstructs a Target from a storage-relative path.
func (e *Expr) FromPath(path string) (*target.Target, error) {
	m := e.structRe.FindStringSubmatch(path)
	if m == nil {
		return nil, fmt.Errorf("targetpath: path %q does not match template %q", path, e.StructTmpl)
	}
	groups := map[string]string{}
	for i, name := range e.structRe.SubexpNames() {
		if name != "" {
			groups[name] = m[i]
		}
	}

	name := e.Name
	if e.hasName {
		name = groups["name"]
	}

	var index ids.Index
	if groups["index"] == e.NoIndex {
		index = ids.EmptyIndex
	} else {
		atoms, err := e.indexExpr.fromPath(groups["index"])
		if err != nil {
			return nil, err
		}
		index, err = ids.NewIndex(atoms)
		if err != nil {
			return nil, err
		}
	}

	var branch ids.Branch
	branchRaw := groups["branch"]
	if branchRaw == "" || branchRaw == e.NoBranch {
		if e.hasDefault {
			branch = e.DefaultBranch
		} else {
			branch = ids.EmptyBranch
		}
	} else {
		atoms, err := e.branchExpr.fromPath(branchRaw)
		if err != nil {
			return nil, err
		}
		branch, err = ids.NewBranch(atoms)
		if err != nil {
			return nil, err
		}
	}

	return target.New(name, index, branch)
}

// Check validates the round-trip law for t (spec.md 8): from_path(to_path(t)) == t.
func (e *Expr) Check(t *target.Target) error {
	p, err := e.ToPath(t)
	if err != nil {
		return err
	}
	back, err := e.FromPath(p)
	if err != nil {
		return err
	}
	if !back.Equal(t) {
		return fmt.Errorf("targetpath: round-trip mismatch: %s != %s", back, t)
	}
	return nil
}
