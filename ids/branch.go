package ids

// Branch is a set-like, order-preserving list of string atoms identifying a
// "row" variant of a pipeline run. Duplicate atoms are silently
// deduplicated on concatenation. Empty sorts less than any non-empty value.
type Branch struct {
	base
}

// NewBranch builds a Branch from nil, a string, an int, or a []string of atoms,
// deduplicating atoms while preserving first-seen order.
func NewBranch(v any) (Branch, error) {
	atoms, err := parseAtoms(v)
	if err != nil {
		return Branch{}, err
	}
	if err := validateAtoms(atoms); err != nil {
		return Branch{}, err
	}
	return Branch{newBase(dedup(atoms))}, nil
}

// MustBranch is NewBranch, panicking on error; for use with literal values.
func MustBranch(v any) Branch {
	br, err := NewBranch(v)
	if err != nil {
		panic(err)
	}
	return br
}

// EmptyBranch is the distinguished empty Branch.
var EmptyBranch = Branch{}

func dedup(atoms []string) []string {
	if len(atoms) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(atoms))
	out := make([]string, 0, len(atoms))
	for _, a := range atoms {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// Add concatenates two branches set-like: atoms of b not already present in
// a are appended, preserving order; a+a == a.
func (a Branch) Add(b Branch) Branch {
	if b.IsEmpty() {
		return a
	}
	if a.IsEmpty() {
		return b
	}
	merged := append(append([]string{}, a.atoms...), b.atoms...)
	return Branch{newBase(dedup(merged))}
}

// Crop drops the last n atoms. Returns (EmptyBranch, true) when n == Len(),
// and (_, false) when n > Len().
func (a Branch) Crop(n int) (Branch, bool) {
	if n < 0 {
		panic("ids: crop with negative n")
	}
	if n == 0 {
		return a, true
	}
	if n > a.Len() {
		return Branch{}, false
	}
	if n == a.Len() {
		return EmptyBranch, true
	}
	return Branch{newBase(a.atoms[:a.Len()-n])}, true
}

// Match applies '*' wildcard matching over the dot-joined atom string.
func (a Branch) Match(pattern string) bool {
	joined := ""
	if !a.IsEmpty() {
		joined = a.String()
	}
	return match(joined, pattern, true)
}

// Equal reports atom-wise equality.
func (a Branch) Equal(b Branch) bool {
	return a.Compare(b) == 0
}

// Compare gives a total order: empty Branch is less than any non-empty
// Branch (none_is_greater=False in the original); otherwise lexicographic.
func (a Branch) Compare(b Branch) int {
	if a.IsEmpty() && b.IsEmpty() {
		return 0
	}
	if a.IsEmpty() {
		return -1
	}
	if b.IsEmpty() {
		return 1
	}
	for _, pair := range zipLongest(a.atoms, b.atoms) {
		if pair[0] == pair[1] {
			continue
		}
		if pair[0] < pair[1] {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether a sorts strictly before b.
func (a Branch) Less(b Branch) bool { return a.Compare(b) < 0 }
