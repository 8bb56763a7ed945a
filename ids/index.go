package ids

// Index is an ordered list of string atoms identifying a "column" of a
// pipeline run. Duplicate atoms are allowed. Empty sorts greater than any
// non-empty value - an index-less task runs last.
type Index struct {
	base
}

// NewIndex builds an Index from nil, a string, an int, or a []string of atoms.
func NewIndex(v any) (Index, error) {
	atoms, err := parseAtoms(v)
	if err != nil {
		return Index{}, err
	}
	if err := validateAtoms(atoms); err != nil {
		return Index{}, err
	}
	return Index{newBase(atoms)}, nil
}

// MustIndex is NewIndex, panicking on error; for use with literal values.
func MustIndex(v any) Index {
	idx, err := NewIndex(v)
	if err != nil {
		panic(err)
	}
	return idx
}

// EmptyIndex is the distinguished empty Index.
var EmptyIndex = Index{}

// Add concatenates two indices; duplicates are kept (unlike Branch.Add).
func (a Index) Add(b Index) Index {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	return Index{newBase(append(append([]string{}, a.atoms...), b.atoms...))}
}

// Crop drops the last n atoms. Returns (EmptyIndex, true) when n == Len(),
// and (_, false) when n > Len() (mirrors crop() returning None).
func (a Index) Crop(n int) (Index, bool) {
	if n < 0 {
		panic("ids: crop with negative n")
	}
	if n == 0 {
		return a, true
	}
	if n > a.Len() {
		return Index{}, false
	}
	if n == a.Len() {
		return EmptyIndex, true
	}
	return Index{newBase(a.atoms[:a.Len()-n])}, true
}

// Match applies '*' wildcard matching over the dot-joined atom string.
func (a Index) Match(pattern string) bool {
	return match(a.joined(), pattern, true)
}

func (a Index) joined() string {
	if a.IsEmpty() {
		return ""
	}
	return a.String()
}

// Equal reports atom-wise equality.
func (a Index) Equal(b Index) bool {
	return a.Compare(b) == 0
}

// Compare gives a total order: empty Index is greater than any non-empty
// Index; otherwise lexicographic atom-by-atom ("" padding trails short lists).
func (a Index) Compare(b Index) int {
	if a.IsEmpty() && b.IsEmpty() {
		return 0
	}
	if a.IsEmpty() {
		return 1
	}
	if b.IsEmpty() {
		return -1
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
func (a Index) Less(b Index) bool { return a.Compare(b) < 0 }
