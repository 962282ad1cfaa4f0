package soep

import (
	"fmt"
	"strings"
)

// SourceKind is the kind of the raw keys of a RenamingSpec.
type SourceKind int

const (
	// SourceNumeric keys are numeric codes; integers of any width and whole floats match.
	SourceNumeric SourceKind = iota
	// SourceLabel keys are labels, matched exactly, like "[1] Ja".
	SourceLabel
)

func (k SourceKind) String() string {
	switch k {
	case SourceNumeric:
		return "numeric"
	case SourceLabel:
		return "label"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Renaming maps one raw value to one cleaned value.
type Renaming struct {
	Raw   any
	Clean any
}

// Rename is a shortcut to create a Renaming.
func Rename(raw, clean any) Renaming {
	return Renaming{Raw: raw, Clean: clean}
}

// RenamingSpec is an ordered mapping from raw values to cleaned values. The order of the pairs defines the order
// of the resulting categories.
type RenamingSpec struct {
	Source SourceKind
	Pairs  []Renaming

	lookup map[any]any
}

// NewRenamingSpec validates the pairs and returns a RenamingSpec. Raw keys must match the source kind and must
// not repeat; several raw values may map to the same cleaned value.
func NewRenamingSpec(source SourceKind, pairs ...Renaming) (*RenamingSpec, error) {
	ret := &RenamingSpec{
		Source: source,
		Pairs:  pairs,
		lookup: make(map[any]any, len(pairs)),
	}
	for _, p := range pairs {
		key, ok := ret.rawKey(p.Raw)
		if !ok {
			return nil, fmt.Errorf("renaming key %#v is not a %s value", p.Raw, source)
		}
		if _, exists := ret.lookup[key]; exists {
			return nil, fmt.Errorf("duplicate renaming key %#v", p.Raw)
		}
		if p.Clean == nil {
			return nil, fmt.Errorf("renaming key %#v has a nil cleaned value", p.Raw)
		}
		ret.lookup[key] = p.Clean
	}
	return ret, nil
}

// MustRenamingSpec is NewRenamingSpec that panics on error. Meant for renamings declared as package variables.
func MustRenamingSpec(source SourceKind, pairs ...Renaming) *RenamingSpec {
	ret, err := NewRenamingSpec(source, pairs...)
	if err != nil {
		panic(err)
	}
	return ret
}

// Get returns the cleaned value for a raw value.
func (r *RenamingSpec) Get(raw any) (any, bool) {
	key, ok := r.rawKey(raw)
	if !ok {
		return nil, false
	}
	v, ok := r.lookup[key]
	return v, ok
}

// CleanValues returns the distinct cleaned values in order of first appearance.
func (r *RenamingSpec) CleanValues() []any {
	var ret []any
	seen := map[any]bool{}
	for _, p := range r.Pairs {
		key := normalizeValue(p.Clean)
		if seen[key] {
			continue
		}
		seen[key] = true
		ret = append(ret, p.Clean)
	}
	return ret
}

func (r *RenamingSpec) rawKey(raw any) (any, bool) {
	switch r.Source {
	case SourceNumeric:
		if i, ok := toInt64(raw); ok {
			return i, true
		}
		if f, ok := toFloat64(raw); ok {
			return f, true
		}
		return nil, false
	case SourceLabel:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		return strings.TrimSpace(s), true
	default:
		return nil, false
	}
}
