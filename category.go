package soep

import (
	"cmp"
	"fmt"
	"slices"

	gocmp "github.com/google/go-cmp/cmp"
)

// CategoryKind is the type of the values of a CategorySet.
type CategoryKind int

const (
	CategoryBool CategoryKind = iota
	CategoryInt
	CategoryString
)

func (k CategoryKind) String() string {
	switch k {
	case CategoryBool:
		return "bool"
	case CategoryInt:
		return "int64"
	case CategoryString:
		return "str"
	default:
		return fmt.Sprintf("CategoryKind(%d)", int(k))
	}
}

// ParseCategoryKind parses the categories dtype of a metadata record.
func ParseCategoryKind(s string) (CategoryKind, error) {
	switch s {
	case "bool", "boolean":
		return CategoryBool, nil
	case "int", "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64":
		return CategoryInt, nil
	case "str", "string", "object":
		return CategoryString, nil
	default:
		return 0, fmt.Errorf("unknown categories dtype '%s'", s)
	}
}

// CategorySet is an ordered, deduplicated list of cleaned category values. Values are stored as bool, int64 or
// string, depending on the kind.
type CategorySet struct {
	kind    CategoryKind
	values  []any
	ordered bool
}

// NewCategorySet creates a category set keeping the order of the passed values. Duplicates are dropped, integer
// values of any width are stored as int64.
func NewCategorySet(kind CategoryKind, ordered bool, values ...any) (*CategorySet, error) {
	ret := &CategorySet{
		kind:    kind,
		ordered: ordered,
		values:  make([]any, 0, len(values)),
	}
	seen := map[any]bool{}
	for _, v := range values {
		nv, err := normalizeCategory(kind, v)
		if err != nil {
			return nil, err
		}
		if seen[nv] {
			continue
		}
		seen[nv] = true
		ret.values = append(ret.values, nv)
	}
	return ret, nil
}

// SortedCategorySet creates a category set with the values sorted: ascending for integers, lexicographic for
// strings, and true before false for booleans.
func SortedCategorySet(kind CategoryKind, ordered bool, values ...any) (*CategorySet, error) {
	ret, err := NewCategorySet(kind, ordered, values...)
	if err != nil {
		return nil, err
	}
	ret.sort()
	return ret, nil
}

// BoolCategories returns the category set [true, false].
func BoolCategories(ordered bool) *CategorySet {
	return &CategorySet{
		kind:    CategoryBool,
		ordered: ordered,
		values:  []any{true, false},
	}
}

func (s *CategorySet) Kind() CategoryKind {
	return s.kind
}

func (s *CategorySet) Ordered() bool {
	return s.ordered
}

// Values returns a copy of the category values, in order.
func (s *CategorySet) Values() []any {
	return slices.Clone(s.values)
}

func (s *CategorySet) Len() int {
	return len(s.values)
}

// Index returns the position of the value in the set, or -1.
func (s *CategorySet) Index(v any) int {
	nv, err := normalizeCategory(s.kind, v)
	if err != nil {
		return -1
	}
	return slices.Index(s.values, nv)
}

// Contains returns whether the value is a category.
func (s *CategorySet) Contains(v any) bool {
	return s.Index(v) >= 0
}

// Equal returns whether both sets have the same kind, ordering flag and values in the same order.
// Two nil sets are equal.
func (s *CategorySet) Equal(other *CategorySet) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	return s.kind == other.kind && s.ordered == other.ordered && gocmp.Equal(s.values, other.values)
}

// Union returns the union of both sets, re-sorted. It is used to reconcile category sets that were derived
// separately, for example from two chunks of the same file or from two tables reporting the same variable.
// The result is ordered if either input is ordered.
func (s *CategorySet) Union(other *CategorySet) (*CategorySet, error) {
	if other == nil {
		return s, nil
	}
	if s == nil {
		return other, nil
	}
	if s.kind != other.kind {
		return nil, fmt.Errorf("cannot union categories of kind %s and %s", s.kind, other.kind)
	}
	return SortedCategorySet(s.kind, s.ordered || other.ordered, slices.Concat(s.values, other.values)...)
}

func (s *CategorySet) String() string {
	return fmt.Sprintf("%v", s.values)
}

func (s *CategorySet) sort() {
	switch s.kind {
	case CategoryBool:
		// true first
		slices.SortStableFunc(s.values, func(a, b any) int {
			return cmp.Compare(boolRank(a.(bool)), boolRank(b.(bool)))
		})
	case CategoryInt:
		slices.SortFunc(s.values, func(a, b any) int {
			return cmp.Compare(a.(int64), b.(int64))
		})
	case CategoryString:
		slices.SortFunc(s.values, func(a, b any) int {
			return cmp.Compare(a.(string), b.(string))
		})
	}
}

func boolRank(b bool) int {
	if b {
		return 0
	}
	return 1
}

func normalizeCategory(kind CategoryKind, v any) (any, error) {
	switch kind {
	case CategoryBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case CategoryInt:
		if i, ok := toInt64(v); ok {
			return i, nil
		}
	case CategoryString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %#v is not a valid %s category", ErrValueKind, v, kind)
}
