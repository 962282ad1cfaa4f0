package soep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// NumericKind selects integer or floating point output for ToNumeric.
type NumericKind int

const (
	NumericInt NumericKind = iota
	NumericFloat
)

// ToNumeric converts a raw column to the narrowest numeric type, using the default settings.
func ToNumeric(c *Column, kind NumericKind) (*Column, error) {
	return defaultCodec.ToNumeric(c, kind)
}

// ToBoolCategorical converts a raw column to a boolean categorical column, using the default settings.
func ToBoolCategorical(c *Column, renaming *RenamingSpec) (*Column, error) {
	return defaultCodec.ToBoolCategorical(c, renaming)
}

// ToIntCategorical converts a raw column to an integer categorical column, using the default settings.
func ToIntCategorical(c *Column, renaming *RenamingSpec, ordered bool) (*Column, error) {
	return defaultCodec.ToIntCategorical(c, renaming, ordered)
}

// ToStringCategorical converts a raw column to a string categorical column, using the default settings.
func ToStringCategorical(c *Column, renaming *RenamingSpec, dropPrefixTokens int, ordered bool) (*Column, error) {
	return defaultCodec.ToStringCategorical(c, renaming, dropPrefixTokens, ordered)
}

// CombineFirstCategorical coalesces two categorical columns, using the default settings.
func CombineFirstCategorical(primary, secondary *Column, ordered bool) (*Column, error) {
	return defaultCodec.CombineFirstCategorical(primary, secondary, ordered)
}

// ToNumeric strips sentinels and casts the column to the narrowest type that holds all remaining values.
// Integers become unsigned if no value is negative, otherwise the narrowest signed type covering the range.
// Floats become float32 only if every value round-trips and none is missing.
func (cd *Codec) ToNumeric(c *Column, kind NumericKind) (*Column, error) {
	s := cd.StripSentinels(c)

	switch kind {
	case NumericInt:
		vals := make([]int64, s.length)
		for i := 0; i < s.length; i++ {
			if s.IsMissing(i) {
				continue
			}
			v, ok := parseInt(s.Value(i))
			if !ok {
				return nil, &ValueKindError{Column: c.Name, Value: s.Value(i), Message: "not an integer"}
			}
			vals[i] = v
		}
		return narrowInts(c.Name, vals, s.missing), nil
	case NumericFloat:
		vals := make([]float64, s.length)
		for i := 0; i < s.length; i++ {
			if s.IsMissing(i) {
				continue
			}
			v, ok := parseFloat(s.Value(i))
			if !ok {
				return nil, &ValueKindError{Column: c.Name, Value: s.Value(i), Message: "not a number"}
			}
			vals[i] = v
		}
		return cd.narrowFloats(c.Name, vals, s.missing), nil
	default:
		return nil, fmt.Errorf("unknown numeric kind %d", kind)
	}
}

// ToBoolCategorical strips sentinels and renames the remaining values to booleans. The categories are always
// [true, false]. A present value without a renaming is an error.
func (cd *Codec) ToBoolCategorical(c *Column, renaming *RenamingSpec) (*Column, error) {
	if renaming == nil {
		return nil, fmt.Errorf("column '%s': boolean conversion requires a renaming", c.Name)
	}
	values, err := cd.renameValues(c, renaming)
	if err != nil {
		return nil, err
	}
	return buildCategorical(c.Name, values, BoolCategories(false))
}

// ToIntCategorical converts the column to integer categories.
// With a renaming, the categories are the renamed values in order of first appearance in the renaming.
// Without, sentinels are stripped and the categories are the distinct values, ascending.
func (cd *Codec) ToIntCategorical(c *Column, renaming *RenamingSpec, ordered bool) (*Column, error) {
	if renaming != nil {
		values, err := cd.renameValues(c, renaming)
		if err != nil {
			return nil, err
		}
		cats, err := NewCategorySet(CategoryInt, ordered, renaming.CleanValues()...)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %w", c.Name, err)
		}
		return buildCategorical(c.Name, values, cats)
	}

	num, err := cd.ToNumeric(c, NumericInt)
	if err != nil {
		return nil, err
	}
	cats, err := SortedCategorySet(CategoryInt, ordered, presentValues(num)...)
	if err != nil {
		return nil, fmt.Errorf("column '%s': %w", c.Name, err)
	}
	return num.withCategories(cats), nil
}

// ToStringCategorical converts the column to string categories.
// With a renaming, the categories are the renamed values in order of first appearance in the renaming.
// Without, sentinels are stripped and the first dropPrefixTokens space-delimited tokens are removed from each
// label ("[3] Upper secondary" becomes "Upper secondary"); the categories are the distinct cleaned labels, sorted.
// A negative dropPrefixTokens uses Config.DefaultPrefixTokens.
func (cd *Codec) ToStringCategorical(c *Column, renaming *RenamingSpec, dropPrefixTokens int, ordered bool) (*Column, error) {
	if renaming != nil {
		values, err := cd.renameValues(c, renaming)
		if err != nil {
			return nil, err
		}
		cats, err := NewCategorySet(CategoryString, ordered, renaming.CleanValues()...)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %w", c.Name, err)
		}
		return buildCategorical(c.Name, values, cats)
	}

	if dropPrefixTokens < 0 {
		dropPrefixTokens = cd.cfg.DefaultPrefixTokens
	}

	s := cd.StripSentinels(c)
	values := make([]any, s.length)
	cache := map[any]string{}
	for i := 0; i < s.length; i++ {
		if s.IsMissing(i) {
			continue
		}
		v := s.Value(i)
		key := normalizeValue(v)
		label, ok := cache[key]
		if !ok {
			switch vv := v.(type) {
			case string:
				label = dropTokens(vv, dropPrefixTokens)
			case bool:
				return nil, &ValueKindError{Column: c.Name, Value: v, Message: "not a label"}
			default:
				label = fmt.Sprint(v)
			}
			cache[key] = label
		}
		if label == "" {
			continue
		}
		values[i] = label
	}

	cats, err := SortedCategorySet(CategoryString, ordered, nonNil(values)...)
	if err != nil {
		return nil, fmt.Errorf("column '%s': %w", c.Name, err)
	}
	return buildCategorical(c.Name, values, cats)
}

// CombineFirstCategorical takes each row from primary if it is present, otherwise from secondary. The categories
// are recomputed from the present values of both inputs: ascending for integers, lexicographic for strings.
func (cd *Codec) CombineFirstCategorical(primary, secondary *Column, ordered bool) (*Column, error) {
	if primary.length != secondary.length {
		return nil, fmt.Errorf("cannot combine '%s' (%d rows) with '%s' (%d rows)",
			primary.Name, primary.length, secondary.Name, secondary.length)
	}
	if !primary.IsCategorical() || !secondary.IsCategorical() {
		return nil, fmt.Errorf("cannot combine '%s' with '%s': both columns must be categorical", primary.Name, secondary.Name)
	}
	kind := primary.categories.Kind()
	if secondary.categories.Kind() != kind {
		return nil, fmt.Errorf("cannot combine '%s' (%s) with '%s' (%s)", primary.Name, kind,
			secondary.Name, secondary.categories.Kind())
	}

	values := make([]any, primary.length)
	for i := range values {
		if !primary.IsMissing(i) {
			values[i] = primary.Value(i)
		} else if !secondary.IsMissing(i) {
			values[i] = secondary.Value(i)
		}
	}

	primaryCats, err := SortedCategorySet(kind, ordered, presentValues(primary)...)
	if err != nil {
		return nil, err
	}
	secondaryCats, err := SortedCategorySet(kind, ordered, presentValues(secondary)...)
	if err != nil {
		return nil, err
	}
	cats, err := primaryCats.Union(secondaryCats)
	if err != nil {
		return nil, err
	}
	return buildCategorical(primary.Name, values, cats)
}

// renameValues strips sentinels and maps every remaining value through the renaming. nil marks missing values.
func (cd *Codec) renameValues(c *Column, renaming *RenamingSpec) ([]any, error) {
	s := cd.StripSentinels(c)
	values := make([]any, s.length)
	for i := 0; i < s.length; i++ {
		if s.IsMissing(i) {
			continue
		}
		v := s.Value(i)
		clean, ok := renaming.Get(v)
		if !ok {
			return nil, &ValueKindError{Column: c.Name, Value: v, Message: "value has no renaming"}
		}
		values[i] = clean
	}
	return values, nil
}

func (cd *Codec) narrowFloats(name string, vals []float64, missing []bool) *Column {
	narrow := cd.cfg.NarrowFloats && missing == nil
	if narrow {
		for _, v := range vals {
			if float64(float32(v)) != v {
				narrow = false
				break
			}
		}
	}
	if narrow {
		f32 := make([]float32, len(vals))
		for i, v := range vals {
			f32[i] = float32(v)
		}
		return &Column{Name: name, data: f32, length: len(vals)}
	}
	return &Column{Name: name, data: vals, missing: missing, length: len(vals)}
}

// narrowInts stores the values in the narrowest integer type covering the range of the present values.
// A column without present values is stored as uint8.
func narrowInts(name string, vals []int64, missing []bool) *Column {
	var lo, hi int64
	first := true
	for i, v := range vals {
		if missing != nil && missing[i] {
			continue
		}
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var data any
	switch {
	case lo >= 0 && hi <= math.MaxUint8:
		data = convertInts[uint8](vals)
	case lo >= 0 && hi <= math.MaxUint16:
		data = convertInts[uint16](vals)
	case lo >= 0 && hi <= math.MaxUint32:
		data = convertInts[uint32](vals)
	case lo >= 0:
		data = convertInts[uint64](vals)
	case lo >= math.MinInt8 && hi <= math.MaxInt8:
		data = convertInts[int8](vals)
	case lo >= math.MinInt16 && hi <= math.MaxInt16:
		data = convertInts[int16](vals)
	case lo >= math.MinInt32 && hi <= math.MaxInt32:
		data = convertInts[int32](vals)
	default:
		data = vals
	}
	return &Column{Name: name, data: data, missing: missing, length: len(vals)}
}

func convertInts[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64](vals []int64) []T {
	ret := make([]T, len(vals))
	for i, v := range vals {
		ret[i] = T(v)
	}
	return ret
}

// buildCategorical creates a typed categorical column from boxed values, nil being missing.
func buildCategorical(name string, values []any, cats *CategorySet) (*Column, error) {
	missing := missingMask(values)

	var c *Column
	switch cats.Kind() {
	case CategoryBool:
		data := make([]bool, len(values))
		for i, v := range values {
			if v == nil {
				continue
			}
			b, ok := v.(bool)
			if !ok {
				return nil, &ValueKindError{Column: name, Value: v, Message: "not a boolean"}
			}
			data[i] = b
		}
		c = &Column{Name: name, data: data, missing: missing, length: len(values)}
	case CategoryInt:
		data := make([]int64, len(values))
		for i, v := range values {
			if v == nil {
				continue
			}
			n, ok := toInt64(v)
			if !ok {
				return nil, &ValueKindError{Column: name, Value: v, Message: "not an integer"}
			}
			data[i] = n
		}
		c = narrowInts(name, data, missing)
	case CategoryString:
		data := make([]string, len(values))
		for i, v := range values {
			if v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return nil, &ValueKindError{Column: name, Value: v, Message: "not a string"}
			}
			data[i] = s
		}
		c = &Column{Name: name, data: data, missing: missing, length: len(values)}
	default:
		return nil, fmt.Errorf("unknown category kind %s", cats.Kind())
	}

	for i := 0; i < c.length; i++ {
		if !c.IsMissing(i) && !cats.Contains(c.Value(i)) {
			return nil, &ValueKindError{Column: name, Value: c.Value(i), Message: "value is not a category"}
		}
	}
	return c.withCategories(cats), nil
}

// dropTokens removes the first n whitespace-delimited tokens of s. Whitespace inside the remaining text is kept.
func dropTokens(s string, n int) string {
	s = strings.TrimSpace(s)
	for range n {
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 {
			return ""
		}
		s = strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	}
	return s
}

func presentValues(c *Column) []any {
	var ret []any
	for i := 0; i < c.length; i++ {
		if !c.IsMissing(i) {
			ret = append(ret, c.Value(i))
		}
	}
	return ret
}

func nonNil(values []any) []any {
	var ret []any
	for _, v := range values {
		if v != nil {
			ret = append(ret, v)
		}
	}
	return ret
}

func parseInt(v any) (int64, bool) {
	if s, ok := v.(string); ok {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return toInt64(f)
	}
	return toInt64(v)
}

func parseFloat(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return toFloat64(v)
}
