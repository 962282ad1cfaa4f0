package soep

import (
	"fmt"
	"slices"
)

// ValueKind is the kind of values of a cleaned variable.
type ValueKind int

const (
	Numeric ValueKind = iota
	BoolCategorical
	IntCategorical
	StringCategorical
)

func (k ValueKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case BoolCategorical:
		return "bool-categorical"
	case IntCategorical:
		return "int-categorical"
	case StringCategorical:
		return "string-categorical"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// IsCategorical returns whether the kind has a category set.
func (k ValueKind) IsCategorical() bool {
	return k != Numeric
}

// Variable describes one cleaned column and the table that owns it.
type Variable struct {
	Name  string
	Table string
	Kind  ValueKind

	// DType is the element type of the column, like "int64", "float32" or "string".
	DType string

	// Categories is set for categorical variables.
	Categories *CategorySet

	// SurveyYears lists the years where the variable has at least one present value. It is nil for variables of
	// tables without a survey year column.
	SurveyYears []int
}

// IsTimeVarying returns whether the variable belongs to a table with a survey year column.
func (v Variable) IsTimeVarying() bool {
	return v.SurveyYears != nil
}

// Equal returns whether both variables have the same fields.
func (v Variable) Equal(other Variable) bool {
	return v.Name == other.Name &&
		v.Table == other.Table &&
		v.Kind == other.Kind &&
		v.DType == other.DType &&
		v.Categories.Equal(other.Categories) &&
		(v.SurveyYears == nil) == (other.SurveyYears == nil) &&
		slices.Equal(v.SurveyYears, other.SurveyYears)
}

// variableFromColumn describes a column of table t. years is the survey year column of t, or nil.
func variableFromColumn(t *Table, c *Column, years *Column) Variable {
	ret := Variable{
		Name:       c.Name,
		Table:      t.Name,
		DType:      c.ElemType(),
		Categories: c.Categories(),
	}

	switch {
	case c.IsCategorical():
		switch c.Categories().Kind() {
		case CategoryBool:
			ret.Kind = BoolCategorical
		case CategoryInt:
			ret.Kind = IntCategorical
		default:
			ret.Kind = StringCategorical
		}
	default:
		switch c.Data().(type) {
		case []bool:
			ret.Kind = BoolCategorical
		case []string:
			ret.Kind = StringCategorical
		default:
			ret.Kind = Numeric
		}
	}

	if years != nil {
		ret.SurveyYears = presentYears(years, c)
	}
	return ret
}
