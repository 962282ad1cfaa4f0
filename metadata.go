package soep

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/goccy/go-yaml"
)

// Metadata is the persisted description of all variables, keyed by variable name.
type Metadata map[string]VariableMetadata

// VariableMetadata is the metadata record of one variable.
type VariableMetadata struct {
	// Module is the owning table.
	Module string

	DType DType

	// SurveyYears is nil for variables of tables without survey year.
	SurveyYears []int
}

// DType is either a plain element type name ("int64", "float64", ...) or a category description.
type DType struct {
	Name string

	Categories      []any
	CategoriesDType string
	Ordered         bool
}

// IsCategorical returns whether the dtype describes categories.
func (d DType) IsCategorical() bool {
	return d.Name == "" || d.Name == "category"
}

// Names returns the variable names, sorted.
func (m Metadata) Names() []string {
	return slices.Sorted(maps.Keys(m))
}

// Variable converts the record of a variable.
func (v VariableMetadata) Variable(name string) (Variable, error) {
	ret := Variable{
		Name:        name,
		Table:       v.Module,
		SurveyYears: v.SurveyYears,
	}
	if v.Module == "" {
		return Variable{}, fmt.Errorf("variable '%s' has no module", name)
	}

	if !v.DType.IsCategorical() {
		ret.DType = v.DType.Name
		switch v.DType.Name {
		case "bool":
			ret.Kind = BoolCategorical
		case "str", "string", "object":
			ret.Kind = StringCategorical
		default:
			ret.Kind = Numeric
		}
		return ret, nil
	}

	kind, err := ParseCategoryKind(v.DType.CategoriesDType)
	if err != nil {
		return Variable{}, fmt.Errorf("variable '%s': %w", name, err)
	}
	cats, err := NewCategorySet(kind, v.DType.Ordered, v.DType.Categories...)
	if err != nil {
		return Variable{}, fmt.Errorf("variable '%s': %w", name, err)
	}
	ret.Categories = cats
	switch kind {
	case CategoryBool:
		ret.Kind = BoolCategorical
		ret.DType = "bool"
	case CategoryInt:
		ret.Kind = IntCategorical
		ret.DType = "int64"
	default:
		ret.Kind = StringCategorical
		ret.DType = "string"
	}
	return ret, nil
}

// VariableMetadataOf returns the metadata record of a variable.
func VariableMetadataOf(v Variable) VariableMetadata {
	ret := VariableMetadata{
		Module:      v.Table,
		SurveyYears: v.SurveyYears,
	}
	if v.Categories != nil {
		ret.DType = DType{
			Name:            "category",
			Categories:      v.Categories.Values(),
			CategoriesDType: v.Categories.Kind().String(),
			Ordered:         v.Categories.Ordered(),
		}
	} else {
		ret.DType = DType{Name: v.DType}
	}
	return ret
}

// NewRegistryFromMetadata builds a registry from metadata records, without the tables. The known survey years of
// each module are the union of the years of its variables.
func NewRegistryFromMetadata(m Metadata) (*Registry, error) {
	r := newRegistry()
	var err error
	for _, name := range m.Names() {
		if IsKeyColumn(name) {
			err = errors.Join(err, fmt.Errorf("metadata record for reserved key column '%s'", name))
			continue
		}
		v, verr := m[name].Variable(name)
		if verr != nil {
			err = errors.Join(err, verr)
			continue
		}
		if v.SurveyYears != nil {
			years := append(r.tableYears[v.Table], v.SurveyYears...)
			slices.Sort(years)
			r.tableYears[v.Table] = slices.Compact(years)
		}
		err = errors.Join(err, r.add(v))
	}
	if err != nil {
		return nil, err
	}
	r.sortNames()
	return r, nil
}

// Metadata exports the registry as metadata records.
func (r *Registry) Metadata() Metadata {
	ret := make(Metadata, len(r.variables))
	for name, v := range r.variables {
		ret[name] = VariableMetadataOf(v)
	}
	return ret
}

// WriteMetadata writes the records as YAML, sorted by variable name.
func WriteMetadata(w io.Writer, m Metadata) error {
	doc := make(yaml.MapSlice, 0, len(m))
	for _, name := range m.Names() {
		v := m[name]

		var dtype any = v.DType.Name
		if v.DType.IsCategorical() {
			categories := v.DType.Categories
			if categories == nil {
				categories = []any{}
			}
			dtype = yaml.MapSlice{
				{Key: "categories", Value: categories},
				{Key: "categories_dtype", Value: v.DType.CategoriesDType},
				{Key: "ordered", Value: v.DType.Ordered},
			}
		}

		var years any
		if v.SurveyYears != nil {
			years = v.SurveyYears
		}

		doc = append(doc, yaml.MapItem{
			Key: name,
			Value: yaml.MapSlice{
				{Key: "module", Value: v.Module},
				{Key: "dtype", Value: dtype},
				{Key: "survey_years", Value: years},
			},
		})
	}

	b, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding metadata: %w", err)
	}
	_, err = w.Write(b)
	return err
}
