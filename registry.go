package soep

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Registry maps every cleaned variable to its owning table. It is built once and is read-only afterwards, so it is
// safe for concurrent use.
type Registry struct {
	variables  map[string]Variable
	names      []string
	tableYears map[string][]int
}

// NewRegistry builds a registry from cleaned tables. Every non-key column is a variable; a variable name found in
// more than one table is an error, as is a table without key columns.
func NewRegistry(tables map[string]*Table) (*Registry, error) {
	r := newRegistry()
	var err error
	for _, name := range slices.Sorted(maps.Keys(tables)) {
		t := tables[name]
		if t.Name != name {
			t = t.Rename(name)
		}
		err = errors.Join(err, r.addTable(t))
	}
	if err != nil {
		return nil, err
	}
	r.sortNames()
	return r, nil
}

func newRegistry() *Registry {
	return &Registry{
		variables:  map[string]Variable{},
		tableYears: map[string][]int{},
	}
}

func (r *Registry) addTable(t *Table) error {
	if _, err := Classify(t); err != nil {
		return err
	}

	yearColumn, hasYears := t.Column(ColSurveyYear)
	if hasYears {
		r.tableYears[t.Name] = t.SurveyYears()
	} else {
		yearColumn = nil
	}

	var err error
	for _, c := range t.Columns() {
		if IsKeyColumn(c.Name) {
			continue
		}
		err = errors.Join(err, r.add(variableFromColumn(t, c, yearColumn)))
	}
	return err
}

func (r *Registry) add(v Variable) error {
	if existing, ok := r.variables[v.Name]; ok {
		return fmt.Errorf("%w: '%s' is in tables '%s' and '%s'", ErrDuplicateVariable, v.Name, existing.Table, v.Table)
	}
	r.variables[v.Name] = v
	r.names = append(r.names, v.Name)
	return nil
}

func (r *Registry) sortNames() {
	slices.Sort(r.names)
}

// Len returns the number of variables.
func (r *Registry) Len() int {
	return len(r.variables)
}

// Names returns the variable names, sorted.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Variables returns all variables, sorted by name.
func (r *Registry) Variables() []Variable {
	ret := make([]Variable, 0, len(r.names))
	for _, name := range r.names {
		ret = append(ret, r.variables[name])
	}
	return ret
}

// Tables returns the names of the tables owning at least one variable, sorted.
func (r *Registry) Tables() []string {
	seen := map[string]bool{}
	for _, v := range r.variables {
		seen[v.Table] = true
	}
	for t := range r.tableYears {
		seen[t] = true
	}
	return slices.Sorted(maps.Keys(seen))
}

// Has returns whether the variable is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.variables[name]
	return ok
}

// Lookup returns a registered variable. For unknown names it returns an InvalidVariableError with suggestions.
func (r *Registry) Lookup(name string) (Variable, error) {
	v, ok := r.variables[name]
	if !ok {
		return Variable{}, &InvalidVariableError{
			Names:       []string{name},
			Suggestions: map[string][]Suggestion{name: r.Suggest(name)},
		}
	}
	return v, nil
}

// Validate checks that every name is a reserved key column or a registered variable. All unknown names are
// reported in a single InvalidVariableError.
func (r *Registry) Validate(names ...string) error {
	var ierr *InvalidVariableError
	for _, name := range names {
		if IsKeyColumn(name) || r.Has(name) {
			continue
		}
		if ierr == nil {
			ierr = &InvalidVariableError{Suggestions: map[string][]Suggestion{}}
		}
		if slices.Contains(ierr.Names, name) {
			continue
		}
		ierr.Names = append(ierr.Names, name)
		ierr.Suggestions[name] = r.Suggest(name)
	}
	if ierr != nil {
		return ierr
	}
	return nil
}

// VariableToTable returns the owning table of every variable.
func (r *Registry) VariableToTable() map[string]string {
	ret := make(map[string]string, len(r.variables))
	for name, v := range r.variables {
		ret[name] = v.Table
	}
	return ret
}

// KnownYears returns the union of the survey years of all tables with a survey year column, ascending.
func (r *Registry) KnownYears() []int {
	var ret []int
	for _, years := range r.tableYears {
		ret = append(ret, years...)
	}
	slices.Sort(ret)
	return slices.Compact(ret)
}

// Rebuild returns a new registry where the variables of table t are recomputed from t. Variables of other tables
// are shared with r, which is not changed.
func (r *Registry) Rebuild(t *Table) (*Registry, error) {
	ret := newRegistry()
	for _, name := range r.names {
		if v := r.variables[name]; v.Table != t.Name {
			ret.variables[name] = v
			ret.names = append(ret.names, name)
		}
	}
	for table, years := range r.tableYears {
		if table != t.Name {
			ret.tableYears[table] = years
		}
	}
	if err := ret.addTable(t); err != nil {
		return nil, err
	}
	ret.sortNames()
	return ret, nil
}
