package soep

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml/token"
)

var (
	ErrValueKind          = errors.New("value kind error")
	ErrNoValidLevel       = errors.New("no valid level")
	ErrInvalidVariable    = errors.New("invalid variable")
	ErrMissingSurveyYears = errors.New("missing survey years")
	ErrInvalidSurveyYear  = errors.New("invalid survey year")
	ErrMergeKey           = errors.New("merge key error")
	ErrEmptyResult        = errors.New("empty result")
	ErrNoVariables        = errors.New("no variables requested")
	ErrDuplicateVariable  = errors.New("duplicate variable")
	ErrTableNotFound      = errors.New("table not found")
	ErrColumnNotFound     = errors.New("column not found")
)

// ValueKindError is returned when a raw value survives sentinel stripping but cannot be converted, most often
// because it has no entry in an explicit renaming.
type ValueKindError struct {
	Column  string
	Value   any
	Message string
}

func (e *ValueKindError) Error() string {
	return fmt.Sprintf("column '%s': value %#v: %s", e.Column, e.Value, e.Message)
}

func (e *ValueKindError) Unwrap() error {
	return ErrValueKind
}

// NoValidLevelError is returned when a table carries none of the reserved key columns.
type NoValidLevelError struct {
	Table   string
	Columns []string
}

func (e *NoValidLevelError) Error() string {
	return fmt.Sprintf("table '%s' has no key column (%s), columns are: %s", e.Table,
		strings.Join(LevelKeyColumns, ", "), strings.Join(e.Columns, ", "))
}

func (e *NoValidLevelError) Unwrap() error {
	return ErrNoValidLevel
}

// Suggestion is a registered variable close to a requested unknown name.
type Suggestion struct {
	Name  string
	Table string
	Score float64
}

// InvalidVariableError is returned for requested variables that are not registered. Suggestions maps each unknown
// name to up to 3 close matches.
type InvalidVariableError struct {
	Names       []string
	Suggestions map[string][]Suggestion
}

func (e *InvalidVariableError) Error() string {
	var b strings.Builder
	b.WriteString("invalid variables:")
	for _, name := range e.Names {
		fmt.Fprintf(&b, " '%s'", name)
		sugs := e.Suggestions[name]
		if len(sugs) == 0 {
			continue
		}
		parts := make([]string, 0, len(sugs))
		for _, s := range sugs {
			parts = append(parts, fmt.Sprintf("'%s' (table '%s')", s.Name, s.Table))
		}
		fmt.Fprintf(&b, " (did you mean %s?)", strings.Join(parts, ", "))
	}
	return b.String()
}

func (e *InvalidVariableError) Unwrap() error {
	return ErrInvalidVariable
}

// MissingSurveyYearsError is returned when time-varying variables are requested without survey years.
type MissingSurveyYearsError struct {
	Variables []string
}

func (e *MissingSurveyYearsError) Error() string {
	return fmt.Sprintf("survey years must be given for time-varying variables: %s", strings.Join(e.Variables, ", "))
}

func (e *MissingSurveyYearsError) Unwrap() error {
	return ErrMissingSurveyYears
}

// InvalidSurveyYearError is returned for requested years outside the years known to any table.
type InvalidSurveyYearError struct {
	Years []int
	Known []int
}

func (e *InvalidSurveyYearError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("invalid survey years %v: no table carries survey years", e.Years)
	}
	return fmt.Sprintf("invalid survey years %v: known years are %d-%d", e.Years, e.Known[0], e.Known[len(e.Known)-1])
}

func (e *InvalidSurveyYearError) Unwrap() error {
	return ErrInvalidSurveyYear
}

// MergeKeyError is returned when two tables queued for joining share no key column.
type MergeKeyError struct {
	Left      string
	LeftKeys  []string
	Right     string
	RightKeys []string
}

func (e *MergeKeyError) Error() string {
	return fmt.Sprintf("cannot merge '%s' (keys: %s) with '%s' (keys: %s): no shared key column",
		e.Left, strings.Join(e.LeftKeys, ", "), e.Right, strings.Join(e.RightKeys, ", "))
}

func (e *MergeKeyError) Unwrap() error {
	return ErrMergeKey
}

// EmptyResultError is returned when no row of the assembled table has any requested data.
type EmptyResultError struct {
	Variables   []string
	SurveyYears []int
}

func (e *EmptyResultError) Error() string {
	msg := fmt.Sprintf("no data for variables %s", strings.Join(e.Variables, ", "))
	if len(e.SurveyYears) > 0 {
		msg += fmt.Sprintf(" in survey years %v", e.SurveyYears)
	}
	return msg
}

func (e *EmptyResultError) Unwrap() error {
	return ErrEmptyResult
}

type TokenPosition = token.Position

// ParseError is a metadata file error with its YAML location.
type ParseError struct {
	ErrorMessage string
	Path         string
	Position     *TokenPosition
}

func NewParseError(msg string, path string, position *TokenPosition) ParseError {
	return ParseError{
		ErrorMessage: msg,
		Path:         path,
		Position:     position,
	}
}

func (e ParseError) Error() string {
	if e.Position != nil {
		return fmt.Sprintf("%s (line %d, column %d): %s", e.Path, e.Position.Line, e.Position.Column, e.ErrorMessage)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.ErrorMessage)
}
