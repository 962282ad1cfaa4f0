package soep

import (
	"fmt"
	"slices"
)

// Reserved key column names. They identify rows and are used to join tables, and are never requested as
// variables.
const (
	ColPersonID            = "person_id"
	ColHouseholdID         = "household_id"
	ColHouseholdIDOriginal = "household_id_original"
	ColSurveyYear          = "survey_year"
)

// KeyColumns lists the reserved key columns in their canonical order, which is also the sort order of assembled
// tables.
var KeyColumns = []string{ColPersonID, ColHouseholdID, ColHouseholdIDOriginal, ColSurveyYear}

// LevelKeyColumns are the key columns that decide the level of a table.
var LevelKeyColumns = []string{ColPersonID, ColHouseholdID, ColSurveyYear}

// IsKeyColumn returns whether name is a reserved key column.
func IsKeyColumn(name string) bool {
	return slices.Contains(KeyColumns, name)
}

// Level is the entity granularity and time variance of a table.
type Level int

// Levels in merge order: person tables first, time-varying before constant.
const (
	PersonVarying Level = iota
	PersonConstant
	HouseholdVarying
	HouseholdConstant
)

// Levels lists all levels in merge order.
var Levels = []Level{PersonVarying, PersonConstant, HouseholdVarying, HouseholdConstant}

func (l Level) String() string {
	switch l {
	case PersonVarying:
		return "person-varying"
	case PersonConstant:
		return "person-constant"
	case HouseholdVarying:
		return "household-varying"
	case HouseholdConstant:
		return "household-constant"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// IsVarying returns whether tables of this level have one row per survey year.
func (l Level) IsVarying() bool {
	return l == PersonVarying || l == HouseholdVarying
}

// Classify returns the level of a table from the key columns it carries. The person id takes precedence over the
// household id, so a person table that also carries the household id is a person table.
func Classify(t *Table) (Level, error) {
	hasYear := t.Has(ColSurveyYear)
	switch {
	case t.Has(ColPersonID) && hasYear:
		return PersonVarying, nil
	case t.Has(ColPersonID):
		return PersonConstant, nil
	case t.Has(ColHouseholdID) && hasYear:
		return HouseholdVarying, nil
	case t.Has(ColHouseholdID):
		return HouseholdConstant, nil
	default:
		return 0, &NoValidLevelError{Table: t.Name, Columns: t.ColumnNames()}
	}
}
