package soep

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
)

// Assemble merges the requested variables of the cleaned tables into a single table.
//
// The variables are validated against the registry (built from the tables unless WithRegistry is used).
// Time-varying variables require WithSurveyYears, and all requested years must be known to some table. The owning
// tables are projected, filtered by year and joined; rows where every requested variable is missing are dropped,
// and the result is sorted by its key columns. The columns are the key columns in canonical order followed by the
// requested variables in request order.
func Assemble(tables map[string]*Table, variables []string, options ...AssembleOption) (*Table, error) {
	optns := newAssembleOptions(options)
	logger := optns.logger.With(slog.String("run_id", uuid.NewString()))

	if len(variables) == 0 {
		return nil, ErrNoVariables
	}

	registry := optns.registry
	if registry == nil {
		var err error
		registry, err = NewRegistry(tables)
		if err != nil {
			return nil, fmt.Errorf("error building variable registry: %w", err)
		}
	}

	if err := registry.Validate(variables...); err != nil {
		return nil, err
	}

	var requested []string
	for _, name := range variables {
		if !IsKeyColumn(name) && !slices.Contains(requested, name) {
			requested = append(requested, name)
		}
	}
	if len(requested) == 0 {
		return nil, fmt.Errorf("%w: only key columns were requested", ErrNoVariables)
	}

	if err := checkSurveyYears(registry, requested, optns.surveyYears); err != nil {
		return nil, err
	}

	plan, err := PlanMerge(requested, tables, registry.VariableToTable(), optns.surveyYears)
	if err != nil {
		return nil, err
	}
	for _, step := range plan.Steps {
		logger.Debug("merge step",
			slog.String("table", step.Table),
			slog.String("level", step.Level.String()),
			slog.Any("variables", step.Variables),
			slog.Any("keys", step.KeyColumns))
	}

	merged, err := plan.Execute(tables, logger)
	if err != nil {
		return nil, err
	}

	pruned, err := pruneRows(merged, requested, optns.surveyYears)
	if err != nil {
		return nil, err
	}
	if pruned.Len() == 0 {
		return nil, &EmptyResultError{Variables: requested, SurveyYears: optns.surveyYears}
	}

	result, err := pruned.Select(slices.Concat(pruned.KeyColumns(), requested)...)
	if err != nil {
		return nil, err
	}
	result = result.SortByKeys().Rename(optns.tableName)

	logger.Info("dataset assembled",
		slog.Int("variables", len(requested)),
		slog.Int("tables", len(plan.Steps)),
		slog.Int("rows", result.Len()),
		slog.Int("dropped_rows", merged.Len()-result.Len()),
		slog.Any("survey_years", optns.surveyYears))

	return result, nil
}

// checkSurveyYears requires years for time-varying variables, and checks that every year is known.
func checkSurveyYears(registry *Registry, requested []string, years []int) error {
	if len(years) == 0 {
		var varying []string
		for _, name := range requested {
			v, err := registry.Lookup(name)
			if err != nil {
				return err
			}
			if v.IsTimeVarying() {
				varying = append(varying, name)
			}
		}
		if len(varying) > 0 {
			return &MissingSurveyYearsError{Variables: varying}
		}
		return nil
	}

	known := registry.KnownYears()
	var invalid []int
	for _, y := range years {
		if !slices.Contains(known, y) {
			invalid = append(invalid, y)
		}
	}
	if len(invalid) > 0 {
		return &InvalidSurveyYearError{Years: invalid, Known: known}
	}
	return nil
}

// pruneRows drops the rows where every requested column is missing. With a year filter, rows outside the
// requested years are dropped too, as left by joins with tables that have no survey year.
func pruneRows(t *Table, requested []string, years []int) (*Table, error) {
	var columns []*Column
	var errs error
	for _, name := range requested {
		c, ok := t.Column(name)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("%w: '%s' in merged table", ErrColumnNotFound, name))
			continue
		}
		columns = append(columns, c)
	}
	if errs != nil {
		return nil, errs
	}

	yearColumn, hasYears := t.Column(ColSurveyYear)
	filterYears := hasYears && len(years) > 0

	return t.FilterRows(func(row int) bool {
		if filterYears {
			y, ok := yearColumn.int64At(row)
			if !ok || !slices.Contains(years, int(y)) {
				return false
			}
		}
		for _, c := range columns {
			if !c.IsMissing(row) {
				return true
			}
		}
		return false
	}), nil
}
