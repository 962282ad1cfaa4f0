package soep

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
)

// MergeStep is one table of a merge plan: the requested variables it owns and the key columns it carries.
type MergeStep struct {
	Table      string
	Level      Level
	Variables  []string
	KeyColumns []string
}

// Projection returns the columns selected from the table: its key columns, then the requested variables.
func (s MergeStep) Projection() []string {
	return slices.Concat(s.KeyColumns, s.Variables)
}

// MergePlan is the ordered list of tables to join. Steps are ordered by level in merge order, then by descending
// number of key columns, then by table name, so the plan does not depend on map iteration order.
type MergePlan struct {
	Steps       []MergeStep
	SurveyYears []int
}

// PlanMerge groups the requested variables by owning table and orders the tables. Reserved key column names are
// ignored, repeated names are requested once. If years is not empty, it is pushed down to every table with a
// survey year column.
func PlanMerge(variables []string, tables map[string]*Table, variableToTable map[string]string, years []int) (*MergePlan, error) {
	byTable := map[string][]string{}
	var unknown []string
	for _, name := range variables {
		if IsKeyColumn(name) {
			continue
		}
		tableName, ok := variableToTable[name]
		if !ok {
			if !slices.Contains(unknown, name) {
				unknown = append(unknown, name)
			}
			continue
		}
		if !slices.Contains(byTable[tableName], name) {
			byTable[tableName] = append(byTable[tableName], name)
		}
	}
	if len(unknown) > 0 {
		return nil, &InvalidVariableError{Names: unknown}
	}
	if len(byTable) == 0 {
		return nil, fmt.Errorf("%w: only key columns were requested", ErrNoVariables)
	}

	plan := &MergePlan{SurveyYears: slices.Clone(years)}
	for tableName, vars := range byTable {
		t, ok := tables[tableName]
		if !ok {
			return nil, fmt.Errorf("%w: '%s'", ErrTableNotFound, tableName)
		}
		for _, v := range vars {
			if !t.Has(v) {
				return nil, fmt.Errorf("table '%s': %w: '%s'", tableName, ErrColumnNotFound, v)
			}
		}
		level, err := Classify(t)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, MergeStep{
			Table:      tableName,
			Level:      level,
			Variables:  vars,
			KeyColumns: t.KeyColumns(),
		})
	}

	slices.SortFunc(plan.Steps, func(a, b MergeStep) int {
		if r := cmp.Compare(a.Level, b.Level); r != 0 {
			return r
		}
		if r := cmp.Compare(len(b.KeyColumns), len(a.KeyColumns)); r != 0 {
			return r
		}
		return cmp.Compare(a.Table, b.Table)
	})

	return plan, nil
}

// Levels returns the levels present in the plan, in merge order.
func (p *MergePlan) Levels() []Level {
	var ret []Level
	for _, s := range p.Steps {
		if !slices.Contains(ret, s.Level) {
			ret = append(ret, s.Level)
		}
	}
	return ret
}

// Execute projects every table of the plan, applies the year filter and joins the tables: first within each level,
// then the per-level results in merge order.
func (p *MergePlan) Execute(tables map[string]*Table, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = discardLogger
	}

	partials := map[Level]*Table{}
	for _, step := range p.Steps {
		t, ok := tables[step.Table]
		if !ok {
			return nil, fmt.Errorf("%w: '%s'", ErrTableNotFound, step.Table)
		}
		projected, err := t.Select(step.Projection()...)
		if err != nil {
			return nil, err
		}
		projected = projected.Rename(step.Table)
		if len(p.SurveyYears) > 0 {
			projected = projected.FilterYears(p.SurveyYears)
		}

		logger.Debug("table projected",
			slog.String("table", step.Table),
			slog.String("level", step.Level.String()),
			slog.Int("rows", projected.Len()),
			slog.Any("columns", step.Projection()))

		acc, ok := partials[step.Level]
		if !ok {
			partials[step.Level] = projected
			continue
		}
		joined, err := joinShared(acc, projected, logger)
		if err != nil {
			return nil, err
		}
		partials[step.Level] = joined
	}

	var pending []*Table
	for _, level := range Levels {
		if t, ok := partials[level]; ok {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil, ErrNoVariables
	}

	result := pending[0]
	pending = pending[1:]
	for len(pending) > 0 {
		progress := false
		var deferred []*Table
		for _, t := range pending {
			if len(sharedKeys(result, t)) == 0 {
				logger.Debug("join deferred", slog.String("table", t.Name), slog.String("into", result.Name))
				deferred = append(deferred, t)
				continue
			}
			joined, err := joinShared(result, t, logger)
			if err != nil {
				return nil, err
			}
			result = joined
			progress = true
		}
		if !progress {
			t := deferred[0]
			return nil, &MergeKeyError{
				Left:      result.Name,
				LeftKeys:  result.KeyColumns(),
				Right:     t.Name,
				RightKeys: t.KeyColumns(),
			}
		}
		pending = deferred
	}

	return result, nil
}

func joinShared(left, right *Table, logger *slog.Logger) (*Table, error) {
	on := sharedKeys(left, right)
	if len(on) == 0 {
		return nil, &MergeKeyError{
			Left:      left.Name,
			LeftKeys:  left.KeyColumns(),
			Right:     right.Name,
			RightKeys: right.KeyColumns(),
		}
	}
	joined, err := outerJoin(left, right, on)
	if err != nil {
		return nil, err
	}
	logger.Debug("tables joined",
		slog.String("left", left.Name),
		slog.String("right", right.Name),
		slog.Any("on", on),
		slog.Int("rows", joined.Len()))
	return joined, nil
}
