package soep

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"gotest.tools/v3/assert"
)

func assembleTestTables() map[string]*Table {
	return map[string]*Table{
		"a": MustTable("a",
			MustColumn(ColPersonID, []int64{1, 2}, nil),
			MustColumn("age", []int64{30, 40}, nil),
		),
		"b": MustTable("b",
			MustColumn(ColPersonID, []int64{1, 1, 3, 4}, nil),
			MustColumn(ColSurveyYear, []int64{2020, 2021, 2020, 2021}, nil),
			MustColumn("income", []int64{1000, 1100, 500, 0}, []bool{false, false, false, true}),
			MustColumn("income_net", []float64{800, 0, 400, 0}, []bool{false, true, false, true}),
		),
	}
}

func TestAssemble(t *testing.T) {
	result, err := Assemble(assembleTestTables(), []string{"age", "income"}, WithSurveyYears(2020, 2021))
	require.NoError(t, err)

	assert.Equal(t, "dataset", result.Name)
	assert.DeepEqual(t, []string{ColPersonID, ColSurveyYear, "age", "income"}, result.ColumnNames())

	// person 2 has no survey year, person 4 has no income
	AssertRowsDeepEqual(t, []map[string]any{
		{ColPersonID: int64(1), ColSurveyYear: int64(2020), "age": int64(30), "income": int64(1000)},
		{ColPersonID: int64(1), ColSurveyYear: int64(2021), "age": int64(30), "income": int64(1100)},
		{ColPersonID: int64(3), ColSurveyYear: int64(2020), "age": nil, "income": int64(500)},
	}, result)
}

func TestAssembleDeterministic(t *testing.T) {
	expected, err := Assemble(assembleTestTables(), []string{"income", "age"}, WithSurveyYears(2021, 2020))
	require.NoError(t, err)

	for range 20 {
		result, err := Assemble(assembleTestTables(), []string{"income", "age"}, WithSurveyYears(2020, 2021))
		require.NoError(t, err)
		assert.Assert(t, expected.Equal(result))
	}
}

func TestAssembleRequestOrder(t *testing.T) {
	result, err := Assemble(assembleTestTables(), []string{"income", ColPersonID, "age", "income"},
		WithSurveyYears(2020))
	require.NoError(t, err)

	assert.DeepEqual(t, []string{ColPersonID, ColSurveyYear, "income", "age"}, result.ColumnNames())
	assert.Equal(t, 2, result.Len())
}

func TestAssemblePruneRows(t *testing.T) {
	result, err := Assemble(assembleTestTables(), []string{"income_net"}, WithSurveyYears(2020, 2021))
	require.NoError(t, err)

	AssertColumnValues(t, []any{int64(1), int64(3)}, result, ColPersonID)
	AssertColumnValues(t, []any{800.0, 400.0}, result, "income_net")

	// person constant variables need no survey years
	result, err = Assemble(assembleTestTables(), []string{"age"})
	require.NoError(t, err)
	assert.DeepEqual(t, []string{ColPersonID, "age"}, result.ColumnNames())
	assert.Equal(t, 2, result.Len())
}

func TestAssembleSurveyYearErrors(t *testing.T) {
	_, err := Assemble(assembleTestTables(), []string{"age", "income"})
	var missingErr *MissingSurveyYearsError
	require.ErrorAs(t, err, &missingErr)
	assert.DeepEqual(t, []string{"income"}, missingErr.Variables)
	require.ErrorIs(t, err, ErrMissingSurveyYears)

	_, err = Assemble(assembleTestTables(), []string{"income"}, WithSurveyYears(1900, 2020))
	var yearErr *InvalidSurveyYearError
	require.ErrorAs(t, err, &yearErr)
	assert.DeepEqual(t, []int{1900}, yearErr.Years)
	assert.DeepEqual(t, []int{2020, 2021}, yearErr.Known)
	require.ErrorIs(t, err, ErrInvalidSurveyYear)
}

func TestAssembleEmptyResult(t *testing.T) {
	_, err := Assemble(assembleTestTables(), []string{"income_net"}, WithSurveyYears(2021))
	var emptyErr *EmptyResultError
	require.ErrorAs(t, err, &emptyErr)
	assert.DeepEqual(t, []string{"income_net"}, emptyErr.Variables)
	assert.DeepEqual(t, []int{2021}, emptyErr.SurveyYears)
	require.ErrorIs(t, err, ErrEmptyResult)
}

func TestAssembleVariableErrors(t *testing.T) {
	_, err := Assemble(assembleTestTables(), nil)
	require.ErrorIs(t, err, ErrNoVariables)

	_, err = Assemble(assembleTestTables(), []string{ColPersonID, ColSurveyYear})
	require.ErrorIs(t, err, ErrNoVariables)

	_, err = Assemble(assembleTestTables(), []string{"ag", "income"}, WithSurveyYears(2020))
	ive := AssertIsInvalidVariableError(t, err)
	assert.DeepEqual(t, []string{"ag"}, ive.Names)
	require.NotEmpty(t, ive.Suggestions["ag"])
	assert.Equal(t, "age", ive.Suggestions["ag"][0].Name)
	assert.Equal(t, "a", ive.Suggestions["ag"][0].Table)
}

func TestAssembleOptions(t *testing.T) {
	tables := assembleTestTables()
	registry, err := NewRegistry(tables)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	result, err := Assemble(tables, []string{"age"},
		WithRegistry(registry),
		WithTableName("persons"),
		WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, "persons", result.Name)
	assert.Assert(t, bytes.Contains(buf.Bytes(), []byte("dataset assembled")))
	assert.Assert(t, bytes.Contains(buf.Bytes(), []byte("run_id=")))

	// the registry decides which variables exist
	_, err = Assemble(tables, []string{"age"}, WithRegistry(mustRegistry(t, map[string]*Table{
		"b": tables["b"],
	})))
	AssertIsInvalidVariableError(t, err)
}

func TestAssembleHouseholdLevel(t *testing.T) {
	result, err := Assemble(mergeTestTables(), []string{"hh_size", "income"}, WithSurveyYears(2020))
	require.NoError(t, err)

	assert.DeepEqual(t, []string{ColPersonID, ColHouseholdID, ColSurveyYear, "hh_size", "income"},
		result.ColumnNames())
	AssertRowsDeepEqual(t, []map[string]any{
		{ColPersonID: int64(1), ColHouseholdID: int64(10), ColSurveyYear: int64(2020), "hh_size": int64(2),
			"income": int64(1000)},
		{ColPersonID: int64(2), ColHouseholdID: int64(11), ColSurveyYear: int64(2020), "hh_size": int64(1),
			"income": int64(900)},
	}, result)
}

func mustRegistry(t *testing.T, tables map[string]*Table) *Registry {
	t.Helper()
	registry, err := NewRegistry(tables)
	require.NoError(t, err)
	return registry
}

func TestAssembleSameLevelOrder(t *testing.T) {
	pequiv := MustTable("pequiv",
		MustColumn(ColPersonID, []int64{1, 2}, nil),
		MustColumn(ColHouseholdID, []int64{10, 11}, nil),
		MustColumn(ColSurveyYear, []int64{2020, 2020}, nil),
		MustColumn("income", []int64{1000, 900}, nil),
	)
	pl := MustTable("pl",
		MustColumn(ColPersonID, []int64{1, 3}, nil),
		MustColumn(ColSurveyYear, []int64{2020, 2020}, nil),
		MustColumn("satisfaction", []int64{7, 5}, nil),
	)
	pgen := MustTable("pgen",
		MustColumn(ColPersonID, []int64{2, 1}, nil),
		MustColumn(ColSurveyYear, []int64{2020, 2020}, nil),
		MustColumn("job", []int64{4, 3}, nil),
	)
	// pl and pgen have the same number of key columns
	permutations := [][]*Table{
		{pequiv, pl, pgen}, {pequiv, pgen, pl}, {pl, pequiv, pgen},
		{pl, pgen, pequiv}, {pgen, pequiv, pl}, {pgen, pl, pequiv},
	}
	variables := []string{"satisfaction", "job", "income"}

	var expectedSteps []MergeStep
	var expected *Table
	for _, perm := range permutations {
		tables := map[string]*Table{}
		for _, table := range perm {
			tables[table.Name] = table
		}

		for range 5 {
			registry := mustRegistry(t, tables)
			plan, err := PlanMerge(variables, tables, registry.VariableToTable(), []int{2020})
			require.NoError(t, err)
			result, err := Assemble(tables, variables, WithSurveyYears(2020))
			require.NoError(t, err)

			if expected == nil {
				expectedSteps = plan.Steps
				expected = result
				continue
			}
			assert.DeepEqual(t, expectedSteps, plan.Steps)
			assert.Assert(t, expected.Equal(result))
		}
	}

	var order []string
	for _, step := range expectedSteps {
		order = append(order, step.Table)
	}
	assert.DeepEqual(t, []string{"pequiv", "pgen", "pl"}, order)

	AssertRowsDeepEqual(t, []map[string]any{
		{ColPersonID: int64(1), ColHouseholdID: int64(10), ColSurveyYear: int64(2020), "satisfaction": int64(7),
			"job": int64(3), "income": int64(1000)},
		{ColPersonID: int64(2), ColHouseholdID: int64(11), ColSurveyYear: int64(2020), "satisfaction": nil,
			"job": int64(4), "income": int64(900)},
		{ColPersonID: int64(3), ColHouseholdID: nil, ColSurveyYear: int64(2020), "satisfaction": int64(5),
			"job": nil, "income": nil},
	}, expected)
}
