package soep

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gotest.tools/v3/assert"
)

func mergeTestTables() map[string]*Table {
	return map[string]*Table{
		"pequiv": MustTable("pequiv",
			MustColumn(ColPersonID, []int64{1, 1, 2}, nil),
			MustColumn(ColHouseholdID, []int64{10, 10, 11}, nil),
			MustColumn(ColSurveyYear, []int64{2020, 2021, 2020}, nil),
			MustColumn("income", []int64{1000, 1100, 900}, nil),
		),
		"pl": MustTable("pl",
			MustColumn(ColPersonID, []int64{1, 2}, nil),
			MustColumn(ColSurveyYear, []int64{2020, 2020}, nil),
			MustColumn("satisfaction", []int64{7, 8}, nil),
		),
		"ppath": MustTable("ppath",
			MustColumn(ColPersonID, []int64{1, 2}, nil),
			MustColumn("birth_year", []int64{1980, 1990}, nil),
		),
		"hwealth": MustTable("hwealth",
			MustColumn(ColHouseholdID, []int64{10, 12}, nil),
			MustColumn(ColSurveyYear, []int64{2020, 2020}, nil),
			MustColumn("wealth", []float64{5000, 300}, nil),
		),
		"hbrutto": MustTable("hbrutto",
			MustColumn(ColHouseholdID, []int64{10, 11}, nil),
			MustColumn("hh_size", []int64{2, 1}, nil),
		),
	}
}

func mergeTestVariableToTable() map[string]string {
	return map[string]string{
		"income":       "pequiv",
		"satisfaction": "pl",
		"birth_year":   "ppath",
		"wealth":       "hwealth",
		"hh_size":      "hbrutto",
	}
}

func TestPlanMerge(t *testing.T) {
	plan, err := PlanMerge([]string{"wealth", "birth_year", ColPersonID, "satisfaction", "income", "income"},
		mergeTestTables(), mergeTestVariableToTable(), []int{2020})
	require.NoError(t, err)

	var tables []string
	for _, step := range plan.Steps {
		tables = append(tables, step.Table)
	}
	assert.DeepEqual(t, []string{"pequiv", "pl", "ppath", "hwealth"}, tables)
	assert.DeepEqual(t, []Level{PersonVarying, PersonConstant, HouseholdVarying}, plan.Levels())

	assert.DeepEqual(t, MergeStep{
		Table:      "pequiv",
		Level:      PersonVarying,
		Variables:  []string{"income"},
		KeyColumns: []string{ColPersonID, ColHouseholdID, ColSurveyYear},
	}, plan.Steps[0])
	assert.DeepEqual(t, []string{ColPersonID, ColHouseholdID, ColSurveyYear, "income"}, plan.Steps[0].Projection())
	assert.DeepEqual(t, []int{2020}, plan.SurveyYears)
}

func TestPlanMergeErrors(t *testing.T) {
	_, err := PlanMerge([]string{"income", "wage"}, mergeTestTables(), mergeTestVariableToTable(), nil)
	ive := AssertIsInvalidVariableError(t, err)
	assert.DeepEqual(t, []string{"wage"}, ive.Names)

	_, err = PlanMerge([]string{ColPersonID, ColSurveyYear}, mergeTestTables(), mergeTestVariableToTable(), nil)
	require.ErrorIs(t, err, ErrNoVariables)

	tables := mergeTestTables()
	delete(tables, "pl")
	_, err = PlanMerge([]string{"satisfaction"}, tables, mergeTestVariableToTable(), nil)
	require.ErrorIs(t, err, ErrTableNotFound)

	_, err = PlanMerge([]string{"income"}, mergeTestTables(), map[string]string{"income": "pl"}, nil)
	require.ErrorIs(t, err, ErrColumnNotFound)
}

func TestMergeExecute(t *testing.T) {
	tables := mergeTestTables()
	plan, err := PlanMerge([]string{"income", "satisfaction", "birth_year", "hh_size"}, tables,
		mergeTestVariableToTable(), []int{2020})
	require.NoError(t, err)

	merged, err := plan.Execute(tables, nil)
	require.NoError(t, err)

	AssertRowsDeepEqual(t, []map[string]any{
		{ColPersonID: int64(1), ColHouseholdID: int64(10), ColSurveyYear: int64(2020), "income": int64(1000),
			"satisfaction": int64(7), "birth_year": int64(1980), "hh_size": int64(2)},
		{ColPersonID: int64(2), ColHouseholdID: int64(11), ColSurveyYear: int64(2020), "income": int64(900),
			"satisfaction": int64(8), "birth_year": int64(1990), "hh_size": int64(1)},
	}, merged.SortByKeys())
}

func TestMergeKeyError(t *testing.T) {
	tables := mergeTestTables()
	plan, err := PlanMerge([]string{"birth_year", "hh_size"}, tables, mergeTestVariableToTable(), nil)
	require.NoError(t, err)

	_, err = plan.Execute(tables, nil)
	var mergeErr *MergeKeyError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, "ppath", mergeErr.Left)
	assert.Equal(t, "hbrutto", mergeErr.Right)
	require.ErrorIs(t, err, ErrMergeKey)
}

func TestMergeAcrossLevels(t *testing.T) {
	// ppath and hbrutto share no key, hbrutto is joined on the household id of pequiv
	tables := mergeTestTables()
	plan, err := PlanMerge([]string{"birth_year", "hh_size", "income"}, tables, mergeTestVariableToTable(),
		[]int{2021})
	require.NoError(t, err)

	merged, err := plan.Execute(tables, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, merged.Len())
	row := merged.SortByKeys().Row(0)
	AssertValuesDeepEqual(t, map[string]any{
		ColPersonID:    int64(1),
		ColHouseholdID: int64(10),
		ColSurveyYear:  int64(2021),
		"income":       int64(1100),
		"birth_year":   int64(1980),
		"hh_size":      int64(2),
	}, row)
}

func TestOuterJoin(t *testing.T) {
	left := MustTable("a",
		MustColumn(ColPersonID, []int64{1, 0, 2}, []bool{false, true, false}),
		MustColumn("x", []string{"a", "b", "c"}, nil),
	)
	right := MustTable("b",
		MustColumn(ColPersonID, []int64{2, 2, 0, 4}, []bool{false, false, true, false}),
		MustColumn("y", []float64{1, 2, 3, 4}, nil),
	)

	joined, err := outerJoin(left, right, []string{ColPersonID})
	require.NoError(t, err)
	assert.Equal(t, "a+b", joined.Name)

	// missing keys never match
	AssertRowsDeepEqual(t, []map[string]any{
		{ColPersonID: int64(1), "x": "a", "y": nil},
		{ColPersonID: nil, "x": "b", "y": nil},
		{ColPersonID: int64(2), "x": "c", "y": 1.0},
		{ColPersonID: int64(2), "x": "c", "y": 2.0},
		{ColPersonID: nil, "x": nil, "y": 3.0},
		{ColPersonID: int64(4), "x": nil, "y": 4.0},
	}, joined)

	_, err = outerJoin(left, left, []string{ColPersonID})
	require.ErrorContains(t, err, "column 'x' exists on both sides")

	_, err = outerJoin(left, right, nil)
	require.Error(t, err)
}

func surveyYearOnlyTables() map[string]*Table {
	return map[string]*Table{
		"pl": MustTable("pl",
			MustColumn(ColPersonID, []int64{1, 2, 3}, nil),
			MustColumn(ColSurveyYear, []int64{2020, 2020, 2020}, nil),
			MustColumn("income", []int64{1000, 900, 800}, nil),
		),
		"hwealth": MustTable("hwealth",
			MustColumn(ColHouseholdID, []int64{10, 11, 12}, nil),
			MustColumn(ColSurveyYear, []int64{2020, 2020, 2020}, nil),
			MustColumn("wealth", []float64{5, 6, 7}, nil),
		),
	}
}

func TestMergeSurveyYearIsNotAJoinKey(t *testing.T) {
	tables := surveyYearOnlyTables()
	plan, err := PlanMerge([]string{"income", "wealth"}, tables,
		map[string]string{"income": "pl", "wealth": "hwealth"}, []int{2020})
	require.NoError(t, err)

	_, err = plan.Execute(tables, nil)
	var mergeErr *MergeKeyError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, "pl", mergeErr.Left)
	assert.Equal(t, "hwealth", mergeErr.Right)

	_, err = Assemble(tables, []string{"income", "wealth"}, WithSurveyYears(2020))
	require.ErrorIs(t, err, ErrMergeKey)

	_, err = joinShared(tables["pl"], tables["hwealth"], discardLogger)
	require.ErrorIs(t, err, ErrMergeKey)
	assert.Assert(t, sharedKeys(tables["pl"], tables["hwealth"]) == nil)
}

func TestMergeBridgedHousehold(t *testing.T) {
	tables := surveyYearOnlyTables()
	tables["ppath"] = MustTable("ppath",
		MustColumn(ColPersonID, []int64{1, 2}, nil),
		MustColumn(ColHouseholdID, []int64{10, 11}, nil),
		MustColumn("birth_year", []int64{1980, 1990}, nil),
	)

	result, err := Assemble(tables, []string{"income", "birth_year", "wealth"}, WithSurveyYears(2020))
	require.NoError(t, err)

	// person 3 has no household, household 12 has no person
	AssertRowsDeepEqual(t, []map[string]any{
		{ColPersonID: int64(1), ColHouseholdID: int64(10), ColSurveyYear: int64(2020), "income": int64(1000),
			"birth_year": int64(1980), "wealth": 5.0},
		{ColPersonID: int64(2), ColHouseholdID: int64(11), ColSurveyYear: int64(2020), "income": int64(900),
			"birth_year": int64(1990), "wealth": 6.0},
		{ColPersonID: int64(3), ColHouseholdID: nil, ColSurveyYear: int64(2020), "income": int64(800),
			"birth_year": nil, "wealth": nil},
		{ColPersonID: nil, ColHouseholdID: int64(12), ColSurveyYear: int64(2020), "income": nil,
			"birth_year": nil, "wealth": 7.0},
	}, result)
}
