package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	soep "github.com/ttsim-dev/soep-preparation-sub000"
	"gotest.tools/v3/assert"
)

type filterDataTestValue struct {
	PersonID   int64
	SurveyYear int64
	Age        *int64
	Income     float64
}

func ptr[T any](v T) *T {
	return &v
}

var allTestTable = soep.MustTable("dataset",
	soep.MustColumn("person_id", []int64{1, 1, 3}, nil),
	soep.MustColumn("survey_year", []uint16{2020, 2021, 2020}, nil),
	soep.MustColumn("age", []uint8{30, 30, 0}, []bool{false, false, true}),
	soep.MustColumn("income", []float64{1000, 1100, 500}, nil),
)

var allTestData = []filterDataTestValue{
	{PersonID: 1, SurveyYear: 2020, Age: ptr(int64(30)), Income: 1000},
	{PersonID: 1, SurveyYear: 2021, Age: ptr(int64(30)), Income: 1100},
	{PersonID: 3, SurveyYear: 2020, Income: 500},
}

func fromRow(row soep.Values) (filterDataTestValue, error) {
	ret := filterDataTestValue{}
	ret.PersonID, _ = soep.ValuesInt64(row, "person_id")
	ret.SurveyYear, _ = soep.ValuesInt64(row, "survey_year")
	if age, ok := soep.ValuesInt64(row, "age"); ok {
		ret.Age = &age
	}
	income, _, isType := soep.ValuesGet[float64](row, "income")
	if !isType {
		return ret, errors.New("income is not a float64")
	}
	ret.Income = income
	return ret, nil
}

func TestFilterData(t *testing.T) {
	data, err := FilterData[filterDataTestValue](allTestTable, fromRow, WithFilterAll(true))
	require.NoError(t, err)
	require.Equal(t, allTestData, data)
}

func TestFilterDataNoFilter(t *testing.T) {
	data, err := FilterData[filterDataTestValue](allTestTable, fromRow)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestFilterDataYears(t *testing.T) {
	data, err := FilterData[filterDataTestValue](allTestTable, fromRow, WithFilterYears(2020))
	require.NoError(t, err)
	require.Equal(t, []filterDataTestValue{allTestData[0], allTestData[2]}, data)
}

func TestFilterDataFields(t *testing.T) {
	data, err := FilterData[filterDataTestValue](allTestTable, fromRow, WithFilterFields(map[string]any{
		"person_id":   1,
		"survey_year": 2021,
	}))
	require.NoError(t, err)
	require.Equal(t, []filterDataTestValue{allTestData[1]}, data)
}

func TestFilterDataFieldsMissing(t *testing.T) {
	data, err := FilterData[filterDataTestValue](allTestTable, fromRow, WithFilterFields(map[string]any{
		"age": nil,
	}))
	require.NoError(t, err)
	require.Equal(t, []filterDataTestValue{allTestData[2]}, data)
}

func TestFilterDataFieldsNotFound(t *testing.T) {
	_, err := FilterData[filterDataTestValue](allTestTable, fromRow, WithFilterFields(map[string]any{
		"wealth": 1,
	}))
	assert.ErrorContains(t, err, "field 'wealth' does not exists")
}

func TestFilterDataRowAndYears(t *testing.T) {
	data, err := FilterData[filterDataTestValue](allTestTable, fromRow,
		WithFilterYears(2020),
		WithFilterRow(func(row soep.Values) (bool, error) {
			income, _, _ := soep.ValuesGet[float64](row, "income")
			return income > 600, nil
		}))
	require.NoError(t, err)
	require.Equal(t, []filterDataTestValue{allTestData[0]}, data)
}

func TestFilterDataRowError(t *testing.T) {
	_, err := FilterData[filterDataTestValue](allTestTable, fromRow,
		WithFilterRow(func(row soep.Values) (bool, error) {
			return false, errors.New("boom")
		}))
	assert.ErrorContains(t, err, "boom")
}

func TestFilterDataRowsSorted(t *testing.T) {
	items, err := FilterDataRows[filterDataTestValue](allTestTable, fromRow,
		SortByColumns[filterDataTestValue]("survey_year", "person_id"), WithFilterAll(true))
	require.NoError(t, err)

	var indexes []int
	for _, item := range items {
		indexes = append(indexes, item.Index)
	}
	assert.DeepEqual(t, []int{0, 2, 1}, indexes)
}

func TestFilterDataKeyed(t *testing.T) {
	expectedDataKey := map[string]FilterDataKeyedItem[filterDataTestValue]{
		"person_id=1,survey_year=2020": {Index: 0, Data: allTestData[0]},
		"person_id=1,survey_year=2021": {Index: 1, Data: allTestData[1]},
		"person_id=3,survey_year=2020": {Index: 2, Data: allTestData[2]},
	}

	data, err := FilterDataKeyed[filterDataTestValue](allTestTable, fromRow, nil, WithFilterAll(true))
	assert.NilError(t, err)
	assert.DeepEqual(t, allTestData, data.Data)
	assert.DeepEqual(t, expectedDataKey, data.DataKey)
	assert.Equal(t, 0, len(data.MissingKeys))
}

func TestFilterDataKeyedMissingKey(t *testing.T) {
	table := soep.MustTable("dataset",
		soep.MustColumn("person_id", []int64{1, 2}, nil),
		soep.MustColumn("survey_year", []uint16{2020, 0}, []bool{false, true}),
		soep.MustColumn("age", []uint8{30, 40}, nil),
		soep.MustColumn("income", []float64{1000, 0}, nil),
	)

	data, err := FilterDataKeyed[filterDataTestValue](table, fromRow, nil, WithFilterAll(true))
	assert.NilError(t, err)
	assert.Equal(t, 2, len(data.Data))
	assert.Equal(t, 1, len(data.DataKey))
	assert.DeepEqual(t, []int{1}, data.MissingKeys)
}
