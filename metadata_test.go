package soep

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"gotest.tools/v3/assert"
)

func TestLoadMetadata(t *testing.T) {
	provider := NewFSFileProvider(fstest.MapFS{
		"ppath.meta.yaml": &fstest.MapFile{
			Data: []byte(`age:
  dtype: int64
  survey_years: null
gender:
  dtype:
    categories: [1, 2]
    categories_dtype: int64
    ordered: false
  survey_years: null
`),
		},
		"pequiv.meta.yaml": &fstest.MapFile{
			Data: []byte(`income:
  module: pequiv
  dtype: float32
  survey_years: [2020, 2021]
education:
  module: pequiv
  dtype:
    categories: ["Primary", "Upper secondary"]
    categories_dtype: str
    ordered: true
  survey_years: []
`),
		},
		"readme.txt": &fstest.MapFile{Data: []byte("not metadata")},
	})

	m, err := LoadMetadata(provider)
	require.NoError(t, err)
	assert.DeepEqual(t, []string{"age", "education", "gender", "income"}, m.Names())

	// the file name is the default module
	assert.Equal(t, "ppath", m["age"].Module)
	assert.Assert(t, m["age"].SurveyYears == nil)
	assert.DeepEqual(t, []int{2020, 2021}, m["income"].SurveyYears)
	assert.Assert(t, m["education"].SurveyYears != nil)
	assert.Equal(t, 0, len(m["education"].SurveyYears))

	gender, err := m["gender"].Variable("gender")
	require.NoError(t, err)
	assert.Equal(t, IntCategorical, gender.Kind)
	assert.Equal(t, "int64", gender.DType)
	assert.DeepEqual(t, []any{int64(1), int64(2)}, gender.Categories.Values())

	education, err := m["education"].Variable("education")
	require.NoError(t, err)
	assert.Equal(t, StringCategorical, education.Kind)
	assert.Assert(t, education.Categories.Ordered())
	assert.Assert(t, education.IsTimeVarying())

	income, err := m["income"].Variable("income")
	require.NoError(t, err)
	assert.Equal(t, Numeric, income.Kind)
	assert.Equal(t, "float32", income.DType)
}

func TestLoadMetadataErrors(t *testing.T) {
	for _, test := range []struct {
		name     string
		files    []string
		expected string
		line     int
	}{
		{
			name:     "unknown field",
			files:    []string{"age:\n  dtype: int64\n  unit: years\n"},
			expected: "invalid variable field 'unit' for 'age'",
			line:     3,
		},
		{
			name:     "reserved key column",
			files:    []string{"person_id:\n  dtype: int64\n"},
			expected: "'person_id' is a reserved key column",
			line:     1,
		},
		{
			name:     "missing categories dtype",
			files:    []string{"gender:\n  dtype:\n    categories: [1, 2]\n"},
			expected: "categories_dtype is required",
		},
		{
			name:     "invalid survey year",
			files:    []string{"income:\n  dtype: int64\n  survey_years: [2020, abc]\n"},
			expected: "invalid survey year",
			line:     3,
		},
		{
			name:     "duplicate variable",
			files:    []string{"age:\n  dtype: int64\n", "age:\n  dtype: int8\n"},
			expected: "variable 'age' already defined in 'ppath.meta.yaml'",
			line:     1,
		},
		{
			name:     "unknown categories dtype",
			files:    []string{"gender:\n  dtype:\n    categories: [1]\n    categories_dtype: complex\n"},
			expected: "unknown categories dtype 'complex'",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadMetadata(NewStringFileProvider([]string{"ppath", "pequiv"}, test.files))
			require.ErrorContains(t, err, test.expected)

			var parseErr ParseError
			require.ErrorAs(t, err, &parseErr)
			if test.line > 0 {
				require.NotNil(t, parseErr.Position)
				assert.Equal(t, test.line, parseErr.Position.Line)
			}
		})
	}
}

func TestVariableMetadata(t *testing.T) {
	_, err := VariableMetadata{DType: DType{Name: "int64"}}.Variable("age")
	require.ErrorContains(t, err, "variable 'age' has no module")

	for _, test := range []struct {
		dtype    string
		expected ValueKind
	}{
		{"int8", Numeric},
		{"float64", Numeric},
		{"bool", BoolCategorical},
		{"str", StringCategorical},
	} {
		v, err := VariableMetadata{Module: "pl", DType: DType{Name: test.dtype}}.Variable("x")
		require.NoError(t, err)
		assert.Equal(t, test.expected, v.Kind, test.dtype)
		assert.Equal(t, test.dtype, v.DType)
	}

	v, err := VariableMetadata{
		Module: "pl",
		DType:  DType{Name: "category", Categories: []any{true, false}, CategoriesDType: "bool"},
	}.Variable("employed")
	require.NoError(t, err)
	assert.Equal(t, BoolCategorical, v.Kind)
	assert.Equal(t, "bool", v.DType)
}

func TestWriteMetadataRoundTrip(t *testing.T) {
	registry, err := NewRegistry(testTables(t))
	require.NoError(t, err)
	expected := registry.Metadata()

	var buf bytes.Buffer
	require.NoError(t, WriteMetadata(&buf, expected))

	loaded, err := LoadMetadata(NewStringFileProvider(nil, []string{buf.String()}))
	require.NoError(t, err)
	assert.DeepEqual(t, expected.Names(), loaded.Names())

	for _, name := range expected.Names() {
		ev, err := expected[name].Variable(name)
		require.NoError(t, err)
		lv, err := loaded[name].Variable(name)
		require.NoError(t, err)
		assert.Assert(t, ev.Equal(lv), name)
	}

	// records are sorted by name
	out := buf.String()
	assert.Assert(t, strings.Index(out, "age:") < strings.Index(out, "wealth:"))
}

func TestNewRegistryFromMetadata(t *testing.T) {
	registry, err := NewRegistryFromMetadata(Metadata{
		"age":    {Module: "ppath", DType: DType{Name: "int64"}},
		"income": {Module: "pequiv", DType: DType{Name: "float64"}, SurveyYears: []int{2021, 2019}},
		"wealth": {Module: "hwealth", DType: DType{Name: "float64"}, SurveyYears: []int{2020, 2019}},
	})
	require.NoError(t, err)

	assert.DeepEqual(t, []string{"age", "income", "wealth"}, registry.Names())
	assert.DeepEqual(t, []int{2019, 2020, 2021}, registry.KnownYears())
	assert.DeepEqual(t, map[string]string{"age": "ppath", "income": "pequiv", "wealth": "hwealth"},
		registry.VariableToTable())

	income, err := registry.Lookup("income")
	require.NoError(t, err)
	assert.Assert(t, income.IsTimeVarying())

	_, err = NewRegistryFromMetadata(Metadata{
		ColPersonID: {Module: "ppath", DType: DType{Name: "int64"}},
		"age":       {DType: DType{Name: "int64"}},
	})
	require.ErrorContains(t, err, "reserved key column 'person_id'")
	require.ErrorContains(t, err, "variable 'age' has no module")
}
