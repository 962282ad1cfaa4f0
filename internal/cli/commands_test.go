package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	soep "github.com/ttsim-dev/soep-preparation-sub000"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

// setupEnv clears the variables read by the configuration loader and writes the test tables.
func setupEnv(t *testing.T) (dataDir string, metadataDir string) {
	t.Helper()
	for _, name := range []string{"SOEP_METADATA_DIR", "SOEP_DATA_DIR", "SOEP_SENTINEL_MIN", "SOEP_SENTINEL_MAX",
		"SOEP_PREFIX_TOKENS", "SOEP_NARROW_FLOATS", "SOEP_CLEAN_CONCURRENCY", "DATABASE_URL", "DB_URL",
		"SOEP_DB_SCHEMA", "SOEP_DB_TIMEOUT", "LOG_FORMAT"} {
		t.Setenv(name, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	root := t.TempDir()
	dataDir = filepath.Join(root, "data")
	metadataDir = filepath.Join(root, "metadata")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	writeFile(t, filepath.Join(dataDir, "ppath.csv"), "person_id,age\n1,30\n2,40\n")
	writeFile(t, filepath.Join(dataDir, "pequiv.csv"),
		"person_id,survey_year,income\n1,2020,1000\n1,2021,1100\n3,2020,500\n")
	return dataDir, metadataDir
}

func writeFile(t *testing.T, name string, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(data), 0o644))
}

func runCLI(args ...string) (stdout string, stderr string, err error) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootHelp(t *testing.T) {
	stdout, _, err := runCLI("--help")
	assert.NilError(t, err)
	assert.Check(t, is.Contains(stdout, "soepmerge"))
	assert.Check(t, is.Contains(stdout, "Datasets:"))
	assert.Check(t, is.Contains(stdout, "assemble"))
	assert.Check(t, is.Contains(stdout, "metadata"))
}

func TestVersion(t *testing.T) {
	SetVersion("1.2.3")
	defer SetVersion("dev")

	stdout, _, err := runCLI("--version")
	assert.NilError(t, err)
	assert.Equal(t, "1.2.3\n", stdout)

	stdout, _, err = runCLI("version")
	assert.NilError(t, err)
	assert.Equal(t, "1.2.3\n", stdout)
}

func TestInvalidCommand(t *testing.T) {
	_, _, err := runCLI("invalid-command")
	assert.Assert(t, err != nil)
}

func TestAssemble(t *testing.T) {
	dataDir, metadataDir := setupEnv(t)

	stdout, stderr, err := runCLI("assemble", "age", "income", "--years", "2020,2021",
		"--data-dir", dataDir, "--metadata-dir", metadataDir)
	assert.NilError(t, err)
	assert.Equal(t, "person_id,survey_year,age,income\n"+
		"1,2020,30,1000\n"+
		"1,2021,30,1100\n"+
		"3,2020,,500\n", stdout)
	assert.Check(t, is.Contains(stderr, "assembled 3 rows, 4 columns"))
}

func TestAssembleOutputFile(t *testing.T) {
	dataDir, metadataDir := setupEnv(t)
	output := filepath.Join(t.TempDir(), "out.csv")

	stdout, _, err := runCLI("assemble", "income", "--years", "2021", "--output", output,
		"--data-dir", dataDir, "--metadata-dir", metadataDir)
	assert.NilError(t, err)
	assert.Equal(t, "", stdout)

	data, err := os.ReadFile(output)
	assert.NilError(t, err)
	assert.Equal(t, "person_id,survey_year,income\n1,2021,1100\n", string(data))
}

func TestAssembleErrors(t *testing.T) {
	dataDir, metadataDir := setupEnv(t)

	_, _, err := runCLI("assemble", "ag", "--data-dir", dataDir, "--metadata-dir", metadataDir)
	var invalid *soep.InvalidVariableError
	require.ErrorAs(t, err, &invalid)
	assert.DeepEqual(t, []string{"ag"}, invalid.Names)

	_, _, err = runCLI("assemble", "income", "--data-dir", dataDir, "--metadata-dir", metadataDir)
	require.ErrorIs(t, err, soep.ErrMissingSurveyYears)

	_, _, err = runCLI("assemble", "income", "--years", "1900", "--data-dir", dataDir, "--metadata-dir", metadataDir)
	require.ErrorIs(t, err, soep.ErrInvalidSurveyYear)

	_, _, err = runCLI("assemble", "income", "--years", "2020", "--export",
		"--data-dir", dataDir, "--metadata-dir", metadataDir)
	require.ErrorContains(t, err, "DATABASE_URL")

	_, _, err = runCLI("assemble", "income", "--data-dir", filepath.Join(dataDir, "missing"),
		"--metadata-dir", metadataDir)
	require.Error(t, err)

	_, _, err = runCLI("assemble", "income", "--log-format", "xml", "--data-dir", dataDir)
	require.ErrorContains(t, err, "LOG_FORMAT")
}

func TestMetadataGenerate(t *testing.T) {
	dataDir, metadataDir := setupEnv(t)

	_, stderr, err := runCLI("metadata", "generate", "--data-dir", dataDir, "--metadata-dir", metadataDir)
	assert.NilError(t, err)
	assert.Check(t, is.Contains(stderr, "wrote metadata of 2 variables in 2 modules"))

	data, err := os.ReadFile(filepath.Join(metadataDir, "pequiv.meta.yaml"))
	assert.NilError(t, err)
	assert.Check(t, is.Contains(string(data), "income:"))
	assert.Check(t, is.Contains(string(data), "module: pequiv"))

	m, err := soep.LoadMetadata(soep.NewDirectoryFileProvider(metadataDir))
	assert.NilError(t, err)
	assert.DeepEqual(t, []string{"age", "income"}, m.Names())
	assert.DeepEqual(t, []int{2020, 2021}, m["income"].SurveyYears)
	assert.Assert(t, m["age"].SurveyYears == nil)

	stdout, _, err := runCLI("metadata", "list", "--metadata-dir", metadataDir)
	assert.NilError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Equal(t, 3, len(lines))
	assert.Check(t, is.Contains(lines[0], "VARIABLE"))
	assert.Check(t, is.Contains(lines[1], "age"))
	assert.Check(t, is.Contains(lines[1], "-"))
	assert.Check(t, is.Contains(lines[2], "income"))
	assert.Check(t, is.Contains(lines[2], "2020,2021"))

	stdout, _, err = runCLI("metadata", "list", "--module", "ppath", "--metadata-dir", metadataDir)
	assert.NilError(t, err)
	assert.Check(t, !strings.Contains(stdout, "income"))

	stdout, _, err = runCLI("metadata", "verify", "--data-dir", dataDir, "--metadata-dir", metadataDir)
	assert.NilError(t, err)
	assert.Check(t, is.Contains(stdout, "metadata of 2 variables matches the tables"))

	// assembling with the metadata registry gives the same dataset
	stdout, _, err = runCLI("assemble", "age", "income", "--years", "2020,2021",
		"--data-dir", dataDir, "--metadata-dir", metadataDir)
	assert.NilError(t, err)
	assert.Check(t, is.Contains(stdout, "3,2020,,500\n"))
}

func TestMetadataVerifyOutdated(t *testing.T) {
	dataDir, metadataDir := setupEnv(t)
	require.NoError(t, os.MkdirAll(metadataDir, 0o755))
	writeFile(t, filepath.Join(metadataDir, "pequiv.meta.yaml"), `
income:
  module: pequiv
  dtype: int64
  survey_years: [2020]
wealth:
  module: pequiv
  dtype: float64
  survey_years: [2020]
`)

	stdout, _, err := runCLI("metadata", "verify", "--data-dir", dataDir, "--metadata-dir", metadataDir)
	require.ErrorContains(t, err, "differs from the tables in 3 variable(s)")
	assert.Check(t, is.Contains(stdout, "age: no metadata record (table 'ppath')"))
	assert.Check(t, is.Contains(stdout, "income: metadata record is outdated"))
	assert.Check(t, is.Contains(stdout, "wealth: no column in table 'pequiv'"))
}

func TestMetadataCheck(t *testing.T) {
	dataDir, metadataDir := setupEnv(t)
	_, _, err := runCLI("metadata", "generate", "--data-dir", dataDir, "--metadata-dir", metadataDir)
	assert.NilError(t, err)

	stdout, stderr, err := runCLI("metadata", "check", "age", "income", "--metadata-dir", metadataDir)
	assert.NilError(t, err)
	assert.Check(t, is.Contains(stdout, "2 variable(s) known"))
	assert.Check(t, is.Contains(stderr, "income is time-varying"))

	_, _, err = runCLI("metadata", "check", "income", "--years", "1900", "--metadata-dir", metadataDir)
	require.ErrorIs(t, err, soep.ErrInvalidSurveyYear)

	_, _, err = runCLI("metadata", "check", "ag", "--metadata-dir", metadataDir)
	var invalid *soep.InvalidVariableError
	require.ErrorAs(t, err, &invalid)
	require.NotEmpty(t, invalid.Suggestions["ag"])
	assert.Equal(t, "age", invalid.Suggestions["ag"][0].Name)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errors.New("boom"))
	assert.Check(t, is.Contains(buf.String(), "boom"))

	buf.Reset()
	PrintError(&buf, &soep.InvalidVariableError{
		Names: []string{"ag", "xyz"},
		Suggestions: map[string][]soep.Suggestion{
			"ag": {{Name: "age", Table: "ppath", Score: 0.8}},
		},
	})
	out := buf.String()
	assert.Check(t, is.Contains(out, "2 unknown variable(s)"))
	assert.Check(t, is.Contains(out, "did you mean age (ppath)?"))
	assert.Check(t, is.Contains(out, "xyz\n"))
}

func TestAssembleEnvFile(t *testing.T) {
	dataDir, metadataDir := setupEnv(t)
	envFile := filepath.Join(t.TempDir(), "soep.env")
	writeFile(t, envFile, "SOEP_DATA_DIR="+dataDir+"\nSOEP_METADATA_DIR="+metadataDir+"\n")

	stdout, _, err := runCLI("assemble", "age", "--env-file", envFile)
	assert.NilError(t, err)
	assert.Equal(t, "person_id,age\n1,30\n2,40\n", stdout)

	// a missing env file is ignored, the default data directory does not exist
	t.Setenv("SOEP_DATA_DIR", "")
	_, _, err = runCLI("assemble", "age", "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}
