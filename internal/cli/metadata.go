package cli

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	soep "github.com/ttsim-dev/soep-preparation-sub000"
)

func newMetadataCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Inspect and generate variable metadata",
		Long: `Inspect and generate the *.meta.yaml files describing each variable: its owning
table, its type or categories, and the survey years where it has values.`,
	}

	cmd.AddCommand(newMetadataListCmd(st))
	cmd.AddCommand(newMetadataGenerateCmd(st))
	cmd.AddCommand(newMetadataCheckCmd(st))
	cmd.AddCommand(newMetadataVerifyCmd(st))
	return cmd
}

func newMetadataListCmd(st *state) *cobra.Command {
	var module string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the variables of the metadata files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := st.loadMetadata()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "VARIABLE\tMODULE\tDTYPE\tSURVEY YEARS")
			for _, name := range m.Names() {
				v := m[name]
				if module != "" && v.Module != module {
					continue
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, v.Module, formatDType(v.DType),
					formatYears(v.SurveyYears))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "only list the variables of this module")
	return cmd
}

func newMetadataGenerateCmd(st *state) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write metadata files derived from the cleaned tables",
		Long: `Derive the metadata of every variable from the cleaned tables of the data directory and
write one <module>.meta.yaml file per table to --output (default: the metadata directory).
Categories of variables that already have a metadata record are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = st.cfg.Paths.MetadataDir
			}

			// existing records provide the categories, which CSV files do not store
			stored, err := st.loadRegistry()
			if err != nil {
				return err
			}
			tables, err := st.loadTables(stored)
			if err != nil {
				return err
			}
			registry, err := soep.NewRegistry(tables)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(output, 0o755); err != nil {
				return fmt.Errorf("error creating metadata directory: %w", err)
			}

			byModule := map[string]soep.Metadata{}
			for name, v := range registry.Metadata() {
				if byModule[v.Module] == nil {
					byModule[v.Module] = soep.Metadata{}
				}
				byModule[v.Module][name] = v
			}

			for _, module := range slices.Sorted(maps.Keys(byModule)) {
				fileName := filepath.Join(output, module+soep.MetadataFileSuffix)
				if err := writeMetadataFile(fileName, byModule[module]); err != nil {
					return err
				}
				st.logger.Debug("metadata written", slog.String("file", fileName),
					slog.Int("variables", len(byModule[module])))
			}

			PrintSuccess(cmd.ErrOrStderr(), fmt.Sprintf("wrote metadata of %d variables in %d modules to %s",
				registry.Len(), len(byModule), output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory")
	return cmd
}

func writeMetadataFile(fileName string, m soep.Metadata) error {
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("error creating '%s': %w", fileName, err)
	}
	if err := soep.WriteMetadata(f, m); err != nil {
		_ = f.Close()
		return fmt.Errorf("error writing '%s': %w", fileName, err)
	}
	return f.Close()
}

func newMetadataCheckCmd(st *state) *cobra.Command {
	var years []int

	cmd := &cobra.Command{
		Use:   "check <variable>...",
		Short: "Check that variables are known, suggesting close names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := st.loadMetadata()
			if err != nil {
				return err
			}
			registry, err := soep.NewRegistryFromMetadata(m)
			if err != nil {
				return err
			}

			if err := registry.Validate(args...); err != nil {
				return err
			}

			if len(years) > 0 {
				known := registry.KnownYears()
				var invalid []int
				for _, y := range years {
					if !slices.Contains(known, y) {
						invalid = append(invalid, y)
					}
				}
				if len(invalid) > 0 {
					return &soep.InvalidSurveyYearError{Years: invalid, Known: known}
				}
			}

			for _, name := range args {
				if soep.IsKeyColumn(name) {
					continue
				}
				v, err := registry.Lookup(name)
				if err != nil {
					return err
				}
				if v.IsTimeVarying() && len(years) == 0 {
					PrintWarning(cmd.ErrOrStderr(), fmt.Sprintf("%s is time-varying, --years is required to assemble it",
						name))
				}
			}

			PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("%d variable(s) known", len(args)))
			return nil
		},
	}
	cmd.Flags().IntSliceVarP(&years, "years", "y", nil, "survey years to check, comma separated")
	return cmd
}

func newMetadataVerifyCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare the metadata files with the cleaned tables",
		Long: `Derive the metadata from the cleaned tables and report every variable whose metadata
file record is missing, outdated or without a table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := st.loadMetadata()
			if err != nil {
				return err
			}
			stored, err := soep.NewRegistryFromMetadata(m)
			if err != nil {
				return err
			}

			tables, err := st.loadTables(stored)
			if err != nil {
				return err
			}
			derived, err := soep.NewRegistry(tables)
			if err != nil {
				return err
			}

			diffs := diffRegistries(stored, derived)
			for _, d := range diffs {
				PrintWarning(cmd.OutOrStdout(), d)
			}
			if len(diffs) > 0 {
				return fmt.Errorf("metadata differs from the tables in %d variable(s)", len(diffs))
			}
			PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("metadata of %d variables matches the tables", derived.Len()))
			return nil
		},
	}
	return cmd
}

// diffRegistries describes the variables that differ between the stored and the derived registry.
func diffRegistries(stored, derived *soep.Registry) []string {
	var ret []string
	for _, name := range derived.Names() {
		dv, _ := derived.Lookup(name)
		if !stored.Has(name) {
			ret = append(ret, fmt.Sprintf("%s: no metadata record (table '%s')", name, dv.Table))
			continue
		}
		sv, _ := stored.Lookup(name)
		// metadata keeps the categories, not the element type of categorical columns
		if sv.Categories != nil {
			dv.DType = sv.DType
		}
		if !sv.Equal(dv) {
			ret = append(ret, fmt.Sprintf("%s: metadata record is outdated", name))
		}
	}
	for _, name := range stored.Names() {
		if !derived.Has(name) {
			sv, _ := stored.Lookup(name)
			ret = append(ret, fmt.Sprintf("%s: no column in table '%s'", name, sv.Table))
		}
	}
	return ret
}

func formatDType(d soep.DType) string {
	if !d.IsCategorical() {
		return d.Name
	}
	ordered := ""
	if d.Ordered {
		ordered = ", ordered"
	}
	return fmt.Sprintf("category[%s%s] %v", d.CategoriesDType, ordered, d.Categories)
}
