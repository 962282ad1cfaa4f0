package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// SetVersion sets the version printed by --version and the version command.
func SetVersion(v string) {
	if v == "" {
		return
	}
	version = v
}

// newRootCmd builds the command tree. Each call returns fresh flag values.
func newRootCmd() *cobra.Command {
	st := &state{}

	rootCmd := &cobra.Command{
		Use:     "soepmerge",
		Version: version,
		Short:   "Assemble analysis datasets from cleaned SOEP tables",
		Long: `soepmerge merges variables of cleaned SOEP survey tables into a single dataset.

Cleaned tables are read as CSV files from the data directory, variable metadata as
*.meta.yaml files from the metadata directory. The assembled dataset is written as CSV
and can be exported to PostgreSQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.init(cmd)
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetHelpFunc(customHelpFunc)

	// Global flags, overriding the environment
	rootCmd.PersistentFlags().StringVar(&st.flags.metadataDir, "metadata-dir", "",
		"directory of the *.meta.yaml files (env SOEP_METADATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&st.flags.dataDir, "data-dir", "",
		"directory of the cleaned table CSV files (env SOEP_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&st.flags.logLevel, "log-level", "",
		"log level: debug, info, warn, error (env LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&st.flags.logFormat, "log-format", "",
		"log format: text or json (env LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&st.flags.envFile, "env-file", ".env",
		"dotenv file loaded before reading the environment, ignored if missing")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "datasets",
		Title: "Datasets:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "metadata",
		Title: "Metadata:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	assembleCmd := newAssembleCmd(st)
	assembleCmd.GroupID = "datasets"
	rootCmd.AddCommand(assembleCmd)

	metadataCmd := newMetadataCmd(st)
	metadataCmd.GroupID = "metadata"
	rootCmd.AddCommand(metadataCmd)

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the soepmerge version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cmd.Root().Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			target, _, err := cmd.Root().Find(args)
			if err != nil || target == nil {
				target = cmd.Root()
			}
			_ = target.Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	return rootCmd
}

// customHelpFunc colors the section and group titles of the help output.
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	} else if cmd.Short != "" {
		help.WriteString(cmd.Short)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		help.WriteString(groupTitleColor.Sprint(group.Title))
		help.WriteString("\n")
		for _, c := range cmd.Commands() {
			if c.GroupID == group.ID && !c.Hidden {
				fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
			}
		}
		help.WriteString("\n")
	}

	hasUngrouped := false
	for _, c := range cmd.Commands() {
		if c.GroupID == "" && !c.Hidden {
			if !hasUngrouped {
				help.WriteString(sectionTitleColor.Sprint("Commands:"))
				help.WriteString("\n")
				hasUngrouped = true
			}
			fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
		}
	}
	if hasUngrouped {
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailableInheritedFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

// Execute runs the command line. Errors are printed to stderr before being returned.
func Execute() error {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	if err != nil {
		PrintError(rootCmd.ErrOrStderr(), err)
	}
	return err
}
