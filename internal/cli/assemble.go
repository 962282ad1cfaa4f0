package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	soep "github.com/ttsim-dev/soep-preparation-sub000"
	"github.com/ttsim-dev/soep-preparation-sub000/db/sql"
	"github.com/ttsim-dev/soep-preparation-sub000/db/sql/postgres"
	"github.com/ttsim-dev/soep-preparation-sub000/internal/csvtable"
)

type assembleFlags struct {
	years     []int
	output    string
	tableName string
	export    bool
	insert    bool
	batchSize int
}

func newAssembleCmd(st *state) *cobra.Command {
	var flags assembleFlags

	cmd := &cobra.Command{
		Use:   "assemble <variable>...",
		Short: "Merge variables into one dataset",
		Long: `Merge the requested variables of the cleaned tables into one dataset.

Time-varying variables require --years. The dataset has the key columns first, followed
by the variables in request order, and is written as CSV to --output (default: stdout).
With --export, the dataset is also written to the PostgreSQL database of DATABASE_URL.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(cmd, st, flags, args)
		},
	}

	cmd.Flags().IntSliceVarP(&flags.years, "years", "y", nil, "survey years to include, comma separated")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "-", "CSV output file, - for stdout")
	cmd.Flags().StringVar(&flags.tableName, "table-name", "dataset", "name of the dataset and of the exported table")
	cmd.Flags().BoolVar(&flags.export, "export", false, "export the dataset to the database of DATABASE_URL")
	cmd.Flags().BoolVar(&flags.insert, "insert", false, "export with INSERT statements instead of COPY")
	cmd.Flags().IntVar(&flags.batchSize, "batch-size", 500, "rows per INSERT statement")

	return cmd
}

func runAssemble(cmd *cobra.Command, st *state, flags assembleFlags, variables []string) error {
	if flags.export && st.cfg.Database.URL == "" {
		return fmt.Errorf("--export requires DATABASE_URL")
	}

	registry, err := st.loadRegistry()
	if err != nil {
		return err
	}
	tables, err := st.loadTables(registry)
	if err != nil {
		return err
	}

	options := []soep.AssembleOption{
		soep.WithSurveyYears(flags.years...),
		soep.WithLogger(st.logger),
		soep.WithTableName(flags.tableName),
	}
	if registry != nil {
		options = append(options, soep.WithRegistry(registry))
	}

	dataset, err := soep.Assemble(tables, variables, options...)
	if err != nil {
		return err
	}

	if err := writeDataset(cmd.OutOrStdout(), flags.output, dataset); err != nil {
		return err
	}

	if flags.export {
		ctx, cancel := context.WithTimeout(cmd.Context(), st.cfg.Database.Timeout)
		defer cancel()

		tableID := soep.NewSchemaTableName(st.cfg.Database.Schema, flags.tableName)
		if err := exportDataset(ctx, st, flags, dataset, tableID); err != nil {
			return err
		}
		PrintSuccess(cmd.ErrOrStderr(), fmt.Sprintf("exported %d rows to %s", dataset.Len(), tableID.TableID()))
	}

	PrintSuccess(cmd.ErrOrStderr(), fmt.Sprintf("assembled %d rows, %d columns", dataset.Len(), dataset.NumColumns()))
	return nil
}

func writeDataset(stdout io.Writer, output string, dataset *soep.Table) error {
	if output == "" || output == "-" {
		return csvtable.Write(stdout, dataset)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if err := csvtable.Write(f, dataset); err != nil {
		_ = f.Close()
		return fmt.Errorf("error writing '%s': %w", output, err)
	}
	return f.Close()
}

func exportDataset(ctx context.Context, st *state, flags assembleFlags, dataset *soep.Table,
	tableID soep.TableID) error {
	conn, err := pgx.Connect(ctx, st.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer func() {
		_ = conn.Close(context.WithoutCancel(ctx))
	}()

	if flags.insert {
		return postgres.Export(ctx, dataset, tableID, postgres.NewPgxQueryInterface(conn),
			sql.WithBatchSize(flags.batchSize))
	}

	n, err := postgres.CopyTable(ctx, conn, dataset, tableID)
	if err != nil {
		return err
	}
	st.logger.Info("dataset copied", slog.String("table", tableID.TableID()), slog.Int64("rows", n))
	return nil
}
