package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	soep "github.com/ttsim-dev/soep-preparation-sub000"
	"github.com/ttsim-dev/soep-preparation-sub000/internal/config"
	"github.com/ttsim-dev/soep-preparation-sub000/internal/csvtable"
	"github.com/ttsim-dev/soep-preparation-sub000/internal/logging"
)

// state is shared by all commands of one command tree.
type state struct {
	flags struct {
		metadataDir string
		dataDir     string
		logLevel    string
		logFormat   string
		envFile     string
	}

	cfg    *config.Config
	logger *slog.Logger
}

// init loads the env file and the configuration from the environment, applies the global flags and sets up
// logging.
func (s *state) init(cmd *cobra.Command) error {
	envLoaded, err := config.LoadEnvFile(s.flags.envFile)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if s.flags.metadataDir != "" {
		cfg.Paths.MetadataDir = s.flags.metadataDir
	}
	if s.flags.dataDir != "" {
		cfg.Paths.DataDir = s.flags.dataDir
	}
	if s.flags.logLevel != "" {
		cfg.Logging.Level = s.flags.logLevel
	}
	if s.flags.logFormat != "" {
		cfg.Logging.Format = s.flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	s.cfg = cfg
	s.logger = logging.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	s.logger.Debug("configuration loaded",
		slog.Bool("env_file", envLoaded),
		slog.String("config", cfg.String()))
	return nil
}

// loadMetadata reads the metadata directory. A missing directory returns nil metadata.
func (s *state) loadMetadata() (soep.Metadata, error) {
	dir := s.cfg.Paths.MetadataDir
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("metadata directory not found", slog.String("dir", dir))
			return nil, nil
		}
		return nil, err
	}

	m, err := soep.LoadMetadata(soep.NewDirectoryFileProvider(dir))
	if err != nil {
		return nil, fmt.Errorf("error loading metadata from '%s': %w", dir, err)
	}
	s.logger.Debug("metadata loaded", slog.String("dir", dir), slog.Int("variables", len(m)))
	return m, nil
}

// loadRegistry builds the registry from the metadata directory. It returns nil when there is no metadata, in which
// case the registry is derived from the tables.
func (s *state) loadRegistry() (*soep.Registry, error) {
	m, err := s.loadMetadata()
	if err != nil || len(m) == 0 {
		return nil, err
	}
	return soep.NewRegistryFromMetadata(m)
}

// loadTables reads all cleaned tables of the data directory. registry may be nil.
func (s *state) loadTables(registry *soep.Registry) (map[string]*soep.Table, error) {
	dir := s.cfg.Paths.DataDir
	tables, err := csvtable.LoadTables(soep.NewDirectoryFileProvider(dir, soep.WithFileSuffix(csvtable.FileSuffix)),
		registry)
	if err != nil {
		return nil, fmt.Errorf("error loading tables from '%s': %w", dir, err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no table files in '%s'", soep.ErrTableNotFound, dir)
	}
	s.logger.Debug("tables loaded", slog.String("dir", dir), slog.Int("tables", len(tables)))
	return tables, nil
}
