package soep

import (
	"io"
	"log/slog"
	"slices"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// AssembleOption is an option for Assemble.
type AssembleOption func(*assembleOptions)

type assembleOptions struct {
	surveyYears []int
	registry    *Registry
	logger      *slog.Logger
	tableName   string
}

// WithSurveyYears restricts the assembled table to these survey years. It is required when a time-varying variable
// is requested.
func WithSurveyYears(years ...int) AssembleOption {
	return func(o *assembleOptions) {
		o.surveyYears = append(o.surveyYears, years...)
	}
}

// WithRegistry uses a prebuilt registry instead of building one from the tables on each call.
func WithRegistry(registry *Registry) AssembleOption {
	return func(o *assembleOptions) {
		o.registry = registry
	}
}

// WithLogger sets a logger. The default discards all output.
func WithLogger(logger *slog.Logger) AssembleOption {
	return func(o *assembleOptions) {
		o.logger = logger
	}
}

// WithTableName sets the name of the assembled table. The default is "dataset".
func WithTableName(name string) AssembleOption {
	return func(o *assembleOptions) {
		o.tableName = name
	}
}

func newAssembleOptions(options []AssembleOption) assembleOptions {
	optns := assembleOptions{
		logger:    discardLogger,
		tableName: "dataset",
	}
	for _, opt := range options {
		opt(&optns)
	}
	if optns.logger == nil {
		optns.logger = discardLogger
	}
	slices.Sort(optns.surveyYears)
	optns.surveyYears = slices.Compact(optns.surveyYears)
	return optns
}
