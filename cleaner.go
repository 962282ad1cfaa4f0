package soep

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Cleaner turns one raw survey table into a cleaned table with key columns and typed variables.
type Cleaner interface {
	Clean(raw *Table) (*Table, error)
}

// CleanerFunc implements Cleaner with a function.
type CleanerFunc func(raw *Table) (*Table, error)

func (f CleanerFunc) Clean(raw *Table) (*Table, error) {
	return f(raw)
}

// CleanerRegistry maps table names to their cleaners. Cleaners are registered at program start.
type CleanerRegistry struct {
	mu       sync.RWMutex
	cleaners map[string]Cleaner
}

// NewCleanerRegistry creates an empty registry.
func NewCleanerRegistry() *CleanerRegistry {
	return &CleanerRegistry{
		cleaners: map[string]Cleaner{},
	}
}

// Register adds the cleaner of a table. Registering the same table twice panics.
func (r *CleanerRegistry) Register(table string, cleaner Cleaner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cleaners[table]; ok {
		panic(fmt.Sprintf("cleaner for table '%s' already registered", table))
	}
	r.cleaners[table] = cleaner
}

// Get returns the cleaner of a table.
func (r *CleanerRegistry) Get(table string) (Cleaner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cleaners[table]
	return c, ok
}

// Names returns the registered table names, sorted.
func (r *CleanerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.cleaners))
}

var defaultCleaners = NewCleanerRegistry()

// RegisterCleaner adds the cleaner of a table to the default registry, usually from an init function.
func RegisterCleaner(table string, cleaner Cleaner) {
	defaultCleaners.Register(table, cleaner)
}

// DefaultCleaners returns the registry used by RegisterCleaner.
func DefaultCleaners() *CleanerRegistry {
	return defaultCleaners
}

// CleanAll cleans every raw table with its registered cleaner, at most cfg.CleanConcurrency tables at a time.
// The cleaned tables are named after their raw table. A raw table without a cleaner is an error, and the first
// failing cleaner cancels the remaining ones.
func (r *CleanerRegistry) CleanAll(ctx context.Context, raw map[string]*Table, cfg Config) (map[string]*Table, error) {
	names := slices.Sorted(maps.Keys(raw))
	cleaners := make([]Cleaner, len(names))
	for i, name := range names {
		c, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: no cleaner for table '%s'", ErrTableNotFound, name)
		}
		cleaners[i] = c
	}

	results := make([]*Table, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.CleanConcurrency))
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cleaned, err := cleaners[i].Clean(raw[name])
			if err != nil {
				return fmt.Errorf("error cleaning table '%s': %w", name, err)
			}
			if _, err := Classify(cleaned); err != nil {
				return fmt.Errorf("error cleaning table '%s': %w", name, err)
			}
			results[i] = cleaned.Rename(name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ret := make(map[string]*Table, len(names))
	for i, name := range names {
		ret[name] = results[i]
	}
	return ret, nil
}

// ColumnRule converts the raw column Source into the cleaned column Target.
type ColumnRule struct {
	Source  string
	Target  string
	Convert ColumnConverter
}

// ColumnConverter converts a raw column with a Codec.
type ColumnConverter func(cd *Codec, c *Column) (*Column, error)

// ConvertNumeric converts with Codec.ToNumeric.
func ConvertNumeric(kind NumericKind) ColumnConverter {
	return func(cd *Codec, c *Column) (*Column, error) {
		return cd.ToNumeric(c, kind)
	}
}

// ConvertBool converts with Codec.ToBoolCategorical.
func ConvertBool(renaming *RenamingSpec) ColumnConverter {
	return func(cd *Codec, c *Column) (*Column, error) {
		return cd.ToBoolCategorical(c, renaming)
	}
}

// ConvertInt converts with Codec.ToIntCategorical.
func ConvertInt(renaming *RenamingSpec, ordered bool) ColumnConverter {
	return func(cd *Codec, c *Column) (*Column, error) {
		return cd.ToIntCategorical(c, renaming, ordered)
	}
}

// ConvertString converts with Codec.ToStringCategorical.
func ConvertString(renaming *RenamingSpec, dropPrefixTokens int, ordered bool) ColumnConverter {
	return func(cd *Codec, c *Column) (*Column, error) {
		return cd.ToStringCategorical(c, renaming, dropPrefixTokens, ordered)
	}
}

// RuleCleaner is a Cleaner that converts raw columns one by one. Raw columns without a rule are dropped.
type RuleCleaner struct {
	Codec *Codec
	Rules []ColumnRule
}

var _ Cleaner = (*RuleCleaner)(nil)

// NewRuleCleaner creates a RuleCleaner using the codec settings.
func NewRuleCleaner(cfg Config, rules ...ColumnRule) *RuleCleaner {
	return &RuleCleaner{
		Codec: NewCodec(cfg),
		Rules: rules,
	}
}

func (rc *RuleCleaner) Clean(raw *Table) (*Table, error) {
	codec := rc.Codec
	if codec == nil {
		codec = defaultCodec
	}

	columns := make([]*Column, 0, len(rc.Rules))
	for _, rule := range rc.Rules {
		c, ok := raw.Column(rule.Source)
		if !ok {
			return nil, fmt.Errorf("table '%s': %w: '%s'", raw.Name, ErrColumnNotFound, rule.Source)
		}
		if rule.Convert != nil {
			var err error
			c, err = rule.Convert(codec, c)
			if err != nil {
				return nil, fmt.Errorf("column '%s': %w", rule.Source, err)
			}
		}
		target := rule.Target
		if target == "" {
			target = rule.Source
		}
		columns = append(columns, c.Rename(target))
	}
	return NewTable(raw.Name, columns...)
}
