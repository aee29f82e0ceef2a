package commands

import (
	"fmt"

	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/adapters/database/factory"
	"github.com/satishbabariya/ormcore/internal/core/loader"
	"github.com/satishbabariya/ormcore/internal/core/loader/builder"
	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
	"github.com/satishbabariya/ormcore/internal/core/persister"
	"github.com/spf13/cobra"
)

// planFlags describe a table and how its batch statement should be bound.
type planFlags struct {
	entity   string
	table    string
	id       string
	columns  []string
	dialect  string
	strategy string
	size     int
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.table, "table", "", "table to load from")
	cmd.Flags().StringVar(&f.entity, "entity", "", "entity name (default the table name)")
	cmd.Flags().StringVar(&f.id, "id", "id", "identifier column")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "selected columns besides the identifier")
	cmd.Flags().StringVar(&f.dialect, "dialect", "", "provider whose dialect is used (default database.provider)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "auto, inline or array (default batch.strategy)")
	cmd.Flags().IntVar(&f.size, "size", 0, "batch size (default batch.default_size)")
	_ = cmd.MarkFlagRequired("table")
}

// plan is the resolved batch statement of one table.
type plan struct {
	desc      *metadata.EntityDescriptor
	dialect   database.SQLDialect
	features  database.Features
	strategy  persister.Strategy
	size      int
	statement domain.LoaderStatement
}

// distinctStatements is how many statements the loader can prepare over
// its lifetime: one per partial batch size for inline, one for array.
func (p *plan) distinctStatements() int {
	if p.strategy == persister.StrategyArray {
		return 1
	}
	return p.size
}

func (a *app) buildPlan(f planFlags) (*plan, error) {
	provider := f.dialect
	if provider == "" {
		provider = a.cfg.Database.Provider
	}
	dialect, err := factory.Dialect(provider)
	if err != nil {
		return nil, err
	}

	strategyName := f.strategy
	if strategyName == "" {
		strategyName = a.cfg.Batch.Strategy
	}
	strategy, err := persister.ParseStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	features := database.FeaturesFor(dialect)
	if strategy == persister.StrategyAuto {
		strategy = persister.StrategyInline
		if features.SupportsArrayParameters() {
			strategy = persister.StrategyArray
		}
	}

	entity := f.entity
	if entity == "" {
		entity = f.table
	}
	columns := append([]string{f.id}, f.columns...)
	desc := metadata.TableDescriptor(entity, f.table, f.id, columns...)

	policy := loader.BatchSizePolicy{Default: a.cfg.Batch.DefaultSize, Max: a.cfg.Batch.MaxSize}
	b := builder.New(features)
	p := &plan{desc: desc, dialect: dialect, features: features, strategy: strategy}

	if strategy == persister.StrategyArray {
		p.size = policy.Resolve(f.size, 0)
		p.statement, err = b.Array(desc)
	} else {
		p.size = policy.Resolve(f.size, features.MaxBindParameters)
		p.statement, err = b.Inline(desc, p.size)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dialect, err)
	}
	return p, nil
}

func newSQLCommand(a *app) *cobra.Command {
	var flags planFlags

	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Print the batch load statement for a table",
		Long:  "Render the SELECT a batch loader runs for a table with the given dialect, strategy and batch size.",
		Example: `  ormctl sql --table orders --columns customer_id,total --dialect postgres
  ormctl sql --table orders --strategy inline --size 4 --dialect mysql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.buildPlan(flags)
			if err != nil {
				return err
			}
			a.printer.SQL(p.statement.SQL)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
