// Package persister ties an entity descriptor to its batch loader.
package persister

import (
	"context"
	"fmt"
	"strings"

	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/core/loader"
	"github.com/satishbabariya/ormcore/internal/core/loader/builder"
	"github.com/satishbabariya/ormcore/internal/core/loader/cache"
	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
	"github.com/satishbabariya/ormcore/internal/core/session"
	"github.com/satishbabariya/ormcore/internal/debug"
)

// Strategy selects the binding strategy of a persister's loader.
type Strategy string

const (
	// StrategyAuto uses an array parameter when the driver can bind one for
	// the identifier type, inline parameters otherwise.
	StrategyAuto Strategy = "auto"
	// StrategyInline forces one parameter per key.
	StrategyInline Strategy = "inline"
	// StrategyArray forces a single array parameter.
	StrategyArray Strategy = "array"
)

// ParseStrategy parses auto, inline or array. The empty string means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyInline:
		return StrategyInline, nil
	case StrategyArray:
		return StrategyArray, nil
	default:
		return "", fmt.Errorf("unknown batch strategy %q (want auto, inline or array)", s)
	}
}

// Options configures persister creation.
type Options struct {
	Policy   loader.BatchSizePolicy
	Strategy Strategy
}

// EntityPersister loads one entity type. It is shared by every session of a
// client and safe for concurrent use.
type EntityPersister struct {
	desc   *metadata.EntityDescriptor
	loader loader.BatchLoader
	cache  *cache.StatementCache
}

// New creates the persister of desc for a database with the given features.
func New(desc *metadata.EntityDescriptor, entities *metadata.Registry, types *metadata.TypeRegistry, features database.Features, opts Options) (*EntityPersister, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyAuto
	}
	if opts.Policy == (loader.BatchSizePolicy{}) {
		opts.Policy = loader.DefaultBatchSizePolicy()
	}

	useArray, err := selectArray(desc, types, features, opts.Strategy)
	if err != nil {
		return nil, err
	}

	c := cache.NewStatementCache()
	cfg := loader.Config{
		Descriptor: desc,
		Entities:   entities,
		Types:      types,
		Builder:    builder.New(features),
		Cache:      c,
	}

	var l loader.BatchLoader
	if useArray {
		cfg.BatchSize = opts.Policy.Resolve(desc.BatchSize, 0)
		l, err = loader.NewArray(cfg)
	} else {
		cfg.BatchSize = opts.Policy.Resolve(desc.BatchSize, features.MaxBindParameters)
		l, err = loader.NewInline(cfg)
	}
	if err != nil {
		return nil, err
	}

	debug.Debug("Created entity persister", "entity", desc.Name, "loader", fmt.Sprint(l))
	return &EntityPersister{desc: desc, loader: l, cache: c}, nil
}

func selectArray(desc *metadata.EntityDescriptor, types *metadata.TypeRegistry, features database.Features, strategy Strategy) (bool, error) {
	switch strategy {
	case StrategyInline:
		return false, nil
	case StrategyArray:
		return true, nil
	case StrategyAuto:
		if !features.SupportsArrayParameters() || types == nil {
			return false, nil
		}
		_, err := types.ArrayTypeFor(desc.Identifier.GoType)
		return err == nil, nil
	default:
		return false, fmt.Errorf("unknown batch strategy %q", strategy)
	}
}

// Load loads the entity with the given id through the batch loader.
func (p *EntityPersister) Load(ctx context.Context, q database.Querier, pc *session.PersistenceContext, id any, instance any, opts domain.LoadOptions) (any, error) {
	return p.loader.Load(ctx, q, pc, id, instance, opts)
}

// Descriptor returns the entity metadata.
func (p *EntityPersister) Descriptor() *metadata.EntityDescriptor {
	return p.desc
}

// Loader returns the batch loader.
func (p *EntityPersister) Loader() loader.BatchLoader {
	return p.loader
}

// CacheStats returns the statement cache statistics.
func (p *EntityPersister) CacheStats() cache.Stats {
	return p.cache.GetStats()
}

// String implements fmt.Stringer.
func (p *EntityPersister) String() string {
	return fmt.Sprintf("EntityPersister(%s)", p.desc.Name)
}
