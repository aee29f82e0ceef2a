package loader

import (
	"fmt"

	"github.com/satishbabariya/ormcore/internal/core/loader/builder"
	"github.com/satishbabariya/ormcore/internal/core/loader/cache"
	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
)

// InlineBatchLoader binds one positional parameter per key. A statement is
// built and cached for each distinct batch size that occurs.
type InlineBatchLoader struct {
	*batchLoader
}

// NewInline creates an inline-parameter loader.
func NewInline(cfg Config) (*InlineBatchLoader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	b := &inlineBinder{
		desc:      cfg.Descriptor,
		builder:   cfg.Builder,
		cache:     cfg.Cache,
		batchSize: cfg.BatchSize,
	}
	return &InlineBatchLoader{batchLoader: newBatchLoader(cfg, b)}, nil
}

// String implements fmt.Stringer.
func (l *InlineBatchLoader) String() string {
	return fmt.Sprintf("InlineBatchLoader(%s [%d])", l.desc.Name, l.batchSize)
}

type inlineBinder struct {
	desc      *metadata.EntityDescriptor
	builder   *builder.Builder
	cache     *cache.StatementCache
	batchSize int
}

func (b *inlineBinder) strategy() domain.BindingStrategy {
	return domain.Inline(b.batchSize)
}

func (b *inlineBinder) bind(ids []any) (domain.LoaderStatement, []any, error) {
	n := len(ids)
	key := cache.Key{Entity: b.desc.Name, Kind: domain.InlineParameters, Size: n}
	stmt, err := b.cache.GetOrBuild(key, func() (domain.LoaderStatement, error) {
		return b.builder.Inline(b.desc, n)
	})
	if err != nil {
		return domain.LoaderStatement{}, nil, &domain.ConfigurationError{Entity: b.desc.Name, Cause: err}
	}
	return stmt, ids, nil
}

var _ BatchLoader = (*InlineBatchLoader)(nil)
