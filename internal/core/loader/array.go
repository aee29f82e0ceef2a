package loader

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/satishbabariya/ormcore/internal/core/loader/builder"
	"github.com/satishbabariya/ormcore/internal/core/loader/cache"
	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
)

// ArrayBatchLoader binds every key as one array parameter, so a single
// statement serves all batch sizes. The statement and the identifier's
// array type are resolved on first use.
type ArrayBatchLoader struct {
	*batchLoader
	array *arrayBinder
}

// NewArray creates a single-array-parameter loader. Setup errors surface on
// the first Load, not here.
func NewArray(cfg Config) (*ArrayBatchLoader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Types == nil {
		cfg.Types = metadata.NewTypeRegistry()
	}
	b := &arrayBinder{
		desc:    cfg.Descriptor,
		types:   cfg.Types,
		builder: cfg.Builder,
		cache:   cfg.Cache,
	}
	return &ArrayBatchLoader{batchLoader: newBatchLoader(cfg, b), array: b}, nil
}

// Prepare resolves the statement now instead of on first Load. It returns
// the same memoized error a Load would.
func (l *ArrayBatchLoader) Prepare() error {
	return l.array.prepare()
}

// String implements fmt.Stringer.
func (l *ArrayBatchLoader) String() string {
	return fmt.Sprintf("ArrayBatchLoader(%s [%d])", l.desc.Name, l.batchSize)
}

type arrayState int32

const (
	arrayCreated arrayState = iota
	arrayReady
	arrayFailed
)

type arrayBinder struct {
	desc    *metadata.EntityDescriptor
	types   *metadata.TypeRegistry
	builder *builder.Builder
	cache   *cache.StatementCache

	state atomic.Int32
	mu    sync.Mutex
	// Written once under mu before state leaves arrayCreated.
	stmt      domain.LoaderStatement
	arrayType metadata.ArrayType
	err       error
}

func (b *arrayBinder) strategy() domain.BindingStrategy {
	return domain.ArrayParameter()
}

func (b *arrayBinder) prepare() error {
	switch arrayState(b.state.Load()) {
	case arrayReady:
		return nil
	case arrayFailed:
		return b.err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch arrayState(b.state.Load()) {
	case arrayReady:
		return nil
	case arrayFailed:
		return b.err
	}

	arrayType, err := b.types.ArrayTypeFor(b.desc.Identifier.GoType)
	if err != nil {
		return b.fail(err)
	}

	key := cache.Key{Entity: b.desc.Name, Kind: domain.SingleArrayParameter}
	stmt, err := b.cache.GetOrBuild(key, func() (domain.LoaderStatement, error) {
		return b.builder.Array(b.desc)
	})
	if err != nil {
		return b.fail(err)
	}

	b.stmt = stmt
	b.arrayType = arrayType
	b.state.Store(int32(arrayReady))
	return nil
}

func (b *arrayBinder) fail(cause error) error {
	b.err = &domain.ConfigurationError{Entity: b.desc.Name, Cause: cause}
	b.state.Store(int32(arrayFailed))
	return b.err
}

func (b *arrayBinder) bind(ids []any) (domain.LoaderStatement, []any, error) {
	if err := b.prepare(); err != nil {
		return domain.LoaderStatement{}, nil, err
	}
	param, err := b.arrayType.BindValues(ids)
	if err != nil {
		return domain.LoaderStatement{}, nil, fmt.Errorf("bind array parameter: %w", err)
	}
	return b.stmt, []any{param}, nil
}

var _ BatchLoader = (*ArrayBatchLoader)(nil)
