package loader_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/core/loader"
	"github.com/satishbabariya/ormcore/internal/core/loader/builder"
	"github.com/satishbabariya/ormcore/internal/core/loader/cache"
	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
	"github.com/satishbabariya/ormcore/internal/core/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var strategies = []string{"inline", "array"}

func TestBatchLoader_LoadsAnchorWithQueuedIds(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t)
			l := f.newLoader(t, strategy, 4, cache.NewStatementCache())

			pc := session.NewPersistenceContext(false)
			for _, id := range []int64{2, 3, 4, 5} {
				pc.Queue().Register(orderKey(id))
			}

			got, err := l.Load(context.Background(), f.querier, pc, int64(1), nil, domain.LoadOptions{})
			require.NoError(t, err)

			order, ok := got.(*Order)
			require.True(t, ok)
			assert.Equal(t, &Order{ID: 1, CustomerID: 10, Total: 9.5}, order)

			require.Len(t, f.querier.queries, 1, "one statement for the whole batch")

			assert.True(t, pc.Contains(orderKey(1)))
			assert.True(t, pc.Contains(orderKey(2)))
			assert.True(t, pc.Contains(orderKey(4)))
			assert.False(t, pc.Contains(orderKey(3)), "absent rows are not materialized")
			assert.False(t, pc.Contains(orderKey(5)), "5 was outside the batch")

			assert.Equal(t, []any{int64(5)}, pc.Queue().Pending("Order"))
			assert.False(t, pc.Queue().Contains(orderKey(3)), "absent keys are evicted too")

			assert.ElementsMatch(t, []any{int64(10), int64(11)}, pc.Queue().Pending("Customer"))
		})
	}
}

func TestBatchLoader_SingleKey(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t)
			l := f.newLoader(t, strategy, 16, cache.NewStatementCache())
			pc := session.NewPersistenceContext(false)

			got, err := l.Load(context.Background(), f.querier, pc, 6, nil, domain.LoadOptions{})
			require.NoError(t, err)
			assert.Equal(t, int64(6), got.(*Order).ID, "identifiers are normalized to the mapped type")

			got, err = l.Load(context.Background(), f.querier, pc, int64(3), nil, domain.LoadOptions{})
			require.NoError(t, err)
			assert.Nil(t, got)
			assert.Equal(t, 1, pc.Len())
		})
	}
}

func TestArrayBatchLoader_OneStatementForAllSizes(t *testing.T) {
	f := newFixture(t)
	c := cache.NewStatementCache()
	l := f.newLoader(t, "array", 50, c)
	assert.Equal(t, domain.ArrayParameter(), l.Strategy())
	assert.Equal(t, 50, l.DomainBatchSize())

	pc := session.NewPersistenceContext(false)
	_, err := l.Load(context.Background(), f.querier, pc, int64(1), nil, domain.LoadOptions{})
	require.NoError(t, err)

	for id := int64(2); id <= 50; id++ {
		pc.Queue().Register(orderKey(id))
	}
	_, err = l.Load(context.Background(), f.querier, pc, int64(51), nil, domain.LoadOptions{})
	require.NoError(t, err)

	require.Len(t, f.querier.queries, 2)
	assert.Equal(t, f.querier.queries[0], f.querier.queries[1])
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(1), c.GetStats().Builds)
	assert.Len(t, f.querier.args[1], 1, "all keys travel in one parameter")

	assert.Zero(t, pc.Queue().Len("Order"))
	assert.Equal(t, 5, pc.Len(), "orders 1, 2, 4, 5 and 6")
}

func TestInlineBatchLoader_StatementPerSize(t *testing.T) {
	f := newFixture(t)
	c := cache.NewStatementCache()
	l := f.newLoader(t, "inline", 5, c)
	assert.Equal(t, domain.Inline(5), l.Strategy())

	pc := session.NewPersistenceContext(false)
	pc.Queue().Register(orderKey(2))
	pc.Queue().Register(orderKey(3))
	_, err := l.Load(context.Background(), f.querier, pc, int64(1), nil, domain.LoadOptions{})
	require.NoError(t, err)

	for _, id := range []int64{5, 6, 7, 8} {
		pc.Queue().Register(orderKey(id))
	}
	_, err = l.Load(context.Background(), f.querier, pc, int64(4), nil, domain.LoadOptions{})
	require.NoError(t, err)

	require.Len(t, f.querier.queries, 2)
	assert.Equal(t, 3, strings.Count(f.querier.queries[0], "?"))
	assert.Equal(t, 5, strings.Count(f.querier.queries[1], "?"))
	assert.Equal(t, 2, c.Len())

	// A repeated size reuses its statement.
	pc.Queue().Register(orderKey(20))
	pc.Queue().Register(orderKey(21))
	_, err = l.Load(context.Background(), f.querier, pc, int64(22), nil, domain.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, f.querier.queries[0], f.querier.queries[2])
	assert.Equal(t, int64(2), c.GetStats().Builds)
}

func TestBatchLoader_ExecutionErrorPublishesNothing(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t)
			f.querier.fail = errConnectionReset
			l := f.newLoader(t, strategy, 4, cache.NewStatementCache())

			pc := session.NewPersistenceContext(false)
			pc.Queue().Register(orderKey(2))
			pc.Queue().Register(orderKey(3))

			got, err := l.Load(context.Background(), f.querier, pc, int64(1), nil, domain.LoadOptions{})
			assert.Nil(t, got)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrExecution)
			assert.ErrorIs(t, err, errConnectionReset)

			var loadErr *domain.LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, []any{int64(1), int64(2), int64(3)}, loadErr.Batch)

			assert.Zero(t, pc.Len())
			assert.Equal(t, []any{int64(2), int64(3)}, pc.Queue().Pending("Order"))
		})
	}
}

func TestBatchLoader_ConversionErrorPublishesNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.adapter.Execute(context.Background(), "UPDATE orders SET total = 'n/a' WHERE id = 4")
	require.NoError(t, err)

	l := f.newLoader(t, "array", 4, cache.NewStatementCache())
	pc := session.NewPersistenceContext(false)
	pc.Queue().Register(orderKey(4))

	_, err = l.Load(context.Background(), f.querier, pc, int64(1), nil, domain.LoadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExecution)
	assert.Contains(t, err.Error(), "Total")

	assert.Zero(t, pc.Len(), "order 1 converted fine but is not published")
	assert.True(t, pc.Queue().Contains(orderKey(4)))
	assert.Zero(t, pc.Queue().Len("Customer"))
}

func TestArrayBatchLoader_MissingArrayType(t *testing.T) {
	f := newFixture(t)
	f.types = metadata.NewTypeRegistry()
	l := f.newLoader(t, "array", 8, cache.NewStatementCache())

	pc := session.NewPersistenceContext(false)
	pc.Queue().Register(orderKey(2))

	_, first := l.Load(context.Background(), f.querier, pc, int64(1), nil, domain.LoadOptions{})
	require.Error(t, first)
	assert.ErrorIs(t, first, domain.ErrConfiguration)
	assert.ErrorIs(t, first, metadata.ErrNoArrayType)
	assert.NotErrorIs(t, first, domain.ErrExecution)

	_, second := l.Load(context.Background(), f.querier, pc, int64(1), nil, domain.LoadOptions{})
	assert.Same(t, first, second, "the setup failure is memoized")

	assert.Empty(t, f.querier.queries)
	assert.True(t, pc.Queue().Contains(orderKey(2)))
	assert.Equal(t, first, l.(*loader.ArrayBatchLoader).Prepare())
}

func TestArrayBatchLoader_ConcurrentPrepare(t *testing.T) {
	prepareAll := func(l *loader.ArrayBatchLoader) []error {
		const workers = 32
		errs := make([]error, workers)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				errs[i] = l.Prepare()
			}(i)
		}
		close(start)
		wg.Wait()
		return errs
	}

	t.Run("builds once", func(t *testing.T) {
		f := newFixture(t)
		c := cache.NewStatementCache()
		l := f.newLoader(t, "array", 8, c).(*loader.ArrayBatchLoader)

		for _, err := range prepareAll(l) {
			assert.NoError(t, err)
		}
		assert.Equal(t, int64(1), c.GetStats().Builds)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("fails once", func(t *testing.T) {
		f := newFixture(t)
		f.types = metadata.NewTypeRegistry()
		c := cache.NewStatementCache()
		l := f.newLoader(t, "array", 8, c).(*loader.ArrayBatchLoader)

		errs := prepareAll(l)
		require.Error(t, errs[0])
		assert.ErrorIs(t, errs[0], domain.ErrConfiguration)
		for _, err := range errs[1:] {
			assert.Same(t, errs[0], err)
		}
		assert.Zero(t, c.GetStats().Builds)
	})
}

func TestArrayBatchLoader_DialectWithoutArrays(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(8, cache.NewStatementCache())
	cfg.Builder = builder.New(database.FeaturesFor(database.MySQL))

	l, err := loader.NewArray(cfg)
	require.NoError(t, err)

	err = l.Prepare()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorIs(t, err, builder.ErrNoArrayPredicate)
	assert.Equal(t, "ArrayBatchLoader(Order [8])", l.String())
}

func TestBatchLoader_HydratesCallerInstance(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t)
			l := f.newLoader(t, strategy, 4, cache.NewStatementCache())
			pc := session.NewPersistenceContext(false)

			proxy := &Order{}
			got, err := l.Load(context.Background(), f.querier, pc, int64(2), proxy, domain.LoadOptions{})
			require.NoError(t, err)
			assert.Same(t, proxy, got)
			assert.Equal(t, 20.0, proxy.Total)
			assert.Same(t, proxy, pc.Entity(orderKey(2)))

			_, err = l.Load(context.Background(), f.querier, pc, int64(4), &Customer{}, domain.LoadOptions{})
			assert.ErrorIs(t, err, metadata.ErrInvalidEntity)
		})
	}
}

func TestBatchLoader_KeepsExistingInstances(t *testing.T) {
	f := newFixture(t)
	l := f.newLoader(t, "inline", 4, cache.NewStatementCache())
	pc := session.NewPersistenceContext(true)

	managed := &Order{ID: 2, Total: -1}
	pc.AddEntity(orderKey(2), managed, session.LockNone, false)
	pc.Queue().Register(orderKey(2))
	pc.Queue().Register(orderKey(4))

	_, err := l.Load(context.Background(), f.querier, pc, int64(1), nil, domain.LoadOptions{LockMode: session.LockPessimisticWrite})
	require.NoError(t, err)

	assert.Same(t, managed, pc.Entity(orderKey(2)))
	assert.Equal(t, -1.0, managed.Total)

	entry, ok := pc.Entry(orderKey(4))
	require.True(t, ok)
	assert.Equal(t, session.LockPessimisticWrite, entry.LockMode)
	assert.True(t, entry.ReadOnly, "session default applies")

	entry, ok = pc.Entry(orderKey(2))
	require.True(t, ok)
	assert.Equal(t, session.LockPessimisticWrite, entry.LockMode, "managed batch members are upgraded")
	assert.False(t, entry.ReadOnly, "read-only flag of a managed entry is kept")
}

func TestNewLoader_InvalidConfig(t *testing.T) {
	f := newFixture(t)

	_, err := loader.NewInline(f.config(0, cache.NewStatementCache()))
	assert.Error(t, err)

	cfg := f.config(4, nil)
	_, err = loader.NewArray(cfg)
	assert.Error(t, err)

	_, err = loader.NewInline(loader.Config{})
	assert.Error(t, err)
}
