package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementCache_GetOrBuild(t *testing.T) {
	c := NewStatementCache()
	key := Key{Entity: "Order", Kind: domain.InlineParameters, Size: 3}

	var builds int32
	build := func() (domain.LoaderStatement, error) {
		atomic.AddInt32(&builds, 1)
		return domain.LoaderStatement{Entity: "Order", SQL: "SELECT 1", Strategy: domain.Inline(3)}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stmt, err := c.GetOrBuild(key, build)
			assert.NoError(t, err)
			assert.Equal(t, "SELECT 1", stmt.SQL)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Builds)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(15), stats.Hits)
	assert.Equal(t, 1, stats.Size)
	assert.InDelta(t, 15.0/16.0, stats.HitRate(), 1e-9)
}

func TestStatementCache_FailedBuildNotCached(t *testing.T) {
	c := NewStatementCache()
	key := Key{Entity: "Order", Kind: domain.SingleArrayParameter}

	_, err := c.GetOrBuild(key, func() (domain.LoaderStatement, error) {
		return domain.LoaderStatement{}, errors.New("boom")
	})
	require.Error(t, err)
	assert.Zero(t, c.Len())

	_, ok := c.Get(key)
	assert.False(t, ok)

	_, err = c.GetOrBuild(key, func() (domain.LoaderStatement, error) {
		return domain.LoaderStatement{SQL: "ok"}, nil
	})
	require.NoError(t, err)

	stmt, ok := c.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "ok", stmt.SQL)

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Equal(t, int64(1), c.GetStats().Builds)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "Order:inline:5", Key{Entity: "Order", Kind: domain.InlineParameters, Size: 5}.String())
	assert.Equal(t, "Order:array", Key{Entity: "Order", Kind: domain.SingleArrayParameter}.String())
}
