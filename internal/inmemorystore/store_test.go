package inmemorystore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/cache"
	"github.com/specialistvlad/sweepgrid/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func entry(fp string, out string) *cache.Entry {
	return &cache.Entry{
		Fingerprint: fingerprint.Fingerprint(fp),
		Task:        "bet@1",
		Outputs:     map[string]cty.Value{"out": cty.StringVal(out)},
		Status:      cache.StatusDone,
		CreatedAt:   time.Now(),
	}
}

func TestPutAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Get(ctx, "abc")
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, s.Put(ctx, entry("abc", "one")))
	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "bet@1", got.Task)
	assert.Equal(t, cache.StatusDone, got.Status)
	assert.Equal(t, "one", got.Outputs["out"].AsString())

	// Overwrite
	require.NoError(t, s.Put(ctx, entry("abc", "two")))
	got, err = s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "two", got.Outputs["out"].AsString())
	assert.Equal(t, 1, s.Len())
}

func TestEntriesAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()

	e := entry("abc", "one")
	require.NoError(t, s.Put(ctx, e))
	e.Outputs["out"] = cty.StringVal("mutated")

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	got.Outputs["out"] = cty.StringVal("mutated again")

	again, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "one", again.Outputs["out"].AsString())
}

func TestDeleteAndFlush(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, entry("abc", "one")))
	require.NoError(t, s.Delete(ctx, "abc"))
	require.NoError(t, s.Delete(ctx, "never-existed"))
	_, err := s.Get(ctx, "abc")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	assert.NoError(t, s.Flush(ctx))
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fp := fmt.Sprintf("fp-%d", i)
			assert.NoError(t, s.Put(ctx, entry(fp, fp)))
			got, err := s.Get(ctx, fingerprint.Fingerprint(fp))
			if assert.NoError(t, err) {
				assert.Equal(t, fp, got.Outputs["out"].AsString())
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, n, s.Len())
}
