package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/cache"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/fingerprint"
	"github.com/specialistvlad/sweepgrid/internal/inmemorystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const fp = fingerprint.Fingerprint("0123456789abcdef")

var outputs = map[string]cty.Value{"out": cty.StringVal("done")}

// flakyStore wraps the in-memory store and fails the selected operations.
type flakyStore struct {
	*inmemorystore.Store
	failGet, failPut error
}

func (s *flakyStore) Get(ctx context.Context, fp fingerprint.Fingerprint) (*cache.Entry, error) {
	if s.failGet != nil {
		return nil, s.failGet
	}
	return s.Store.Get(ctx, fp)
}

func (s *flakyStore) Put(ctx context.Context, e *cache.Entry) error {
	if s.failPut != nil {
		return s.failPut
	}
	return s.Store.Put(ctx, e)
}

func testCtx() context.Context {
	return ctxlog.Discard(context.Background())
}

func reserve(t *testing.T, c *cache.Cache) *cache.Reservation {
	t.Helper()
	l, err := c.LookupOrReserve(testCtx(), fp)
	require.NoError(t, err)
	require.Equal(t, cache.Reserved, l.Kind)
	require.NotNil(t, l.Reservation)
	return l.Reservation
}

func TestMissCommitHit(t *testing.T) {
	store := inmemorystore.New()
	c := cache.New(store)
	ctx := testCtx()

	r := reserve(t, c)
	r.Task = "bet@1"
	require.NoError(t, c.Commit(ctx, r, outputs))

	l, err := c.LookupOrReserve(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, cache.Hit, l.Kind)
	assert.Equal(t, "done", l.Outputs["out"].AsString())

	stored, err := store.Get(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, "bet@1", stored.Task)
	assert.Equal(t, cache.StatusDone, stored.Status)

	// A second commit on the same reservation has nothing left to own.
	assert.ErrorIs(t, c.Commit(ctx, r, outputs), cache.ErrReservationLost)
}

func TestAtMostOneExecution(t *testing.T) {
	c := cache.New(inmemorystore.New())
	const workers = 32

	var executions atomic.Int32
	var wg sync.WaitGroup
	results := make([]cache.Lookup, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := testCtx()
			l, err := c.LookupOrReserve(ctx, fp)
			require.NoError(t, err)
			l, err = c.Await(ctx, l)
			require.NoError(t, err)
			if l.Kind == cache.Reserved {
				executions.Add(1)
				time.Sleep(20 * time.Millisecond)
				require.NoError(t, c.Commit(ctx, l.Reservation, outputs))
			}
			results[i] = l
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), executions.Load())
	for _, l := range results {
		if l.Kind == cache.Hit {
			assert.Equal(t, "done", l.Outputs["out"].AsString())
		}
	}
}

func TestAbortSharesFailure(t *testing.T) {
	c := cache.New(inmemorystore.New())
	ctx := testCtx()
	r := reserve(t, c)

	l, err := c.LookupOrReserve(ctx, fp)
	require.NoError(t, err)
	require.Equal(t, cache.InFlight, l.Kind)

	cause := errors.New("segfault")
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Await(ctx, l)
		errCh <- err
	}()

	require.NoError(t, c.Abort(ctx, r, cause))
	err = <-errCh
	var shared *cache.SharedFailure
	require.ErrorAs(t, err, &shared)
	assert.Equal(t, fp, shared.Fingerprint)
	assert.ErrorIs(t, err, cause)

	// Failures are not remembered.
	reserve(t, c)
}

func TestReservationTimeoutReclaims(t *testing.T) {
	c := cache.New(inmemorystore.New(), cache.WithReservationTimeout(50*time.Millisecond))
	ctx := testCtx()
	stale := reserve(t, c)

	l, err := c.LookupOrReserve(ctx, fp)
	require.NoError(t, err)
	require.Equal(t, cache.InFlight, l.Kind)

	l, err = c.Await(ctx, l)
	require.NoError(t, err)
	require.Equal(t, cache.Reserved, l.Kind)
	assert.True(t, l.Reservation.Reclaimed)
	require.NotNil(t, l.Reservation.Timeout)
	assert.GreaterOrEqual(t, l.Reservation.Timeout.Held, 50*time.Millisecond)
	assert.Contains(t, l.Reservation.Timeout.Error(), "reclaimed")

	assert.ErrorIs(t, c.Commit(ctx, stale, outputs), cache.ErrReservationLost)
	assert.ErrorIs(t, c.Abort(ctx, stale, errors.New("late")), cache.ErrReservationLost)
	require.NoError(t, c.Commit(ctx, l.Reservation, outputs))

	l, err = c.LookupOrReserve(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, cache.Hit, l.Kind)
}

func TestWaitersFollowReclaim(t *testing.T) {
	c := cache.New(inmemorystore.New(), cache.WithReservationTimeout(30*time.Millisecond))
	ctx := testCtx()
	reserve(t, c)

	var wg sync.WaitGroup
	var reclaimed atomic.Int32
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := c.LookupOrReserve(ctx, fp)
			require.NoError(t, err)
			l, err = c.Await(ctx, l)
			require.NoError(t, err)
			if l.Kind == cache.Reserved {
				reclaimed.Add(1)
				require.NoError(t, c.Commit(ctx, l.Reservation, outputs))
				return
			}
			assert.Equal(t, cache.Hit, l.Kind)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), reclaimed.Load())
}

func TestAwaitHonoursContext(t *testing.T) {
	c := cache.New(inmemorystore.New(), cache.WithReservationTimeout(0))
	reserve(t, c)

	ctx, cancel := context.WithTimeout(testCtx(), 20*time.Millisecond)
	defer cancel()
	l, err := c.LookupOrReserve(ctx, fp)
	require.NoError(t, err)
	_, err = c.Await(ctx, l)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAwaitPassesThroughSettledLookups(t *testing.T) {
	c := cache.New(inmemorystore.New())
	hit := cache.Lookup{Kind: cache.Hit, Fingerprint: fp, Outputs: outputs}
	got, err := c.Await(testCtx(), hit)
	require.NoError(t, err)
	assert.Equal(t, hit, got)

	_, err = c.Await(testCtx(), cache.Lookup{Kind: cache.InFlight})
	assert.ErrorIs(t, err, cache.ErrNotInFlight)
}

func TestStoreFailures(t *testing.T) {
	boom := errors.New("disk on fire")

	t.Run("lookup failure is a miss when not authoritative", func(t *testing.T) {
		c := cache.New(&flakyStore{Store: inmemorystore.New(), failGet: boom})
		r := reserve(t, c)
		assert.NoError(t, c.Commit(testCtx(), r, outputs))
	})

	t.Run("lookup failure is fatal when authoritative", func(t *testing.T) {
		c := cache.New(&flakyStore{Store: inmemorystore.New(), failGet: boom}, cache.WithAuthoritative(true))
		assert.True(t, c.Authoritative())
		_, err := c.LookupOrReserve(testCtx(), fp)

		var infra *cache.InfrastructureError
		require.ErrorAs(t, err, &infra)
		var cerr *cache.CacheError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "get", cerr.Op)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("commit failure still delivers outputs when not authoritative", func(t *testing.T) {
		c := cache.New(&flakyStore{Store: inmemorystore.New(), failPut: boom})
		ctx := testCtx()
		r := reserve(t, c)
		waiting, err := c.LookupOrReserve(ctx, fp)
		require.NoError(t, err)

		require.NoError(t, c.Commit(ctx, r, outputs))
		l, err := c.Await(ctx, waiting)
		require.NoError(t, err)
		assert.Equal(t, cache.Hit, l.Kind)
		assert.Equal(t, "done", l.Outputs["out"].AsString())
	})

	t.Run("commit failure is fatal when authoritative", func(t *testing.T) {
		c := cache.New(&flakyStore{Store: inmemorystore.New(), failPut: boom}, cache.WithAuthoritative(true))
		ctx := testCtx()
		r := reserve(t, c)
		waiting, err := c.LookupOrReserve(ctx, fp)
		require.NoError(t, err)

		var infra *cache.InfrastructureError
		require.ErrorAs(t, c.Commit(ctx, r, outputs), &infra)
		_, err = c.Await(ctx, waiting)
		assert.ErrorAs(t, err, &infra)
	})
}

func TestForceBypassesStoredEntries(t *testing.T) {
	store := inmemorystore.New()
	ctx := testCtx()
	require.NoError(t, store.Put(ctx, &cache.Entry{Fingerprint: fp, Status: cache.StatusDone, Outputs: outputs}))

	c := cache.New(store, cache.WithForce(true))
	r := reserve(t, c)
	require.NoError(t, c.Commit(ctx, r, map[string]cty.Value{"out": cty.StringVal("fresh")}))

	l, err := c.LookupOrReserve(ctx, fp)
	require.NoError(t, err)
	require.Equal(t, cache.Hit, l.Kind)
	assert.Equal(t, "fresh", l.Outputs["out"].AsString())
}

func TestInvalidate(t *testing.T) {
	store := inmemorystore.New()
	c := cache.New(store)
	ctx := testCtx()

	require.NoError(t, c.Commit(ctx, reserve(t, c), outputs))
	require.NoError(t, c.Invalidate(ctx, fp))
	require.NoError(t, c.Invalidate(ctx, fp))
	assert.Equal(t, 0, store.Len())
	reserve(t, c)
	assert.NoError(t, c.Flush(ctx))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "hit", cache.Hit.String())
	assert.Equal(t, "reserved", cache.Reserved.String())
	assert.Equal(t, "in_flight", cache.InFlight.String())

	st, err := cache.ParseStatus(cache.StatusFailed.String())
	require.NoError(t, err)
	assert.Equal(t, cache.StatusFailed, st)
	_, err = cache.ParseStatus("bogus")
	assert.Error(t, err)
}
