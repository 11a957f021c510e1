package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/fingerprint"
	"github.com/specialistvlad/sweepgrid/internal/metrics"
	"github.com/zclconf/go-cty/cty"
)

// DefaultReservationTimeout is used when no WithReservationTimeout option is given.
const DefaultReservationTimeout = 30 * time.Minute

// Kind is the outcome of a lookup.
type Kind int

const (
	Hit Kind = iota
	Reserved
	InFlight
)

func (k Kind) String() string {
	switch k {
	case Hit:
		return "hit"
	case Reserved:
		return "reserved"
	case InFlight:
		return "in_flight"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Lookup is the answer of LookupOrReserve and Await.
type Lookup struct {
	Kind        Kind
	Fingerprint fingerprint.Fingerprint
	// Outputs is set for Hit.
	Outputs map[string]cty.Value
	// Reservation is set for Reserved.
	Reservation *Reservation

	slot *slot
}

// Reservation grants exclusive execution of one fingerprint.
type Reservation struct {
	Fingerprint fingerprint.Fingerprint
	// Task is written into the committed entry. Callers set it before Commit.
	Task string
	// Reclaimed is true when the reservation was taken over from a holder
	// that exceeded the reservation timeout.
	Reclaimed bool
	// Timeout describes the reclaimed reservation when Reclaimed is true.
	Timeout *ConcurrencyTimeout

	slot *slot
}

// slot is one row of the reservation table. Its result fields are written
// once, before done is closed, by whoever removes it from the table.
type slot struct {
	acquired time.Time
	done     chan struct{}

	outputs    map[string]cty.Value
	err        error
	superseded bool
}

func newSlot() *slot {
	return &slot{acquired: time.Now(), done: make(chan struct{})}
}

// Cache deduplicates executions by fingerprint in front of a Store.
type Cache struct {
	store         Store
	timeout       time.Duration
	authoritative bool
	force         bool
	metrics       *metrics.Metrics

	mu    sync.Mutex
	slots map[fingerprint.Fingerprint]*slot
	// fresh holds fingerprints committed through this Cache. Forced lookups
	// still honour them so a forced run executes each fingerprint once.
	fresh map[fingerprint.Fingerprint]struct{}
}

type Option func(*Cache)

// WithReservationTimeout bounds how long a waiter trusts a holder. Zero
// disables reclaiming.
func WithReservationTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// WithAuthoritative makes store failures fatal instead of forced misses.
func WithAuthoritative(b bool) Option {
	return func(c *Cache) { c.authoritative = b }
}

// WithForce ignores entries that were not committed through this Cache.
func WithForce(b bool) Option {
	return func(c *Cache) { c.force = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		timeout: DefaultReservationTimeout,
		slots:   make(map[fingerprint.Fingerprint]*slot),
		fresh:   make(map[fingerprint.Fingerprint]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authoritative reports whether store failures abort the run.
func (c *Cache) Authoritative() bool { return c.authoritative }

// LookupOrReserve answers Hit, Reserved or InFlight for fp. The only error it
// returns is an *InfrastructureError from an authoritative cache.
func (c *Cache) LookupOrReserve(ctx context.Context, fp fingerprint.Fingerprint) (Lookup, error) {
	c.mu.Lock()
	if s, ok := c.slots[fp]; ok {
		c.mu.Unlock()
		c.metrics.CacheLookup(metrics.LookupInFlight)
		return Lookup{Kind: InFlight, Fingerprint: fp, slot: s}, nil
	}
	s := newSlot()
	c.slots[fp] = s
	_, fresh := c.fresh[fp]
	c.mu.Unlock()

	// The slot is held while the store is consulted, so concurrent lookups
	// of fp wait here instead of racing to a second miss.
	if !c.force || fresh {
		entry, err := c.store.Get(ctx, fp)
		switch {
		case err == nil && entry != nil && entry.Status == StatusDone:
			c.release(fp, s, entry.Outputs, nil)
			c.metrics.CacheLookup(metrics.LookupHit)
			return Lookup{Kind: Hit, Fingerprint: fp, Outputs: entry.Outputs}, nil

		case err == nil, errors.Is(err, ErrNotFound):

		default:
			cerr := &CacheError{Op: "get", Fingerprint: fp, Err: err}
			c.metrics.CacheStoreError("get")
			c.metrics.CacheLookup(metrics.LookupError)
			if c.authoritative {
				ierr := &InfrastructureError{Err: cerr}
				c.release(fp, s, nil, ierr)
				return Lookup{}, ierr
			}
			ctxlog.FromContext(ctx).Warn("Cache lookup failed, treating as a miss.", "fingerprint", fp.Short(), "error", err)
		}
	}

	c.metrics.CacheLookup(metrics.LookupReserved)
	return Lookup{
		Kind:        Reserved,
		Fingerprint: fp,
		Reservation: &Reservation{Fingerprint: fp, slot: s},
	}, nil
}

// Await blocks on an InFlight lookup until the holder commits (Hit), aborts
// (*SharedFailure) or outlives the reservation timeout, in which case the
// caller takes the reservation over and gets Reserved with Reclaimed set.
// Hit and Reserved lookups are returned unchanged.
func (c *Cache) Await(ctx context.Context, l Lookup) (Lookup, error) {
	if l.Kind != InFlight {
		return l, nil
	}
	if l.slot == nil {
		return Lookup{}, ErrNotInFlight
	}

	s := l.slot
	var expired <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(time.Until(s.acquired.Add(c.timeout)))
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return Lookup{}, ctx.Err()

		case <-s.done:
			switch {
			case s.superseded:
				return c.rejoin(ctx, l.Fingerprint)
			case s.err != nil:
				var ierr *InfrastructureError
				if errors.As(s.err, &ierr) {
					return Lookup{}, ierr
				}
				return Lookup{}, &SharedFailure{Fingerprint: l.Fingerprint, Err: s.err}
			default:
				return Lookup{Kind: Hit, Fingerprint: l.Fingerprint, Outputs: s.outputs}, nil
			}

		case <-expired:
			if r := c.reclaim(ctx, l.Fingerprint, s); r != nil {
				return Lookup{Kind: Reserved, Fingerprint: l.Fingerprint, Reservation: r}, nil
			}
			// Someone else released or reclaimed it first, so s.done is
			// already closed.
			expired = nil
		}
	}
}

// rejoin re-enters the table after the slot being waited on was reclaimed.
func (c *Cache) rejoin(ctx context.Context, fp fingerprint.Fingerprint) (Lookup, error) {
	l, err := c.LookupOrReserve(ctx, fp)
	if err != nil {
		return Lookup{}, err
	}
	return c.Await(ctx, l)
}

func (c *Cache) reclaim(ctx context.Context, fp fingerprint.Fingerprint, old *slot) *Reservation {
	c.mu.Lock()
	if c.slots[fp] != old {
		c.mu.Unlock()
		return nil
	}
	held := time.Since(old.acquired)
	s := newSlot()
	c.slots[fp] = s
	old.superseded = true
	close(old.done)
	c.mu.Unlock()

	timeout := &ConcurrencyTimeout{Fingerprint: fp, Held: held}
	c.metrics.CacheReclaim()
	ctxlog.FromContext(ctx).Warn("Reservation timed out, reclaiming.", "fingerprint", fp.Short(), "held", held, "error", timeout)
	return &Reservation{Fingerprint: fp, Reclaimed: true, Timeout: timeout, slot: s}
}

// Commit persists a Done entry for the reservation and hands outputs to
// every waiter. A store failure on a non-authoritative cache is logged and
// the outputs are still delivered.
func (c *Cache) Commit(ctx context.Context, r *Reservation, outputs map[string]cty.Value) error {
	if !c.owns(r) {
		return ErrReservationLost
	}

	entry := &Entry{
		Fingerprint: r.Fingerprint,
		Task:        r.Task,
		Outputs:     outputs,
		Status:      StatusDone,
		CreatedAt:   time.Now(),
	}
	if err := c.store.Put(ctx, entry); err != nil {
		cerr := &CacheError{Op: "put", Fingerprint: r.Fingerprint, Err: err}
		c.metrics.CacheStoreError("put")
		if c.authoritative {
			ierr := &InfrastructureError{Err: cerr}
			if !c.release(r.Fingerprint, r.slot, nil, ierr) {
				return ErrReservationLost
			}
			return ierr
		}
		ctxlog.FromContext(ctx).Warn("Cache commit failed, outputs kept for this run only.", "fingerprint", r.Fingerprint.Short(), "error", err)
	}

	if !c.release(r.Fingerprint, r.slot, outputs, nil) {
		return ErrReservationLost
	}
	return nil
}

// Abort releases the reservation and hands cause to every waiter. Nothing is
// persisted, so a later lookup reserves again.
func (c *Cache) Abort(ctx context.Context, r *Reservation, cause error) error {
	if cause == nil {
		cause = errors.New("aborted")
	}
	if !c.release(r.Fingerprint, r.slot, nil, cause) {
		return ErrReservationLost
	}
	return nil
}

// Invalidate removes the stored entry for fp.
func (c *Cache) Invalidate(ctx context.Context, fp fingerprint.Fingerprint) error {
	c.mu.Lock()
	delete(c.fresh, fp)
	c.mu.Unlock()

	if err := c.store.Delete(ctx, fp); err != nil && !errors.Is(err, ErrNotFound) {
		c.metrics.CacheStoreError("delete")
		return &CacheError{Op: "delete", Fingerprint: fp, Err: err}
	}
	return nil
}

// Flush flushes the underlying store.
func (c *Cache) Flush(ctx context.Context) error {
	if err := c.store.Flush(ctx); err != nil {
		c.metrics.CacheStoreError("flush")
		return &CacheError{Op: "flush", Err: err}
	}
	return nil
}

func (c *Cache) owns(r *Reservation) bool {
	if r == nil || r.slot == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[r.Fingerprint] == r.slot
}

// release removes s from the table, publishes the result and wakes waiters.
// It reports false if s no longer owns fp.
func (c *Cache) release(fp fingerprint.Fingerprint, s *slot, outputs map[string]cty.Value, err error) bool {
	if s == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slots[fp] != s {
		return false
	}
	delete(c.slots, fp)
	if err == nil {
		c.fresh[fp] = struct{}{}
	}
	s.outputs = outputs
	s.err = err
	close(s.done)
	return true
}
