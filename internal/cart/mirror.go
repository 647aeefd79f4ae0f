package cart

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Session is what the mirror needs from the session store.
type Session interface {
	IsAuthenticated() bool
	Subscribe(func(authenticated bool))
}

// Remote is the cart surface of the remote authority.
type Remote interface {
	GetCart(ctx context.Context) ([]domain.CartLine, error)
	AddCartLine(ctx context.Context, productID int64, size string, quantity int) error
	RemoveCartLine(ctx context.Context, lineID int64) error
	UpdateCartLine(ctx context.Context, lineID int64, quantity int) error
}

var ErrInvalidQuantity = errors.New("quantity must be positive")

// Mirror keeps a local copy of the server-side cart. The remote authority is
// the only source of truth: every mutation is a remote write followed by a
// full re-fetch, and the local copy only changes when a fetch lands.
type Mirror struct {
	session Session
	remote  Remote
	logger  *zap.Logger
	sfg     singleflight.Group // coalesces plain refreshes per identity epoch

	// writes serializes write-then-refresh sequences so one mutation's
	// refresh cannot be overtaken by another mutation's write.
	writes sync.Mutex

	mu       sync.RWMutex
	snapshot domain.CartSnapshot
	epoch    uint64 // bumped on every credential transition
	issued   uint64 // sequence of the last fetch started
	applied  uint64 // sequence of the fetch the snapshot came from
}

func NewMirror(session Session, remote Remote, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mirror{
		session: session,
		remote:  remote,
		logger:  logger,
	}
	session.Subscribe(m.onAuthChange)
	return m
}

// Snapshot returns a copy of the current cart.
func (m *Mirror) Snapshot() domain.CartSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot.Clone()
}

func (m *Mirror) ItemCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot.ItemCount()
}

func (m *Mirror) Total() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot.Total()
}

// Refresh replaces the snapshot with the remote cart. Without a credential
// it resets to an empty cart and makes no request. Concurrent refreshes
// share one fetch. On failure, or when ctx ends first, the last known
// snapshot is kept and a *domain.FetchError is returned.
func (m *Mirror) Refresh(ctx context.Context) (domain.CartSnapshot, error) {
	if !m.session.IsAuthenticated() {
		m.reset()
		return domain.CartSnapshot{}, nil
	}

	m.mu.RLock()
	key := strconv.FormatUint(m.epoch, 10)
	m.mu.RUnlock()

	// The shared fetch outlives any single caller; each caller stops
	// waiting when its own context is done.
	ch := m.sfg.DoChan(key, func() (interface{}, error) {
		return nil, m.fetch(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return m.Snapshot(), res.Err
	case <-ctx.Done():
		return m.Snapshot(), &domain.FetchError{Err: ctx.Err()}
	}
}

// AddItem puts quantity units of a product size into the cart. A zero
// quantity means one unit.
func (m *Mirror) AddItem(ctx context.Context, productID int64, size string, quantity int) (domain.CartSnapshot, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return m.Snapshot(), &domain.OperationError{Op: "add", Reason: ErrInvalidQuantity.Error(), Err: ErrInvalidQuantity}
	}
	return m.mutate(ctx, "add", func() error {
		return m.remote.AddCartLine(ctx, productID, size, quantity)
	})
}

func (m *Mirror) RemoveItem(ctx context.Context, lineID int64) (domain.CartSnapshot, error) {
	return m.mutate(ctx, "remove", func() error {
		return m.remote.RemoveCartLine(ctx, lineID)
	})
}

// SetQuantity updates a line. Anything below one removes the line. Stock is
// checked by the remote authority; a rejected update leaves the snapshot as
// it was.
func (m *Mirror) SetQuantity(ctx context.Context, lineID int64, quantity int) (domain.CartSnapshot, error) {
	if quantity < 1 {
		return m.RemoveItem(ctx, lineID)
	}
	return m.mutate(ctx, "update", func() error {
		return m.remote.UpdateCartLine(ctx, lineID, quantity)
	})
}

// mutate runs one remote write and, only after it has been acknowledged,
// re-fetches the cart. The write is attempted exactly once.
func (m *Mirror) mutate(ctx context.Context, op string, write func() error) (domain.CartSnapshot, error) {
	m.writes.Lock()
	defer m.writes.Unlock()

	if err := write(); err != nil {
		m.logger.Info("cart operation rejected", zap.String("op", op), zap.Error(err))
		return m.Snapshot(), &domain.OperationError{Op: op, Reason: domain.ReasonOf(err), Err: err}
	}

	if !m.session.IsAuthenticated() {
		m.reset()
		return domain.CartSnapshot{}, nil
	}
	if err := m.fetch(ctx); err != nil {
		return m.Snapshot(), err
	}
	return m.Snapshot(), nil
}

// fetch issues one GET and applies the result unless a newer fetch has
// already been applied or the identity changed while it was in flight.
func (m *Mirror) fetch(ctx context.Context) error {
	m.mu.Lock()
	m.issued++
	seq, epoch := m.issued, m.epoch
	m.mu.Unlock()

	lines, err := m.remote.GetCart(ctx)
	if err != nil {
		m.logger.Warn("cart fetch failed", zap.Error(err))
		return &domain.FetchError{Reason: domain.ReasonOf(err), Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case epoch != m.epoch:
		m.logger.Debug("discarding cart fetched for a previous session", zap.Uint64("seq", seq))
	case seq < m.applied:
		m.logger.Debug("discarding stale cart fetch", zap.Uint64("seq", seq), zap.Uint64("applied", m.applied))
	default:
		m.snapshot = domain.NewCartSnapshot(lines)
		m.applied = seq
	}
	return nil
}

func (m *Mirror) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = domain.CartSnapshot{}
}

// onAuthChange clears the cart before the transition returns so no cart is
// visible to a different or anonymous identity.
func (m *Mirror) onAuthChange(authenticated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.snapshot = domain.CartSnapshot{}
	m.applied = m.issued
	m.logger.Debug("cart cleared on session change", zap.Bool("authenticated", authenticated))
}
