package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/remotetest"
	"github.com/fjod/go_cart/storefront/internal/session"
)

const (
	runner  = int64(10)
	classic = int64(11)
)

type fixture struct {
	srv     *remotetest.Server
	userID  int64
	session *session.Store
	mirror  *Mirror
}

func setup(t *testing.T) *fixture {
	srv := remotetest.NewServer(t)
	srv.AddProduct(domain.Product{ID: runner, Name: "Air Runner", Price: 5000, Stock: 5, Sizes: []string{"41", "42"}})
	srv.AddProduct(domain.Product{ID: classic, Name: "Court Classic", Price: 3500, Stock: 2, Sizes: []string{"40"}})
	userID := srv.AddUser("ann@example.com", "secret")

	client, err := apiclient.New(srv.BaseURL())
	require.NoError(t, err)
	store := session.NewStore(client, session.NewMemoryTokenStore(), zap.NewNop())
	mirror := NewMirror(store, client.WithTokenSource(store), zap.NewNop())

	require.NoError(t, store.Login(context.Background(), "ann@example.com", "secret"))
	return &fixture{srv: srv, userID: userID, session: store, mirror: mirror}
}

func serverCount(lines []domain.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func TestRefresh_Unauthenticated_NoRequest(t *testing.T) {
	srv := remotetest.NewServer(t)
	client, err := apiclient.New(srv.BaseURL())
	require.NoError(t, err)
	store := session.NewStore(client, nil, nil)
	mirror := NewMirror(store, client.WithTokenSource(store), nil)

	snap, err := mirror.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
	assert.Zero(t, srv.Hits("GET /cart/"))
}

func TestRefresh_AfterLogout_NoRequest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mirror.AddItem(ctx, runner, "42", 2)
	require.NoError(t, err)
	require.Equal(t, 2, f.mirror.ItemCount())
	hits := f.srv.Hits("GET /cart/")

	f.session.Logout(ctx)
	snap, err := f.mirror.Refresh(ctx)

	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
	assert.Equal(t, 0, f.mirror.ItemCount())
	assert.Equal(t, hits, f.srv.Hits("GET /cart/"))
}

func TestLogout_ClearsSnapshotSynchronously(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mirror.AddItem(ctx, runner, "41", 1)
	require.NoError(t, err)
	require.False(t, f.mirror.Snapshot().IsEmpty())

	f.session.Logout(ctx)

	assert.True(t, f.mirror.Snapshot().IsEmpty())
	assert.Zero(t, f.mirror.Total())
}

func TestMutations_ItemCountMatchesServer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	snap, err := f.mirror.AddItem(ctx, runner, "42", 2)
	require.NoError(t, err)
	_, err = f.mirror.AddItem(ctx, classic, "40", 0)
	require.NoError(t, err)
	_, err = f.mirror.AddItem(ctx, runner, "42", 1)
	require.NoError(t, err)

	snap = f.mirror.Snapshot()
	require.Len(t, snap.Lines, 2)
	runnerLine := snap.Lines[0]
	assert.Equal(t, 3, runnerLine.Quantity)

	snap, err = f.mirror.SetQuantity(ctx, runnerLine.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.ItemCount())

	snap, err = f.mirror.RemoveItem(ctx, snap.Lines[1].ID)
	require.NoError(t, err)

	server := f.srv.CartLines(f.userID)
	assert.Equal(t, serverCount(server), snap.ItemCount())
	assert.Equal(t, serverCount(server), f.mirror.ItemCount())
	assert.Equal(t, server, snap.Lines)
	assert.InDelta(t, 20000.0, f.mirror.Total(), 0.001)
}

func TestSetQuantity_BelowOneRemoves(t *testing.T) {
	for _, q := range []int{0, -1} {
		f := setup(t)
		ctx := context.Background()

		snap, err := f.mirror.AddItem(ctx, runner, "42", 2)
		require.NoError(t, err)
		lineID := snap.Lines[0].ID

		snap, err = f.mirror.SetQuantity(ctx, lineID, q)
		require.NoError(t, err)
		assert.True(t, snap.IsEmpty())
		assert.Equal(t, 1, f.srv.Hits("DELETE /cart/{id}"))
		assert.Zero(t, f.srv.Hits("PUT /cart/{id}"))
	}
}

func TestAddItem_StockExceeded_SnapshotUnchanged(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mirror.AddItem(ctx, runner, "42", 2)
	require.NoError(t, err)
	before, err := json.Marshal(f.mirror.Snapshot())
	require.NoError(t, err)
	fetches := f.srv.Hits("GET /cart/")

	snap, err := f.mirror.AddItem(ctx, classic, "40", 3)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOperation)
	var opErr *domain.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "add", opErr.Op)
	assert.Equal(t, "Not enough stock available", opErr.Reason)

	after, err := json.Marshal(f.mirror.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	returned, _ := json.Marshal(snap)
	assert.Equal(t, before, returned)
	assert.Equal(t, fetches, f.srv.Hits("GET /cart/"), "no refresh after a rejected write")
}

func TestSetQuantity_StockScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	snap, err := f.mirror.AddItem(ctx, runner, "42", 2)
	require.NoError(t, err)
	lineID := snap.Lines[0].ID
	require.Equal(t, 5, snap.Lines[0].Product.Stock)

	snap, err = f.mirror.SetQuantity(ctx, lineID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Lines[0].Quantity)

	snap, err = f.mirror.SetQuantity(ctx, lineID, 10)
	assert.ErrorIs(t, err, domain.ErrOperation)
	assert.Equal(t, 3, snap.Lines[0].Quantity)
	assert.Equal(t, 3, f.mirror.Snapshot().Lines[0].Quantity)
}

func TestRemoveItem_UnknownLine(t *testing.T) {
	f := setup(t)

	_, err := f.mirror.RemoveItem(context.Background(), 999)

	var opErr *domain.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "remove", opErr.Op)
	assert.Equal(t, "Not Found", opErr.Reason)
	var re *apiclient.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusNotFound, re.StatusCode)
}

func TestAddItem_NegativeQuantity_NoRequest(t *testing.T) {
	f := setup(t)

	_, err := f.mirror.AddItem(context.Background(), runner, "42", -2)

	assert.ErrorIs(t, err, domain.ErrOperation)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Zero(t, f.srv.Hits("POST /cart/"))
}

func TestRefresh_FailureKeepsLastSnapshot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mirror.AddItem(ctx, runner, "42", 2)
	require.NoError(t, err)

	f.srv.FailNext("GET /cart/", http.StatusInternalServerError, "database unavailable")
	snap, err := f.mirror.Refresh(ctx)

	assert.ErrorIs(t, err, domain.ErrFetch)
	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "database unavailable", fetchErr.Reason)
	assert.Equal(t, 2, snap.ItemCount())
	assert.Equal(t, 2, f.mirror.ItemCount())
}

func TestMutation_WriteOkRefreshFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mirror.AddItem(ctx, runner, "42", 1)
	require.NoError(t, err)

	f.srv.FailNext("GET /cart/", http.StatusBadGateway, "")
	snap, err := f.mirror.AddItem(ctx, runner, "42", 1)

	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.NotErrorIs(t, err, domain.ErrOperation)
	assert.Equal(t, 1, snap.ItemCount(), "last known snapshot is kept")
	assert.Equal(t, 2, serverCount(f.srv.CartLines(f.userID)))

	snap, err = f.mirror.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ItemCount())
}

func TestRefresh_StaleFetchDoesNotOverwrite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	snap, err := f.mirror.AddItem(ctx, runner, "42", 2)
	require.NoError(t, err)
	lineID := snap.Lines[0].ID

	arrived, release := f.srv.Hold("GET /cart/")
	defer release()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = f.mirror.Refresh(ctx)
	}()
	<-arrived // the slow fetch has read qty 2 and is parked

	snap, err = f.mirror.SetQuantity(ctx, lineID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.ItemCount())

	release()
	wg.Wait()
	assert.Equal(t, 4, f.mirror.ItemCount())
}

func TestRefresh_InFlightAcrossLogoutIsDiscarded(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mirror.AddItem(ctx, runner, "42", 2)
	require.NoError(t, err)

	arrived, release := f.srv.Hold("GET /cart/")
	defer release()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.mirror.Refresh(ctx)
	}()
	<-arrived

	f.session.Logout(ctx)
	release()
	<-done

	assert.True(t, f.mirror.Snapshot().IsEmpty())
}

func TestRefresh_ConcurrentCallsShareFetch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	before := f.srv.Hits("GET /cart/")

	arrived, release := f.srv.Hold("GET /cart/")
	defer release()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = f.mirror.Refresh(ctx)
	}()
	<-arrived

	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.mirror.Refresh(ctx)
			results <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()
	close(results)

	for err := range results {
		assert.NoError(t, err)
	}
	assert.Equal(t, before+1, f.srv.Hits("GET /cart/"))
}

func TestRefresh_CancelledCallerDoesNotFailOthers(t *testing.T) {
	f := setup(t)
	_, err := f.mirror.AddItem(context.Background(), runner, "42", 2)
	require.NoError(t, err)

	arrived, release := f.srv.Hold("GET /cart/")
	defer release()

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := f.mirror.Refresh(ctxA)
		errA <- err
	}()
	<-arrived

	errB := make(chan error, 1)
	go func() {
		_, err := f.mirror.Refresh(context.Background())
		errB <- err
	}()
	time.Sleep(50 * time.Millisecond) // let B join the shared fetch

	cancelA()
	err = <-errA
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.ErrorIs(t, err, context.Canceled)

	release()
	require.NoError(t, <-errB)
	assert.Equal(t, 2, f.mirror.ItemCount())
}

func TestMutations_AreSerialized(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mirror.AddItem(ctx, runner, "42", 1)
	require.NoError(t, err)
	snap, err := f.mirror.AddItem(ctx, classic, "40", 1)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 2)
	runnerLine, classicLine := snap.Lines[0].ID, snap.Lines[1].ID
	if snap.Lines[0].ProductID != runner {
		runnerLine, classicLine = classicLine, runnerLine
	}

	// park the refresh that follows the first write
	arrived, release := f.srv.Hold("GET /cart/")
	defer release()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.mirror.SetQuantity(ctx, runnerLine, 3)
		assert.NoError(t, err)
	}()
	<-arrived

	go func() {
		defer wg.Done()
		_, err := f.mirror.SetQuantity(ctx, classicLine, 2)
		assert.NoError(t, err)
	}()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.srv.Hits("PUT /cart/{id}"), "second write must wait for the first refresh")

	release()
	wg.Wait()

	assert.Equal(t, 2, f.srv.Hits("PUT /cart/{id}"))
	final := f.mirror.Snapshot()
	require.Len(t, final.Lines, 2)
	line, ok := final.Line(runnerLine)
	require.True(t, ok)
	assert.Equal(t, 3, line.Quantity)
	line, ok = final.Line(classicLine)
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 5, f.mirror.ItemCount())
}

func TestLoginAsOtherUser_DropsPreviousCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	otherID := f.srv.AddUser("bob@example.com", "pw")

	_, err := f.mirror.AddItem(ctx, runner, "42", 2)
	require.NoError(t, err)

	require.NoError(t, f.session.LoginWithExternalToken(ctx, f.srv.IssueToken(otherID)))
	assert.True(t, f.mirror.Snapshot().IsEmpty())

	snap, err := f.mirror.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
}
