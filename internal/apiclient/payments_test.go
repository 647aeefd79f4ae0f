package apiclient

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func TestDownloadReceipt(t *testing.T) {
	srv, c := setupRemote(t)
	userID := srv.AddUser("ann@example.com", "secret")
	ctx := context.Background()
	authed := c.WithTokenSource(staticToken(srv.IssueToken(userID)))

	require.NoError(t, authed.AddCartLine(ctx, 10, "41", 1))
	receipt, err := authed.Checkout(ctx, "0712345678")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = authed.DownloadReceipt(ctx, receipt.OrderID, &buf)
	var re *RemoteError
	require.True(t, errors.As(err, &re), "pending orders have no receipt")
	assert.Equal(t, http.StatusBadRequest, re.StatusCode)
	assert.Equal(t, "Receipt is only available for completed payments", re.Message)
	assert.Zero(t, buf.Len())

	srv.SetOrderStatus(receipt.OrderID, domain.OrderStatusCompleted)
	n, err := authed.DownloadReceipt(ctx, receipt.OrderID, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestDownloadReceipt_UnknownOrder(t *testing.T) {
	srv, c := setupRemote(t)
	userID := srv.AddUser("ann@example.com", "secret")
	authed := c.WithTokenSource(staticToken(srv.IssueToken(userID)))

	_, err := authed.DownloadReceipt(context.Background(), 999, &bytes.Buffer{})

	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusNotFound, re.StatusCode)
	assert.Equal(t, "Order not found", re.Message)
}

func TestPayPal_CreateAndCapture(t *testing.T) {
	srv, c := setupRemote(t)
	userID := srv.AddUser("ann@example.com", "secret")
	ctx := context.Background()
	authed := c.WithTokenSource(staticToken(srv.IssueToken(userID)))

	_, err := authed.CreatePayPalOrder(ctx)
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "Your cart is empty", re.Message)

	require.NoError(t, authed.AddCartLine(ctx, 10, "42", 2))
	paypalID, err := authed.CreatePayPalOrder(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, paypalID)

	capture, err := authed.CapturePayPalPayment(ctx, paypalID)
	require.NoError(t, err)
	assert.Equal(t, "Payment successful!", capture.Message)
	assert.Empty(t, srv.CartLines(userID))

	order, err := authed.GetOrder(ctx, capture.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.InDelta(t, 10000.0, order.TotalAmount, 0.001)
}

func TestPayPal_CaptureFailure(t *testing.T) {
	srv, c := setupRemote(t)
	userID := srv.AddUser("ann@example.com", "secret")
	authed := c.WithTokenSource(staticToken(srv.IssueToken(userID)))

	_, err := authed.CapturePayPalPayment(context.Background(), "PP-unknown")

	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
	assert.Equal(t, "Failed to capture payment", re.Message)
	assert.Equal(t, "RESOURCE_NOT_FOUND", re.Details)

	_, err = authed.CapturePayPalPayment(context.Background(), "a/b")
	assert.Error(t, err)
}

func TestSubscribeNewsletter(t *testing.T) {
	srv, c := setupRemote(t)
	ctx := context.Background()

	require.NoError(t, c.SubscribeNewsletter(ctx, "ann@example.com"))
	assert.Equal(t, []string{"ann@example.com"}, srv.Subscribers())
	assert.Empty(t, srv.LastAuthorization("POST /newsletter/subscribe"))

	err := c.SubscribeNewsletter(ctx, "not-an-email")
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusBadRequest, re.StatusCode)
	assert.Equal(t, "A valid email is required", re.Message)
}
