package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/remotetest"
	"github.com/fjod/go_cart/storefront/internal/session"
)

type gatewayFixture struct {
	remote  *remotetest.Server
	handler http.Handler
	session *session.Store
}

func setupGateway(t *testing.T) *gatewayFixture {
	remote := remotetest.NewServer(t)
	remote.AddProduct(domain.Product{ID: 1, Name: "Air Runner", Brand: "Swoosh", Price: 50, Stock: 3, Sizes: []string{"42"}})
	remote.AddUser("ann@example.com", "secret")

	base, err := apiclient.New(remote.BaseURL())
	require.NoError(t, err)
	store := session.NewStore(base, session.NewMemoryTokenStore(), zap.NewNop())
	api := base.WithTokenSource(store)
	mirror := cart.NewMirror(store, api, zap.NewNop())
	watcher := orders.NewWatcher(api, orders.Config{Interval: 10 * time.Millisecond, MaxAttempts: 5}, zap.NewNop())

	handler := NewRouter(Deps{
		Session:            store,
		Cart:               mirror,
		Orders:             api,
		Watcher:            watcher,
		Products:           api,
		Newsletter:         api,
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	})
	return &gatewayFixture{remote: remote, handler: handler, session: store}
}

func (f *gatewayFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartResponseDTO {
	t.Helper()
	var resp CartResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRouter_Health(t *testing.T) {
	f := setupGateway(t)

	rec := f.do(t, "GET", "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_LoginCartFlow(t *testing.T) {
	f := setupGateway(t)

	rec := f.do(t, "GET", "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
	assert.Equal(t, 0, f.remote.Hits("GET /cart/"))

	rec = f.do(t, "POST", "/api/v1/session/login", `{"email": "ann@example.com", "password": "secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.session.IsAuthenticated())

	rec = f.do(t, "POST", "/api/v1/cart/items", `{"product_id": 1, "size": "42", "quantity": 2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	added := decodeCart(t, rec)
	require.Len(t, added.Items, 1)
	assert.Equal(t, 2, added.ItemCount)
	assert.Equal(t, 100.0, added.Total)

	rec = f.do(t, "PUT", "/api/v1/cart/items/"+itoa(added.Items[0].ID), `{"quantity": 10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "PUT", "/api/v1/cart/items/"+itoa(added.Items[0].ID), `{"quantity": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)

	rec = f.do(t, "DELETE", "/api/v1/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.session.IsAuthenticated())
}

func TestRouter_LoginFailure(t *testing.T) {
	f := setupGateway(t)

	rec := f.do(t, "POST", "/api/v1/session/login", `{"email": "ann@example.com", "password": "wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "auth_failed", resp.Code)
	assert.Equal(t, "Invalid credentials", resp.Error)
}

func TestRouter_CallbackToken(t *testing.T) {
	f := setupGateway(t)

	rec := f.do(t, "POST", "/api/v1/session/token", `{"callback_url": "http://localhost:5173/login/failure"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, "POST", "/api/v1/session/token", `{"callback_url": "http://localhost:5173/login/success?token=abc"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", f.session.Token())
}

func TestRouter_OrdersRequireSession(t *testing.T) {
	f := setupGateway(t)

	rec := f.do(t, "GET", "/api/v1/orders", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, f.remote.Hits("GET /orders/"))
}

func TestRouter_CheckoutAndWait(t *testing.T) {
	f := setupGateway(t)
	require.Equal(t, http.StatusOK, f.do(t, "POST", "/api/v1/session/login", `{"email": "ann@example.com", "password": "secret"}`).Code)
	require.Equal(t, http.StatusCreated, f.do(t, "POST", "/api/v1/cart/items", `{"product_id": 1, "size": "42"}`).Code)

	rec := f.do(t, "POST", "/api/v1/checkout", `{"phone_number": "0712345678"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var receipt domain.CheckoutReceipt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&receipt))
	assert.NotZero(t, receipt.OrderID)

	rec = f.do(t, "GET", "/api/v1/cart", "")
	assert.Empty(t, decodeCart(t, rec).Items)

	f.remote.SetOrderStatus(receipt.OrderID, domain.OrderStatusCompleted)
	rec = f.do(t, "GET", "/api/v1/orders/"+itoa(receipt.OrderID)+"?wait=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var order domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)

	rec = f.do(t, "GET", "/api/v1/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)
}

func TestRouter_CheckoutMissingPhone(t *testing.T) {
	f := setupGateway(t)
	require.Equal(t, http.StatusOK, f.do(t, "POST", "/api/v1/session/login", `{"email": "ann@example.com", "password": "secret"}`).Code)

	rec := f.do(t, "POST", "/api/v1/checkout", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Products(t *testing.T) {
	f := setupGateway(t)

	rec := f.do(t, "GET", "/api/v1/products?brand=Swoosh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page domain.ProductPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Air Runner", page.Products[0].Name)

	rec = f.do(t, "GET", "/api/v1/products/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "GET", "/api/v1/products/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "GET", "/api/v1/products?min_price=cheap", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Receipt(t *testing.T) {
	f := setupGateway(t)
	require.Equal(t, http.StatusOK, f.do(t, "POST", "/api/v1/session/login", `{"email": "ann@example.com", "password": "secret"}`).Code)
	require.Equal(t, http.StatusCreated, f.do(t, "POST", "/api/v1/cart/items", `{"product_id": 1, "size": "42"}`).Code)

	rec := f.do(t, "POST", "/api/v1/checkout", `{"phone_number": "0712345678"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var receipt domain.CheckoutReceipt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&receipt))

	rec = f.do(t, "GET", "/api/v1/orders/"+itoa(receipt.OrderID)+"/receipt", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	f.remote.SetOrderStatus(receipt.OrderID, domain.OrderStatusCompleted)
	rec = f.do(t, "GET", "/api/v1/orders/"+itoa(receipt.OrderID)+"/receipt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receipt_order_"+itoa(receipt.OrderID)+".pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = f.do(t, "GET", "/api/v1/orders/0/receipt", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_PayPalCheckout(t *testing.T) {
	f := setupGateway(t)
	require.Equal(t, http.StatusOK, f.do(t, "POST", "/api/v1/session/login", `{"email": "ann@example.com", "password": "secret"}`).Code)

	rec := f.do(t, "POST", "/api/v1/checkout/paypal", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusCreated, f.do(t, "POST", "/api/v1/cart/items", `{"product_id": 1, "size": "42", "quantity": 2}`).Code)

	rec = f.do(t, "POST", "/api/v1/checkout/paypal", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created PayPalOrderResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(t, created.PayPalOrderID)

	rec = f.do(t, "POST", "/api/v1/checkout/paypal/"+created.PayPalOrderID+"/capture", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var capture domain.PaymentCapture
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&capture))
	assert.NotZero(t, capture.OrderID)

	rec = f.do(t, "GET", "/api/v1/cart", "")
	assert.Empty(t, decodeCart(t, rec).Items)

	rec = f.do(t, "POST", "/api/v1/checkout/paypal/PP-unknown/capture", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRouter_PayPalRequiresSession(t *testing.T) {
	f := setupGateway(t)

	rec := f.do(t, "POST", "/api/v1/checkout/paypal", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, f.remote.Hits("POST /orders/paypal/create"))
}

func TestRouter_Newsletter(t *testing.T) {
	f := setupGateway(t)

	rec := f.do(t, "POST", "/api/v1/newsletter", `{"email": " ann@example.com "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ann@example.com"}, f.remote.Subscribers())

	rec = f.do(t, "POST", "/api/v1/newsletter", `{"email": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_BodyLimit(t *testing.T) {
	f := setupGateway(t)
	f.handler = NewRouter(Deps{Session: f.session, MaxRequestBodySize: 8})

	rec := f.do(t, "POST", "/api/v1/session/login", `{"email": "ann@example.com", "password": "secret"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, f.session.IsAuthenticated())
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
