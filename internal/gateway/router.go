package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Deps struct {
	Session    SessionStore
	Cart       CartMirror
	Orders     OrdersClient
	Watcher    OrderWatcher
	Products   ProductCatalog
	Newsletter Newsletter
	Logger     *zap.Logger

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter builds the gateway's HTTP surface.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}

	sessionHandler := NewSessionHandler(d.Session, d.RequestTimeout)
	cartHandler := NewCartHandler(d.Cart, d.RequestTimeout)
	productHandler := NewProductHandler(d.Products, d.RequestTimeout)
	ordersHandler := NewOrdersHandler(d.Orders, d.Watcher, d.Cart, d.RequestTimeout, d.Logger)
	newsletterHandler := NewNewsletterHandler(d.Newsletter, d.RequestTimeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(LimitBody(d.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.GetSession)
			r.Delete("/", sessionHandler.Logout)
			r.Post("/login", sessionHandler.Login)
			r.Post("/token", sessionHandler.InstallToken)
			r.Post("/register", sessionHandler.Register)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{line_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{line_id}", cartHandler.RemoveItem)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.Search)
			r.Get("/{product_id}", productHandler.Get)
		})
		r.Post("/newsletter", newsletterHandler.Subscribe)
		r.Group(func(r chi.Router) {
			r.Use(RequireSession(d.Session))
			r.Post("/checkout", ordersHandler.Checkout)
			r.Post("/checkout/paypal", ordersHandler.CreatePayPalOrder)
			r.Post("/checkout/paypal/{paypal_order_id}/capture", ordersHandler.CapturePayPalPayment)
			r.Get("/orders", ordersHandler.ListOrders)
			r.Get("/orders/{order_id}", ordersHandler.GetOrder)
			r.Get("/orders/{order_id}/receipt", ordersHandler.DownloadReceipt)
		})
	})

	return otelhttp.NewHandler(r, "storefront-gateway")
}
