// Package remotetest runs an in-memory commerce API with the same routes and
// payloads as the remote authority, for use in tests.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type user struct {
	id       int64
	email    string
	password string
}

type cartRow struct {
	id        int64
	userID    int64
	productID int64
	size      string
	quantity  int
}

type failure struct {
	status  int
	message string
}

type hold struct {
	arrived chan struct{}
	release chan struct{}
}

// Server is a fake remote authority. All state is guarded by mu.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	users       map[string]*user
	tokens      map[string]int64
	products    map[int64]*domain.Product
	cart        []*cartRow
	orders      map[int64]*domain.Order
	owners      map[int64]int64
	paypal      map[string]int64 // paypal order id -> user id
	subscribers []string
	nextID      int64
	hits        map[string]int
	failures    map[string]failure
	holds       map[string]*hold
	lastAuth    map[string]string
}

func NewServer(t testing.TB) *Server {
	s := &Server{
		users:    make(map[string]*user),
		tokens:   make(map[string]int64),
		products: make(map[int64]*domain.Product),
		orders:   make(map[int64]*domain.Order),
		owners:   make(map[int64]int64),
		paypal:   make(map[string]int64),
		hits:     make(map[string]int),
		failures: make(map[string]failure),
		holds:    make(map[string]*hold),
		lastAuth: make(map[string]string),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root the client should be configured with.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/register", s.register)
		r.Get("/shoes/search", s.searchProducts)
		r.Get("/shoes/{id}", s.getProduct)
		r.Post("/newsletter/subscribe", s.subscribe)
		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/cart/", s.getCart)
			r.Post("/cart/", s.addToCart)
			r.Put("/cart/{id}", s.updateCartLine)
			r.Delete("/cart/{id}", s.removeCartLine)
			r.Post("/orders/checkout", s.checkout)
			r.Get("/orders/", s.listOrders)
			r.Get("/orders/{id}", s.getOrder)
			r.Get("/orders/{id}/receipt", s.receipt)
			r.Post("/orders/paypal/create", s.createPayPalOrder)
			r.Post("/orders/paypal/{paypalID}/capture", s.capturePayPalPayment)
		})
	})
	return r
}

// Route keys are "METHOD path" with the /api prefix stripped and numeric
// segments replaced by {id}, e.g. "GET /cart/" or "PUT /cart/{id}".
func routeKey(r *http.Request) string {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api"), "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = "{id}"
		}
	}
	return r.Method + " " + strings.Join(parts, "/")
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r)
		s.mu.Lock()
		s.hits[key]++
		s.lastAuth[key] = r.Header.Get("Authorization")
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Hits reports how many requests reached the route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// LastAuthorization is the Authorization header of the latest request on route.
func (s *Server) LastAuthorization(route string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth[route]
}

// FailNext makes the next request on route answer with status and message.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// Hold parks the next request on route after its response has been computed.
// arrived is closed once the request is parked; calling release lets it finish.
func (s *Server) Hold(route string) (arrived <-chan struct{}, release func()) {
	h := &hold{arrived: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.holds[route] = h
	s.mu.Unlock()
	var once sync.Once
	return h.arrived, func() { once.Do(func() { close(h.release) }) }
}

func (s *Server) takeFailure(r *http.Request) (failure, bool) {
	key := routeKey(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.failures[key]
	if ok {
		delete(s.failures, key)
	}
	return f, ok
}

func (s *Server) park(r *http.Request) {
	key := routeKey(r)
	s.mu.Lock()
	h, ok := s.holds[key]
	if ok {
		delete(s.holds, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	close(h.arrived)
	select {
	case <-h.release:
	case <-r.Context().Done():
	}
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

// AddUser registers an account and returns its id.
func (s *Server) AddUser(email, password string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{id: s.id(), email: email, password: password}
	s.users[email] = u
	return u.id
}

// IssueToken mints a bearer token for userID, as a federated login would.
func (s *Server) IssueToken(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issue(userID)
}

func (s *Server) issue(userID int64) string {
	token := uuid.NewString()
	s.tokens[token] = userID
	return token
}

func (s *Server) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	cp.Sizes = append([]string(nil), p.Sizes...)
	s.products[p.ID] = &cp
}

func (s *Server) SetStock(productID int64, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; ok {
		p.Stock = stock
	}
}

// CartLines returns the server-side cart of userID in insertion order.
func (s *Server) CartLines(userID int64) []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linesFor(userID)
}

func (s *Server) SetOrderStatus(orderID int64, status domain.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderID]; ok {
		o.Status = status
		// a completed phone payment carries its confirmation code
		if status == domain.OrderStatusCompleted && o.Payment == nil {
			o.Payment = &domain.Payment{MpesaCode: "QK" + strconv.FormatInt(o.ID, 10), Amount: o.TotalAmount}
		}
	}
}

type ctxKey struct{}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Missing Authorization Header"})
			return
		}
		s.mu.Lock()
		userID, known := s.tokens[token]
		s.mu.Unlock()
		if !known {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"msg": "Signature verification failed"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r, userID)))
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[req.Email]
	if !ok || u.password != req.Password {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"access_token": s.issue(u.id)})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		respondError(w, http.StatusConflict, "Email already exists")
		return
	}
	u := &user{id: s.id(), email: req.Email, password: req.Password}
	s.users[req.Email] = u
	respondJSON(w, http.StatusCreated, map[string]any{"id": u.id, "email": u.email})
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = domain.DefaultPerPage
	}
	minPrice, errMin := strconv.ParseFloat(q.Get("min_price"), 64)
	maxPrice, errMax := strconv.ParseFloat(q.Get("max_price"), 64)

	s.mu.Lock()
	var matched []domain.Product
	for _, p := range s.products {
		switch {
		case q.Get("q") != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), strings.ToLower(q.Get("q"))):
			continue
		case q.Get("brand") != "" && p.Brand != q.Get("brand"):
			continue
		case errMin == nil && p.Price < minPrice:
			continue
		case errMax == nil && p.Price > maxPrice:
			continue
		case q.Get("size") != "" && !contains(p.Sizes, q.Get("size")):
			continue
		}
		matched = append(matched, *p)
	}
	s.mu.Unlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	pages := (len(matched) + perPage - 1) / perPage
	from := min((page-1)*perPage, len(matched))
	to := min(from+perPage, len(matched))
	respondJSON(w, http.StatusOK, domain.ProductPage{
		Products:    append([]domain.Product{}, matched[from:to]...),
		Total:       len(matched),
		Pages:       pages,
		CurrentPage: page,
	})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, "Not Found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		respondError(w, http.StatusNotFound, "Not Found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	s.mu.Lock()
	lines := s.linesFor(userFrom(r))
	s.mu.Unlock()

	s.park(r)
	respondJSON(w, http.StatusOK, lines)
}

func (s *Server) linesFor(userID int64) []domain.CartLine {
	lines := make([]domain.CartLine, 0)
	for _, row := range s.cart {
		if row.userID != userID {
			continue
		}
		line := domain.CartLine{ID: row.id, ProductID: row.productID, Size: row.size, Quantity: row.quantity}
		if p, ok := s.products[row.productID]; ok {
			line.Product = *p
		}
		lines = append(lines, line)
	}
	return lines
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	var req struct {
		ProductID int64  `json:"shoe_id"`
		Size      string `json:"size"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 || req.Size == "" || req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	userID := userFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[req.ProductID]
	if !ok {
		respondError(w, http.StatusNotFound, "Shoe not found")
		return
	}
	if len(p.Sizes) > 0 && !contains(p.Sizes, req.Size) {
		respondError(w, http.StatusBadRequest, "Invalid size")
		return
	}
	if p.Stock < req.Quantity {
		respondError(w, http.StatusBadRequest, "Not enough stock available")
		return
	}
	for _, row := range s.cart {
		if row.userID == userID && row.productID == req.ProductID && row.size == req.Size {
			row.quantity += req.Quantity
			respondJSON(w, http.StatusCreated, map[string]string{"message": "Item added to cart"})
			return
		}
	}
	s.cart = append(s.cart, &cartRow{id: s.id(), userID: userID, productID: req.ProductID, size: req.Size, quantity: req.Quantity})
	respondJSON(w, http.StatusCreated, map[string]string{"message": "Item added to cart"})
}

func (s *Server) findRow(r *http.Request) (*cartRow, int) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return nil, -1
	}
	userID := userFrom(r)
	for i, row := range s.cart {
		if row.id == id && row.userID == userID {
			return row, i
		}
	}
	return nil, -1
}

func (s *Server) updateCartLine(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "Invalid quantity")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	row, _ := s.findRow(r)
	if row == nil {
		respondError(w, http.StatusNotFound, "Not Found")
		return
	}
	if p, ok := s.products[row.productID]; ok && p.Stock < req.Quantity {
		respondError(w, http.StatusBadRequest, "Not enough stock available")
		return
	}
	row.quantity = req.Quantity
	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart updated successfully"})
}

func (s *Server) removeCartLine(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, i := s.findRow(r)
	if row == nil {
		respondError(w, http.StatusNotFound, "Not Found")
		return
	}
	s.cart = append(s.cart[:i], s.cart[i+1:]...)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Item removed from cart"})
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
		respondError(w, http.StatusBadRequest, "Invalid phone number. Use 07xx, 01xx, or 254xx format.")
		return
	}
	userID := userFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.linesFor(userID)
	if len(lines) == 0 {
		respondError(w, http.StatusBadRequest, "Your cart is empty")
		return
	}
	order := &domain.Order{ID: s.id(), Status: domain.OrderStatusPending}
	for _, l := range lines {
		if l.Product.Stock < l.Quantity {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Not enough stock for %s. Available: %d", l.Product.Name, l.Product.Stock))
			return
		}
		order.TotalAmount += l.Subtotal()
	}
	for _, l := range lines {
		s.products[l.ProductID].Stock -= l.Quantity
		order.Items = append(order.Items, domain.OrderItem{ID: s.id(), CartID: l.ID, Line: l})
	}
	remaining := s.cart[:0]
	for _, row := range s.cart {
		if row.userID != userID {
			remaining = append(remaining, row)
		}
	}
	s.cart = remaining
	order.CheckoutRequestID = "ws_CO_" + strconv.FormatInt(order.ID, 10)
	s.orders[order.ID] = order
	s.owners[order.ID] = userID

	respondJSON(w, http.StatusOK, domain.CheckoutReceipt{
		Message:           "Checkout process initiated. Please complete the payment on your phone.",
		OrderID:           order.ID,
		CheckoutRequestID: order.CheckoutRequestID,
	})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)
	s.mu.Lock()
	orders := make([]domain.Order, 0)
	for id, o := range s.orders {
		if s.owners[id] == userID {
			orders = append(orders, *o)
		}
	}
	s.mu.Unlock()
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, "Not Found")
		return
	}
	s.mu.Lock()
	o, ok := s.orders[id]
	owned := ok && s.owners[id] == userFrom(r)
	var cp domain.Order
	if owned {
		cp = *o
	}
	s.mu.Unlock()
	if !owned {
		respondError(w, http.StatusNotFound, "Not Found")
		return
	}
	respondJSON(w, http.StatusOK, cp)
}

// Subscribers returns the newsletter addresses received so far.
func (s *Server) Subscribers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subscribers...)
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	at := strings.Index(req.Email, "@")
	if at < 1 || !strings.Contains(req.Email[at:], ".") {
		respondError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, req.Email)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Subscribed successfully!"})
}

func (s *Server) receipt(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	s.mu.Lock()
	o, ok := s.orders[id]
	owned := ok && s.owners[id] == userFrom(r)
	var cp domain.Order
	if owned {
		cp = *o
	}
	s.mu.Unlock()
	if !owned {
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	if cp.Status != domain.OrderStatusCompleted || cp.Payment == nil {
		respondError(w, http.StatusBadRequest, "Receipt is only available for completed payments")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment;filename=receipt_order_%d.pdf", cp.ID))
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%%PDF-1.4\n%% receipt for order %d, M-Pesa code %s\n%%%%EOF\n", cp.ID, cp.Payment.MpesaCode)
}

func (s *Server) createPayPalOrder(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	userID := userFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.linesFor(userID)) == 0 {
		respondError(w, http.StatusBadRequest, "Your cart is empty")
		return
	}
	pid := "PP-" + strconv.FormatInt(s.id(), 10)
	s.paypal[pid] = userID
	respondJSON(w, http.StatusOK, map[string]string{"orderID": pid})
}

func (s *Server) capturePayPalPayment(w http.ResponseWriter, r *http.Request) {
	if f, ok := s.takeFailure(r); ok {
		respondError(w, f.status, f.message)
		return
	}
	userID := userFrom(r)
	pid := chi.URLParam(r, "paypalID")

	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.paypal[pid]; !ok || owner != userID {
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to capture payment",
			"details": "RESOURCE_NOT_FOUND",
		})
		return
	}
	delete(s.paypal, pid)

	order := &domain.Order{ID: s.id(), Status: domain.OrderStatusCompleted}
	for _, l := range s.linesFor(userID) {
		order.TotalAmount += l.Subtotal()
		s.products[l.ProductID].Stock -= l.Quantity
		order.Items = append(order.Items, domain.OrderItem{ID: s.id(), CartID: l.ID, Line: l})
	}
	remaining := s.cart[:0]
	for _, row := range s.cart {
		if row.userID != userID {
			remaining = append(remaining, row)
		}
	}
	s.cart = remaining
	s.orders[order.ID] = order
	s.owners[order.ID] = userID

	respondJSON(w, http.StatusOK, domain.PaymentCapture{Message: "Payment successful!", OrderID: order.ID})
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
