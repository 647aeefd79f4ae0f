package domain

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

type OrderItem struct {
	ID     int64    `json:"id"`
	CartID int64    `json:"cart_id"`
	Line   CartLine `json:"cart"`
}

type Payment struct {
	MpesaCode   string  `json:"mpesa_code"`
	Amount      float64 `json:"amount"`
	PhoneNumber string  `json:"phone_number"`
}

// Order mirrors the remote order resource. CreatedAt is kept as the raw
// server timestamp since the API emits it without a zone.
type Order struct {
	ID                int64       `json:"id"`
	Status            OrderStatus `json:"status"`
	TotalAmount       float64     `json:"total_amount"`
	CheckoutRequestID string      `json:"checkout_request_id,omitempty"`
	CreatedAt         string      `json:"created_at,omitempty"`
	Items             []OrderItem `json:"items"`
	Payment           *Payment    `json:"payment,omitempty"`
}

// CheckoutReceipt is returned when a checkout has been accepted and payment
// confirmation is pending on the customer's phone.
type CheckoutReceipt struct {
	Message           string `json:"message"`
	OrderID           int64  `json:"order_id"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// PaymentCapture is returned once an externally approved payment has been
// captured and the order completed.
type PaymentCapture struct {
	Message string `json:"message"`
	OrderID int64  `json:"order_id"`
}
