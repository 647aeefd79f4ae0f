package domain

type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Image       string   `json:"image,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
}

// CartLine is one product/size/quantity entry as reported by the remote cart.
type CartLine struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"shoe_id"`
	Product   Product `json:"shoe"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
}

func (l CartLine) Subtotal() float64 {
	return l.Product.Price * float64(l.Quantity)
}

// CartSnapshot represents the full cart state at the time of the last fetch.
// It is replaced wholesale and never merged.
type CartSnapshot struct {
	Lines []CartLine `json:"items"`
}

// NewCartSnapshot copies lines so the snapshot never aliases a decoded response.
func NewCartSnapshot(lines []CartLine) CartSnapshot {
	if len(lines) == 0 {
		return CartSnapshot{}
	}
	cp := make([]CartLine, len(lines))
	copy(cp, lines)
	return CartSnapshot{Lines: cp}
}

// ItemCount sums quantities across all lines.
func (s CartSnapshot) ItemCount() int {
	total := 0
	for _, l := range s.Lines {
		total += l.Quantity
	}
	return total
}

func (s CartSnapshot) Total() float64 {
	var total float64
	for _, l := range s.Lines {
		total += l.Subtotal()
	}
	return total
}

func (s CartSnapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

func (s CartSnapshot) Line(id int64) (CartLine, bool) {
	for _, l := range s.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return CartLine{}, false
}

func (s CartSnapshot) Clone() CartSnapshot {
	return NewCartSnapshot(s.Lines)
}
