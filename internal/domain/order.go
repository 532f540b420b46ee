package domain

// Order submission states.
const (
	StatusIdle       = "idle"
	StatusSubmitting = "submitting"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Order is the write-once request sent to the remote order service. The
// confirmation view renders this locally built value, not the server echo.
type Order struct {
	Invoice       string      `json:"invoice"`
	WholesellerID int64       `json:"wholeseller_id"`
	ResellerID    int64       `json:"reseller_id"`
	TotalPrice    float64     `json:"total_price"`
	Products      []OrderLine `json:"products"`
}

// OrderLine is one product entry of an order payload.
type OrderLine struct {
	ProductID       int64        `json:"product_id"`
	ProductQuantity int          `json:"product_quantity"`
	SalePrice       float64      `json:"sale_price"`
	VariationID     VariationRef `json:"variation_id"`
}

// NewOrder builds the order payload from the cart as it is at submission time.
// Non-numeric quantities count as 0 towards the total and are sent as 0.
func NewOrder(invoice string, wholesellerID, resellerID int64, cart Cart) *Order {
	lines := make([]OrderLine, len(cart))
	var total float64
	for i, line := range cart {
		qty := line.ParsedQuantity()
		lines[i] = OrderLine{
			ProductID:       line.ProductID,
			ProductQuantity: qty,
			SalePrice:       float64(line.SalePrice),
			VariationID:     line.VariationID,
		}
		total += float64(line.SalePrice) * float64(qty)
	}

	return &Order{
		Invoice:       invoice,
		WholesellerID: wholesellerID,
		ResellerID:    resellerID,
		TotalPrice:    total,
		Products:      lines,
	}
}

// ItemCount returns the total product quantity in the order.
func (o *Order) ItemCount() int {
	var count int
	for _, p := range o.Products {
		count += p.ProductQuantity
	}
	return count
}

// RemoteOrder is an order request as listed by the remote order history endpoint.
type RemoteOrder struct {
	ID            int64  `json:"id"`
	Invoice       string `json:"invoice"`
	WholesellerID int64  `json:"wholeseller_id"`
	ResellerID    int64  `json:"reseller_id"`
	TotalPrice    Price  `json:"total_price"`
	Status        string `json:"status"`
}
