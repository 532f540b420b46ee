package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NoVariation is the persisted marker for a cart line that has no resolved price tier.
const NoVariation = "no-variation"

// NoVariationLabel is the display label stored on a line without a resolved tier.
const NoVariationLabel = "No variation selected"

// VariationRef identifies the variation a cart line was resolved to. The zero
// value means no variation; it is encoded as the NoVariation string so the
// persisted cart and the order payload keep the same shape as the remote API.
type VariationRef struct {
	ID    int64
	Valid bool
}

// RefTo returns a reference to the given variation ID.
func RefTo(id int64) VariationRef {
	return VariationRef{ID: id, Valid: true}
}

// String returns the ID as text, or the NoVariation marker.
func (r VariationRef) String() string {
	if !r.Valid {
		return NoVariation
	}
	return strconv.FormatInt(r.ID, 10)
}

// MarshalJSON encodes a number for a resolved variation and the marker string otherwise.
func (r VariationRef) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return json.Marshal(NoVariation)
	}
	return []byte(strconv.FormatInt(r.ID, 10)), nil
}

// UnmarshalJSON accepts a number, a numeric string, the marker string or null.
func (r *VariationRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = VariationRef{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode variation id: %w", err)
		}
		if s == "" || s == NoVariation {
			*r = VariationRef{}
			return nil
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("decode variation id %q: %w", s, err)
		}
		*r = RefTo(id)
		return nil
	}

	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("decode variation id: %w", err)
	}
	*r = RefTo(id)
	return nil
}

// CartLine is one resolved product, tier and quantity entry destined for an order.
// Quantity keeps the user's input verbatim; it is only parsed when totals or the
// order payload are computed.
type CartLine struct {
	ProductID      int64        `json:"product_id"`
	ProductName    string       `json:"product"`
	VariationLabel string       `json:"variation"`
	VariationID    VariationRef `json:"variation_id"`
	SalePrice      Price        `json:"sale_price"`
	RegularPrice   Price        `json:"regular_price"`
	Quantity       string       `json:"product_quantity"`
}

// ParsedQuantity returns the line quantity as an integer, or 0 when the input is not numeric.
func (l CartLine) ParsedQuantity() int {
	q, ok := ParseQuantity(l.Quantity)
	if !ok {
		return 0
	}
	return q
}

// Subtotal is sale price times parsed quantity.
func (l CartLine) Subtotal() float64 {
	return float64(l.SalePrice) * float64(l.ParsedQuantity())
}

// Cart is the ordered sequence of lines; insertion order is display order.
type Cart []CartLine

// Len returns the number of lines.
func (c Cart) Len() int { return len(c) }

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool { return len(c) == 0 }

// IndexOf returns the position of the line for productID, or -1.
func (c Cart) IndexOf(productID int64) int {
	for i := range c {
		if c[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// WithLine returns a new cart where any line for the same product is dropped and
// line is appended at the end. A product never has more than one line.
func (c Cart) WithLine(line CartLine) Cart {
	out := make(Cart, 0, len(c)+1)
	for _, existing := range c {
		if existing.ProductID == line.ProductID {
			continue
		}
		out = append(out, existing)
	}
	return append(out, line)
}

// WithoutIndex returns a new cart without the line at index. The caller checks bounds.
func (c Cart) WithoutIndex(index int) Cart {
	out := make(Cart, 0, len(c))
	out = append(out, c[:index]...)
	return append(out, c[index+1:]...)
}

// TotalQuantity sums the parsed quantities of all lines.
func (c Cart) TotalQuantity() int {
	var total int
	for _, line := range c {
		total += line.ParsedQuantity()
	}
	return total
}

// TotalCost sums sale price times quantity over all lines.
func (c Cart) TotalCost() float64 {
	var total float64
	for _, line := range c {
		total += line.Subtotal()
	}
	return total
}

// ParseQuantity parses raw quantity input. Surrounding whitespace is ignored;
// anything else that is not a base-10 integer is rejected. Input with a
// numeric prefix such as "12 pcs" is rejected too rather than read as 12, so
// such a line resolves no tier and counts as zero in totals.
func ParseQuantity(raw string) (int, bool) {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return q, true
}

// CartSummary is the cart view shown on the cart screen. The previous-cart totals
// come from a read-only snapshot and only feed the cumulative figures.
type CartSummary struct {
	Lines                 Cart    `json:"lines"`
	LineCount             int     `json:"line_count"`
	TotalQuantity         int     `json:"total_quantity"`
	TotalCost             float64 `json:"total_cost"`
	PreviousTotalQuantity int     `json:"previous_total_quantity"`
	PreviousTotalCost     float64 `json:"previous_total_cost"`
	CumulativeQuantity    int     `json:"cumulative_quantity"`
	CumulativeCost        float64 `json:"cumulative_cost"`
}

// Summarize builds a CartSummary from the current cart and the previous-cart snapshot.
func Summarize(current, previous Cart) CartSummary {
	if current == nil {
		current = Cart{}
	}
	s := CartSummary{
		Lines:                 current,
		LineCount:             current.Len(),
		TotalQuantity:         current.TotalQuantity(),
		TotalCost:             current.TotalCost(),
		PreviousTotalQuantity: previous.TotalQuantity(),
		PreviousTotalCost:     previous.TotalCost(),
	}
	s.CumulativeQuantity = s.TotalQuantity + s.PreviousTotalQuantity
	s.CumulativeCost = s.TotalCost + s.PreviousTotalCost
	return s
}
