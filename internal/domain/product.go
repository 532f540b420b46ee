package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Price is a decimal amount as sent by the wholesale API. The API is not
// consistent about number vs. string encoding, so both are accepted.
type Price float64

// UnmarshalJSON decodes a JSON number or numeric string. Empty, null and
// unparsable strings decode as 0.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode price: %w", err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*p = 0
			return nil
		}
		*p = Price(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode price: %w", err)
	}
	*p = Price(v)
	return nil
}

// Product is a catalog entry. It is never mutated by the storefront.
type Product struct {
	ID           int64  `json:"id"`
	Name         string `json:"product_name"`
	Description  string `json:"product_description"`
	RegularPrice Price  `json:"regular_price"`
	SalePrice    Price  `json:"sale_price"`
	ImageRef     string `json:"product_image"`
}

// Variation is a quantity-range price tier of a product. The range is inclusive
// on both ends. The tier decides eligibility; the price is the product's sale price.
type Variation struct {
	ID            int64 `json:"id"`
	ProductID     int64 `json:"product_id,omitempty"`
	StartQuantity int   `json:"start_quantity"`
	EndQuantity   int   `json:"end_quantity"`
}

// Contains reports whether quantity falls within the tier.
func (v Variation) Contains(quantity int) bool {
	return quantity >= v.StartQuantity && quantity <= v.EndQuantity
}

// Label is the human-readable range persisted on a cart line.
func (v Variation) Label() string {
	return fmt.Sprintf("Qty: %d - %d", v.StartQuantity, v.EndQuantity)
}
