// Package variation picks the quantity tier that applies to a cart line.
package variation

import "github.com/utafrali/wholesale-storefront/internal/domain"

// Resolve returns the variation whose inclusive range contains quantity.
//
// When no range matches, the variation with the highest end quantity is used:
// it acts as the open-ended "at least this much" tier, so a positive quantity
// always gets some tier as long as the product has any. Non-positive
// quantities and empty variation sets resolve to nothing.
func Resolve(quantity int, variations []domain.Variation) (domain.Variation, bool) {
	if quantity <= 0 || len(variations) == 0 {
		return domain.Variation{}, false
	}

	for _, v := range variations {
		if v.Contains(quantity) {
			return v, true
		}
	}

	top := variations[0]
	for _, v := range variations[1:] {
		if v.EndQuantity > top.EndQuantity {
			top = v
		}
	}
	return top, true
}

// ResolveInput parses raw quantity text and resolves it. Input that is not an
// integer resolves to nothing, which tells the caller to clear any selection.
func ResolveInput(raw string, variations []domain.Variation) (domain.Variation, bool) {
	q, ok := domain.ParseQuantity(raw)
	if !ok {
		return domain.Variation{}, false
	}
	return Resolve(q, variations)
}

// ForProduct keeps only the variations belonging to productID. Variations that
// carry no product id are kept, since the endpoint was already scoped.
func ForProduct(productID int64, variations []domain.Variation) []domain.Variation {
	out := make([]domain.Variation, 0, len(variations))
	for _, v := range variations {
		if v.ProductID == 0 || v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out
}

// Label returns the persisted label for an optional resolved variation.
func Label(v *domain.Variation) string {
	if v == nil {
		return domain.NoVariationLabel
	}
	return v.Label()
}

// Ref returns the cart-line reference for an optional resolved variation.
func Ref(v *domain.Variation) domain.VariationRef {
	if v == nil {
		return domain.VariationRef{}
	}
	return domain.RefTo(v.ID)
}
