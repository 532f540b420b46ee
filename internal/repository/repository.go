package repository

import (
	"context"
	"time"

	"github.com/utafrali/wholesale-storefront/internal/domain"
)

// CartStore is the durable, restart-surviving cart. It is the single source of
// truth for what will be ordered.
type CartStore interface {
	// Load returns the persisted cart. Missing or unreadable data yields an
	// empty cart; load problems are never surfaced to the caller.
	Load(ctx context.Context) domain.Cart

	// LoadPrevious returns the read-only previous-cart snapshot used for
	// cumulative totals. Same fail-soft policy as Load.
	LoadPrevious(ctx context.Context) domain.Cart

	// ReplaceLine drops any line for the same product, appends line, persists
	// and returns the updated cart.
	ReplaceLine(ctx context.Context, line domain.CartLine) (domain.Cart, error)

	// RemoveLine removes the line at index and persists the result.
	RemoveLine(ctx context.Context, index int) (domain.Cart, error)

	// Clear removes all persisted lines.
	Clear(ctx context.Context) error
}

// Receipt is a placed order kept in the local journal for the confirmation view.
type Receipt struct {
	Invoice    string        `json:"invoice"`
	Order      *domain.Order `json:"order"`
	TotalPrice float64       `json:"total_price"`
	ItemCount  int           `json:"item_count"`
	PlacedAt   time.Time     `json:"placed_at"`
}

// ReceiptRepository persists orders after the remote service accepted them.
type ReceiptRepository interface {
	// Create stores a receipt for a placed order.
	Create(ctx context.Context, receipt *Receipt) error

	// GetByInvoice retrieves a receipt by its invoice.
	GetByInvoice(ctx context.Context, invoice string) (*Receipt, error)

	// List returns the most recent receipts, newest first.
	List(ctx context.Context, limit int) ([]Receipt, error)
}
