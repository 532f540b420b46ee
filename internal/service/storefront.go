package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/wholesale-storefront/internal/domain"
	"github.com/utafrali/wholesale-storefront/internal/repository"
	"github.com/utafrali/wholesale-storefront/internal/variation"
	apperrors "github.com/utafrali/wholesale-storefront/pkg/errors"
)

// Receipt listing bounds.
const (
	DefaultReceiptLimit = 20
	MaxReceiptLimit     = 100
)

// Catalog reads products, tiers and order history from the wholesale API.
type Catalog interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
	Variations(ctx context.Context, productID int64) ([]domain.Variation, error)
	OrderRequests(ctx context.Context, tokenableID string) ([]domain.RemoteOrder, error)
}

// Cart is the session projection the storefront mutates and renders.
type Cart interface {
	Sync(ctx context.Context) domain.Cart
	Snapshot() domain.CartSummary
	AddOrReplace(ctx context.Context, product domain.Product, resolved *domain.Variation, quantity string) (domain.Cart, error)
	SetQuantity(ctx context.Context, productID int64, resolved *domain.Variation, quantity string) (domain.Cart, error)
	RemoveLine(ctx context.Context, index int) (domain.Cart, error)
}

// Submitter places the persisted cart as an order.
type Submitter interface {
	Submit(ctx context.Context) (*domain.Order, error)
	State() string
}

// StorefrontService implements the storefront screens' actions on top of the
// catalog, the cart session and the order submitter.
type StorefrontService struct {
	catalog   Catalog
	cart      Cart
	submitter Submitter
	receipts  repository.ReceiptRepository
	logger    *slog.Logger
}

// NewStorefrontService creates a storefront service. receipts may be nil when
// the journal is disabled.
func NewStorefrontService(catalog Catalog, cart Cart, submitter Submitter, receipts repository.ReceiptRepository, logger *slog.Logger) *StorefrontService {
	return &StorefrontService{
		catalog:   catalog,
		cart:      cart,
		submitter: submitter,
		receipts:  receipts,
		logger:    logger,
	}
}

// ListProducts returns the catalog, optionally narrowed to products whose name
// contains query, ignoring case.
func (s *StorefrontService) ListProducts(ctx context.Context, query string) ([]domain.Product, error) {
	products, err := s.catalog.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return products, nil
	}

	matched := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), query) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Variations returns the quantity tiers of a product.
func (s *StorefrontService) Variations(ctx context.Context, productID int64) ([]domain.Variation, error) {
	if productID <= 0 {
		return nil, apperrors.InvalidInput("product id must be positive")
	}
	vs, err := s.catalog.Variations(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list variations: %w", err)
	}
	return vs, nil
}

// PreviewVariation resolves the tier for the quantity being typed. It returns
// nil when no tier applies, which clears the selection.
func (s *StorefrontService) PreviewVariation(ctx context.Context, productID int64, rawQuantity string) (*domain.Variation, error) {
	vs, err := s.Variations(ctx, productID)
	if err != nil {
		return nil, err
	}
	v, ok := variation.ResolveInput(rawQuantity, vs)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// AddToCart writes a line for the product, replacing any existing one. The
// quantity is stored as entered. variationID picks a tier explicitly and must
// belong to the product; when nil the tier is resolved from rawQuantity.
func (s *StorefrontService) AddToCart(ctx context.Context, productID int64, rawQuantity string, variationID *int64) (domain.Cart, error) {
	if productID <= 0 {
		return nil, apperrors.InvalidInput("product id must be positive")
	}
	if strings.TrimSpace(rawQuantity) == "" {
		return nil, apperrors.InvalidInput("please enter a quantity")
	}

	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	vs, err := s.catalog.Variations(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list variations: %w", err)
	}

	var resolved *domain.Variation
	if variationID != nil {
		resolved, err = pickVariation(productID, *variationID, vs)
		if err != nil {
			return nil, err
		}
	} else if v, ok := variation.ResolveInput(rawQuantity, vs); ok {
		resolved = &v
	}

	cart, err := s.cart.AddOrReplace(ctx, *product, resolved, rawQuantity)
	CartMutations.WithLabelValues("add", mutationResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart line added",
		slog.Int64("product_id", productID),
		slog.String("quantity", rawQuantity),
		slog.String("variation", variation.Label(resolved)),
	)
	return cart, nil
}

func pickVariation(productID, variationID int64, vs []domain.Variation) (*domain.Variation, error) {
	for _, v := range vs {
		if v.ID == variationID {
			return &v, nil
		}
	}
	return nil, apperrors.InvalidInput(fmt.Sprintf("variation %d does not belong to product %d", variationID, productID))
}

// SetQuantity changes the quantity of an existing line and re-resolves its
// tier for the new quantity.
func (s *StorefrontService) SetQuantity(ctx context.Context, productID int64, rawQuantity string) (domain.Cart, error) {
	if strings.TrimSpace(rawQuantity) == "" {
		return nil, apperrors.InvalidInput("please enter a quantity")
	}
	vs, err := s.catalog.Variations(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list variations: %w", err)
	}

	var resolved *domain.Variation
	if v, ok := variation.ResolveInput(rawQuantity, vs); ok {
		resolved = &v
	}

	cart, err := s.cart.SetQuantity(ctx, productID, resolved, rawQuantity)
	CartMutations.WithLabelValues("set_quantity", mutationResult(err)).Inc()
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveLine deletes the line at index. Confirmation is the caller's job.
func (s *StorefrontService) RemoveLine(ctx context.Context, index int) (domain.Cart, error) {
	cart, err := s.cart.RemoveLine(ctx, index)
	CartMutations.WithLabelValues("remove", mutationResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart line removed", slog.Int("index", index))
	return cart, nil
}

// Summary reloads the cart from storage and summarizes it.
func (s *StorefrontService) Summary(ctx context.Context) domain.CartSummary {
	s.cart.Sync(ctx)
	return s.cart.Snapshot()
}

// CurrentSummary summarizes the projection as it is, without reloading.
func (s *StorefrontService) CurrentSummary() domain.CartSummary {
	return s.cart.Snapshot()
}

// PlaceOrder submits the cart.
func (s *StorefrontService) PlaceOrder(ctx context.Context) (*domain.Order, error) {
	return s.submitter.Submit(ctx)
}

// SubmissionState reports where the order submitter currently is.
func (s *StorefrontService) SubmissionState() string {
	return s.submitter.State()
}

// OrderHistory lists the order requests the remote service holds for a user.
func (s *StorefrontService) OrderHistory(ctx context.Context, tokenableID string) ([]domain.RemoteOrder, error) {
	tokenableID = strings.TrimSpace(tokenableID)
	if tokenableID == "" {
		return nil, apperrors.InvalidInput("tokenable id is required")
	}
	orders, err := s.catalog.OrderRequests(ctx, tokenableID)
	if err != nil {
		return nil, fmt.Errorf("list order requests: %w", err)
	}
	return orders, nil
}

// Receipt returns the journaled receipt for invoice.
func (s *StorefrontService) Receipt(ctx context.Context, invoice string) (*repository.Receipt, error) {
	if s.receipts == nil {
		return nil, apperrors.ServiceUnavailable("order receipts are not enabled")
	}
	if strings.TrimSpace(invoice) == "" {
		return nil, apperrors.InvalidInput("invoice is required")
	}
	return s.receipts.GetByInvoice(ctx, invoice)
}

// Receipts returns the most recent receipts. Non-positive limits use the
// default; limits above the maximum are capped.
func (s *StorefrontService) Receipts(ctx context.Context, limit int) ([]repository.Receipt, error) {
	if s.receipts == nil {
		return nil, apperrors.ServiceUnavailable("order receipts are not enabled")
	}
	if limit <= 0 {
		limit = DefaultReceiptLimit
	}
	if limit > MaxReceiptLimit {
		limit = MaxReceiptLimit
	}
	return s.receipts.List(ctx, limit)
}
