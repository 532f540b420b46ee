// Package session holds the in-memory cart projection the UI renders from.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/wholesale-storefront/internal/domain"
	"github.com/utafrali/wholesale-storefront/internal/repository"
	"github.com/utafrali/wholesale-storefront/internal/variation"
	apperrors "github.com/utafrali/wholesale-storefront/pkg/errors"
)

// Reasons attached to cart.cleared events.
const (
	ClearReasonOrderPlaced = "order_placed"
)

// CartEvents publishes cart change notifications to the outside world.
type CartEvents interface {
	PublishCartUpdated(ctx context.Context, cart domain.Cart) error
	PublishCartCleared(ctx context.Context, reason string) error
}

// Listener receives the full cart after every completed mutation.
type Listener func(cart domain.Cart)

// CartState mirrors the durable cart for rendering. The store stays the source
// of truth: every mutation is written there first and the projection only
// changes once the write succeeded.
type CartState struct {
	store  repository.CartStore
	events CartEvents
	logger *slog.Logger

	// writeMu orders store writes with projection updates. Listeners run
	// while it is held and must not mutate the cart.
	writeMu sync.Mutex

	mu       sync.RWMutex
	cart     domain.Cart
	previous domain.Cart

	subMu     sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// NewCartState creates an empty projection over store. Call Sync to load it.
// events may be nil.
func NewCartState(store repository.CartStore, events CartEvents, logger *slog.Logger) *CartState {
	return &CartState{
		store:     store,
		events:    events,
		logger:    logger,
		cart:      domain.Cart{},
		listeners: make(map[int]Listener),
	}
}

// Cart returns a copy of the current projection.
func (s *CartState) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Snapshot summarizes the projection together with the previous cart seen at
// the last Sync.
func (s *CartState) Snapshot() domain.CartSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Summarize(s.cart.Clone(), s.previous)
}

// Sync reloads the projection from the store. It never fails: unreadable
// storage yields an empty cart.
func (s *CartState) Sync(ctx context.Context) domain.Cart {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cart := s.store.Load(ctx)
	previous := s.store.LoadPrevious(ctx)

	s.mu.Lock()
	s.cart = cart
	s.previous = previous
	s.mu.Unlock()

	s.notify(cart)
	return cart.Clone()
}

// AddOrReplace writes a line for product at quantity, replacing any line for
// the same product. resolved is nil when no tier applies.
func (s *CartState) AddOrReplace(ctx context.Context, product domain.Product, resolved *domain.Variation, quantity string) (domain.Cart, error) {
	line := domain.CartLine{
		ProductID:      product.ID,
		ProductName:    product.Name,
		VariationLabel: variation.Label(resolved),
		VariationID:    variation.Ref(resolved),
		SalePrice:      product.SalePrice,
		RegularPrice:   product.RegularPrice,
		Quantity:       quantity,
	}
	return s.replace(ctx, line)
}

// SetQuantity changes the quantity of the stored line for productID and gives
// it the tier resolved for the new quantity. The line moves to the end of the
// cart. A product missing from the store is NotFound even when the projection
// still shows it; the projection is refreshed in that case.
func (s *CartState) SetQuantity(ctx context.Context, productID int64, resolved *domain.Variation, quantity string) (domain.Cart, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored := s.store.Load(ctx)
	idx := stored.IndexOf(productID)
	if idx < 0 {
		s.mu.Lock()
		s.cart = stored
		s.mu.Unlock()
		s.notify(stored)
		return nil, apperrors.NotFound("cart line", fmt.Sprintf("%d", productID))
	}

	line := stored[idx]
	line.Quantity = quantity
	line.VariationLabel = variation.Label(resolved)
	line.VariationID = variation.Ref(resolved)
	return s.replaceLocked(ctx, line)
}

// RemoveLine deletes the line at index. The caller is expected to have
// confirmed the removal with the user.
func (s *CartState) RemoveLine(ctx context.Context, index int) (domain.Cart, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cart, err := s.store.RemoveLine(ctx, index)
	if err != nil {
		return nil, err
	}
	s.apply(ctx, cart)
	return cart.Clone(), nil
}

// Clear empties the projection only. The store must already be cleared.
func (s *CartState) Clear(ctx context.Context, reason string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.cart = domain.Cart{}
	s.mu.Unlock()

	s.notify(domain.Cart{})

	if s.events != nil {
		if err := s.events.PublishCartCleared(ctx, reason); err != nil {
			s.logger.WarnContext(ctx, "failed to publish cart cleared event",
				slog.String("error", err.Error()),
			)
		}
	}
}

// Subscribe registers fn for cart changes and returns a function that
// removes it.
func (s *CartState) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

func (s *CartState) replace(ctx context.Context, line domain.CartLine) (domain.Cart, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.replaceLocked(ctx, line)
}

// replaceLocked requires writeMu.
func (s *CartState) replaceLocked(ctx context.Context, line domain.CartLine) (domain.Cart, error) {
	cart, err := s.store.ReplaceLine(ctx, line)
	if err != nil {
		return nil, err
	}
	s.apply(ctx, cart)
	return cart.Clone(), nil
}

func (s *CartState) apply(ctx context.Context, cart domain.Cart) {
	s.mu.Lock()
	s.cart = cart
	s.mu.Unlock()

	s.notify(cart)

	if s.events != nil {
		if err := s.events.PublishCartUpdated(ctx, cart); err != nil {
			s.logger.WarnContext(ctx, "failed to publish cart updated event",
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *CartState) notify(cart domain.Cart) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		fn(cart.Clone())
	}
}
