package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/wholesale-storefront/internal/domain"
)

// Storage keys under the store namespace.
const (
	cartKey     = "cartProducts"
	previousKey = "previousCartProducts"
)

// CartStore implements repository.CartStore using Redis. The cart is a single
// JSON array of lines under a fixed key.
type CartStore struct {
	client      *redis.Client
	cartKey     string
	previousKey string
	ttl         time.Duration
	logger      *slog.Logger

	// mu serializes read-modify-write cycles of the mutators.
	mu sync.Mutex
}

// NewCartStore creates a Redis-backed cart store. Keys are prefixed with
// namespace; a zero ttl keeps the cart until it is cleared.
func NewCartStore(client *redis.Client, namespace string, ttl time.Duration, logger *slog.Logger) *CartStore {
	prefix := ""
	if namespace != "" {
		prefix = namespace + ":"
	}
	return &CartStore{
		client:      client,
		cartKey:     prefix + cartKey,
		previousKey: prefix + previousKey,
		ttl:         ttl,
		logger:      logger,
	}
}

// Load returns the persisted cart, or an empty cart when nothing usable is stored.
func (s *CartStore) Load(ctx context.Context) domain.Cart {
	return s.loadSoft(ctx, s.cartKey)
}

// LoadPrevious returns the previous-cart snapshot. This store never writes it.
func (s *CartStore) LoadPrevious(ctx context.Context) domain.Cart {
	return s.loadSoft(ctx, s.previousKey)
}

// ReplaceLine removes any line with the same product id, appends line and persists.
func (s *CartStore) ReplaceLine(ctx context.Context, line domain.CartLine) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.read(ctx, s.cartKey)
	if err != nil {
		return nil, domain.StorageWrite(fmt.Errorf("read cart before replace: %w", err))
	}

	updated := cart.WithLine(line)
	if err := s.write(ctx, updated); err != nil {
		return nil, domain.StorageWrite(err)
	}

	return updated, nil
}

// RemoveLine removes the line at index and persists.
func (s *CartStore) RemoveLine(ctx context.Context, index int) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.read(ctx, s.cartKey)
	if err != nil {
		return nil, domain.StorageWrite(fmt.Errorf("read cart before remove: %w", err))
	}

	if index < 0 || index >= len(cart) {
		return nil, domain.IndexOutOfRange(index, len(cart))
	}

	updated := cart.WithoutIndex(index)
	if err := s.write(ctx, updated); err != nil {
		return nil, domain.StorageWrite(err)
	}

	return updated, nil
}

// Clear deletes the persisted cart.
func (s *CartStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.Del(ctx, s.cartKey).Err(); err != nil {
		return domain.StorageWrite(fmt.Errorf("redis del cart: %w", err))
	}
	return nil
}

// loadSoft reads key and absorbs every failure into an empty cart.
func (s *CartStore) loadSoft(ctx context.Context, key string) domain.Cart {
	cart, err := s.read(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "cart storage unreadable, using empty cart",
			slog.String("key", key),
			slog.String("error", domain.StorageRead(err).Error()),
		)
		return domain.Cart{}
	}
	return cart
}

// read returns the cart stored at key. A missing key is an empty cart. Stored
// data that is not a JSON array of lines is logged and treated as empty; only
// transport errors are returned.
func (s *CartStore) read(ctx context.Context, key string) (domain.Cart, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Cart{}, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		s.logger.WarnContext(ctx, "discarding malformed cart data",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return domain.Cart{}, nil
	}
	if cart == nil {
		cart = domain.Cart{}
	}

	return cart, nil
}

func (s *CartStore) write(ctx context.Context, cart domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := s.client.Set(ctx, s.cartKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}
