// Package event publishes cart and order domain events.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/wholesale-storefront/internal/domain"
	pkgkafka "github.com/utafrali/wholesale-storefront/pkg/kafka"
	"github.com/utafrali/wholesale-storefront/pkg/logger"
)

// Event types. Each is published to pkgkafka.Topic(type).
const (
	EventCartUpdated = "cart.updated"
	EventCartCleared = "cart.cleared"
	EventOrderPlaced = "order.placed"
)

// Aggregate types.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// SourceStorefront identifies events emitted by this agent.
const SourceStorefront = "storefront-agent"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	Namespace     string         `json:"namespace"`
	Lines         []CartLineData `json:"lines"`
	TotalQuantity int            `json:"total_quantity"`
	TotalCost     float64        `json:"total_cost"`
}

// CartLineData is one line within cart events.
type CartLineData struct {
	ProductID   int64               `json:"product_id"`
	VariationID domain.VariationRef `json:"variation_id"`
	SalePrice   float64             `json:"sale_price"`
	Quantity    string              `json:"product_quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	Namespace string `json:"namespace"`
	Reason    string `json:"reason"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	Namespace string        `json:"namespace"`
	Order     *domain.Order `json:"order"`
}

// Producer publishes storefront domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	namespace string
	logger    *slog.Logger
}

// NewProducer creates an event producer. Events are keyed by namespace.
func NewProducer(publisher pkgkafka.Publisher, namespace string, logger *slog.Logger) *Producer {
	if publisher == nil {
		publisher = pkgkafka.NopPublisher{}
	}
	return &Producer{publisher: publisher, namespace: namespace, logger: logger}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart domain.Cart) error {
	lines := make([]CartLineData, len(cart))
	for i, l := range cart {
		lines[i] = CartLineData{
			ProductID:   l.ProductID,
			VariationID: l.VariationID,
			SalePrice:   float64(l.SalePrice),
			Quantity:    l.Quantity,
		}
	}

	data := CartUpdatedData{
		Namespace:     p.namespace,
		Lines:         lines,
		TotalQuantity: cart.TotalQuantity(),
		TotalCost:     cart.TotalCost(),
	}
	if err := p.publish(ctx, EventCartUpdated, AggregateTypeCart, p.namespace, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("namespace", p.namespace),
		slog.Int("line_count", len(cart)),
	)
	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, reason string) error {
	data := CartClearedData{Namespace: p.namespace, Reason: reason}
	if err := p.publish(ctx, EventCartCleared, AggregateTypeCart, p.namespace, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("namespace", p.namespace),
		slog.String("reason", reason),
	)
	return nil
}

// PublishOrderPlaced publishes an order.placed event keyed by invoice.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	data := OrderPlacedData{Namespace: p.namespace, Order: order}
	if err := p.publish(ctx, EventOrderPlaced, AggregateTypeOrder, order.Invoice, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published order.placed event",
		slog.String("invoice", order.Invoice),
		slog.Float64("total_price", order.TotalPrice),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, eventType, aggregateType, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}
	if p.namespace != "" {
		event.WithMetadata("namespace", p.namespace)
	}

	if err := p.publisher.Publish(ctx, pkgkafka.Topic(eventType), event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}
