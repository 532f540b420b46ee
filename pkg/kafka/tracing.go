package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/wholesale-storefront/pkg/kafka"

// HeaderCarrier exposes a message's headers as a propagation.TextMapCarrier.
type HeaderCarrier struct {
	msg *kafka.Message
}

// NewHeaderCarrier wraps msg. Set mutates msg.Headers in place.
func NewHeaderCarrier(msg *kafka.Message) HeaderCarrier {
	return HeaderCarrier{msg: msg}
}

// Get returns the first header named key.
func (c HeaderCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set replaces the header named key, appending it when absent.
func (c HeaderCarrier) Set(key, value string) {
	for i := range c.msg.Headers {
		if c.msg.Headers[i].Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

// Keys lists header names in message order.
func (c HeaderCarrier) Keys() []string {
	keys := make([]string, len(c.msg.Headers))
	for i, h := range c.msg.Headers {
		keys[i] = h.Key
	}
	return keys
}

// startPublishSpan opens a producer span for msg and injects its context
// into the message headers.
func startPublishSpan(ctx context.Context, msg *kafka.Message, eventType string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, msg.Topic+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.kafka.message.key", string(msg.Key)),
			attribute.String("event_type", eventType),
		),
	)
	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(msg))
	return ctx, span
}
