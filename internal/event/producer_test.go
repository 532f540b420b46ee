package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/wholesale-storefront/internal/domain"
	pkgkafka "github.com/utafrali/wholesale-storefront/pkg/kafka"
	"github.com/utafrali/wholesale-storefront/pkg/logger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func newTestProducer(pub pkgkafka.Publisher) *Producer {
	return NewProducer(pub, "device-1", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishCartUpdated(t *testing.T) {
	pub := new(mockPublisher)
	var captured *pkgkafka.Event
	pub.On("Publish", mock.Anything, "storefront.cart.updated", mock.AnythingOfType("*kafka.Event")).
		Run(func(args mock.Arguments) { captured = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	cart := domain.Cart{
		{ProductID: 7, SalePrice: 10, Quantity: "3", VariationID: domain.RefTo(2)},
		{ProductID: 8, SalePrice: 5, Quantity: "1"},
	}
	ctx := logger.WithCorrelationID(context.Background(), "corr-7")
	require.NoError(t, newTestProducer(pub).PublishCartUpdated(ctx, cart))

	pub.AssertExpectations(t)
	require.NotNil(t, captured)
	assert.Equal(t, "device-1", captured.AggregateID)
	assert.Equal(t, AggregateTypeCart, captured.AggregateType)
	assert.Equal(t, "corr-7", captured.CorrelationID)
	assert.Equal(t, "device-1", captured.Metadata["namespace"])

	var data CartUpdatedData
	require.NoError(t, captured.DecodeData(&data))
	assert.Len(t, data.Lines, 2)
	assert.Equal(t, 4, data.TotalQuantity)
	assert.InDelta(t, 35.0, data.TotalCost, 0.0001)
	assert.False(t, data.Lines[1].VariationID.Valid)
}

func TestPublishCartCleared(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, "storefront.cart.cleared", mock.Anything).Return(nil)

	require.NoError(t, newTestProducer(pub).PublishCartCleared(context.Background(), "order_placed"))
	pub.AssertExpectations(t)
}

func TestPublishOrderPlaced_KeyedByInvoice(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, "storefront.order.placed",
		mock.MatchedBy(func(e *pkgkafka.Event) bool { return e.AggregateID == "INV-42" })).
		Return(nil)

	order := domain.NewOrder("INV-42", 4, 3, domain.Cart{{ProductID: 1, SalePrice: 2, Quantity: "2"}})
	require.NoError(t, newTestProducer(pub).PublishOrderPlaced(context.Background(), order))
	pub.AssertExpectations(t)
}

func TestPublish_ErrorIsWrapped(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := newTestProducer(pub).PublishCartCleared(context.Background(), "manual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart.cleared")
}

func TestNewProducer_NilPublisherIsNop(t *testing.T) {
	p := newTestProducer(nil)
	assert.NoError(t, p.PublishCartCleared(context.Background(), "manual"))
}
