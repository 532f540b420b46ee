package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/wholesale-storefront/internal/auth"
	"github.com/utafrali/wholesale-storefront/internal/domain"
	"github.com/utafrali/wholesale-storefront/internal/repository"
	"github.com/utafrali/wholesale-storefront/internal/session"
	"github.com/utafrali/wholesale-storefront/pkg/tracing"
)

// DefaultSubmitTimeout bounds a single order request.
const DefaultSubmitTimeout = 30 * time.Second

// OrderAPI accepts orders on behalf of the remote order service.
type OrderAPI interface {
	CreateOrder(ctx context.Context, token string, order *domain.Order) error
}

// OrderEvents announces placed orders.
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

// CartSession is the in-memory cart projection cleared after a placed order.
type CartSession interface {
	Clear(ctx context.Context, reason string)
}

// SubmitterConfig holds the fixed order parties and the request timeout.
type SubmitterConfig struct {
	WholesellerID int64
	ResellerID    int64
	Timeout       time.Duration
}

// OrderSubmitter turns the durable cart into a remote order. At most one
// submission runs at a time; a second caller gets AlreadySubmitting.
type OrderSubmitter struct {
	cfg      SubmitterConfig
	store    repository.CartStore
	session  CartSession
	api      OrderAPI
	tokens   auth.Provider
	receipts repository.ReceiptRepository
	events   OrderEvents
	invoices *InvoiceGenerator
	now      func() time.Time
	tracer   trace.Tracer
	logger   *slog.Logger

	mu     sync.Mutex
	status string
}

// SubmitterOption customizes an OrderSubmitter.
type SubmitterOption func(*OrderSubmitter)

// WithReceipts journals accepted orders. Journal failures are logged only.
func WithReceipts(r repository.ReceiptRepository) SubmitterOption {
	return func(s *OrderSubmitter) { s.receipts = r }
}

// WithOrderEvents publishes order.placed after acceptance.
func WithOrderEvents(e OrderEvents) SubmitterOption {
	return func(s *OrderSubmitter) { s.events = e }
}

// WithClock replaces the clock used for invoices and receipt timestamps.
func WithClock(now func() time.Time) SubmitterOption {
	return func(s *OrderSubmitter) {
		s.now = now
		s.invoices = NewInvoiceGenerator(now)
	}
}

// NewOrderSubmitter creates an idle submitter.
func NewOrderSubmitter(
	cfg SubmitterConfig,
	store repository.CartStore,
	cartSession CartSession,
	api OrderAPI,
	tokens auth.Provider,
	logger *slog.Logger,
	opts ...SubmitterOption,
) *OrderSubmitter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSubmitTimeout
	}
	if tokens == nil {
		tokens = auth.Static("")
	}
	s := &OrderSubmitter{
		cfg:      cfg,
		store:    store,
		session:  cartSession,
		api:      api,
		tokens:   tokens,
		invoices: NewInvoiceGenerator(nil),
		now:      time.Now,
		tracer:   tracing.Tracer("github.com/utafrali/wholesale-storefront/internal/service"),
		logger:   logger,
		status:   domain.StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current submission state.
func (s *OrderSubmitter) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Submit places the persisted cart as an order.
//
// The credential and a non-empty cart are checked before anything goes over
// the network; failing either leaves the state untouched. Once the order
// service accepts the order (200 or 201) the cart store and the session are
// cleared and the locally built order is returned. Any other outcome leaves
// the cart intact and moves the submitter to failed. Nothing is retried.
func (s *OrderSubmitter) Submit(ctx context.Context) (*domain.Order, error) {
	prev, ok := s.begin()
	if !ok {
		OrderSubmissions.WithLabelValues(outcomeBusy).Inc()
		return nil, domain.AlreadySubmitting()
	}

	token, ok := s.tokens.Token(ctx)
	if !ok {
		s.restore(prev)
		OrderSubmissions.WithLabelValues(outcomeUnauthorized).Inc()
		return nil, domain.Unauthenticated()
	}

	cart := s.store.Load(ctx)
	if cart.IsEmpty() {
		s.restore(prev)
		OrderSubmissions.WithLabelValues(outcomeEmptyCart).Inc()
		return nil, domain.EmptyCart()
	}

	order := domain.NewOrder(s.invoices.Next(), s.cfg.WholesellerID, s.cfg.ResellerID, cart)

	// The request must reach a terminal state even if the caller goes away.
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	reqCtx, span := s.tracer.Start(reqCtx, "order.submit", trace.WithAttributes(
		attribute.String("order.invoice", order.Invoice),
		attribute.Int("order.lines", len(order.Products)),
		attribute.Float64("order.total_price", order.TotalPrice),
	))
	defer span.End()

	start := time.Now()
	err := s.api.CreateOrder(reqCtx, token, order)
	OrderSubmitDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.finish(domain.StatusFailed)
		if errors.Is(err, domain.ErrNetwork) {
			OrderSubmissions.WithLabelValues(outcomeNetwork).Inc()
		} else {
			OrderSubmissions.WithLabelValues(outcomeRejected).Inc()
		}
		s.logger.WarnContext(ctx, "order submission failed",
			slog.String("invoice", order.Invoice),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.complete(reqCtx, order)
	s.finish(domain.StatusCompleted)
	OrderSubmissions.WithLabelValues(outcomePlaced).Inc()

	s.logger.InfoContext(ctx, "order placed",
		slog.String("invoice", order.Invoice),
		slog.Int("lines", len(order.Products)),
		slog.Float64("total_price", order.TotalPrice),
	)
	return order, nil
}

// complete runs the post-acceptance steps. The server already holds the
// order, so none of them can turn the submission into a failure.
func (s *OrderSubmitter) complete(ctx context.Context, order *domain.Order) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after order",
			slog.String("invoice", order.Invoice),
			slog.String("error", err.Error()),
		)
	}
	if s.session != nil {
		s.session.Clear(ctx, session.ClearReasonOrderPlaced)
	}

	if s.receipts != nil {
		receipt := &repository.Receipt{
			Invoice:    order.Invoice,
			Order:      order,
			TotalPrice: order.TotalPrice,
			ItemCount:  order.ItemCount(),
			PlacedAt:   s.now().UTC(),
		}
		if err := s.receipts.Create(ctx, receipt); err != nil {
			s.logger.ErrorContext(ctx, "failed to journal order receipt",
				slog.String("invoice", order.Invoice),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.events != nil {
		if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order placed event",
				slog.String("invoice", order.Invoice),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *OrderSubmitter) begin() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == domain.StatusSubmitting {
		return "", false
	}
	prev := s.status
	s.status = domain.StatusSubmitting
	return prev, true
}

func (s *OrderSubmitter) restore(prev string) {
	s.finish(prev)
}

func (s *OrderSubmitter) finish(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}
