package service

import (
	"strconv"
	"sync"
	"time"
)

// InvoiceGenerator issues "INV-<unix millis>" identifiers. Two invoices issued
// within the same millisecond are kept distinct by bumping the later one.
type InvoiceGenerator struct {
	now func() time.Time

	mu   sync.Mutex
	last int64
}

// NewInvoiceGenerator creates a generator reading the given clock. A nil clock
// uses time.Now.
func NewInvoiceGenerator(now func() time.Time) *InvoiceGenerator {
	if now == nil {
		now = time.Now
	}
	return &InvoiceGenerator{now: now}
}

// Next returns a fresh invoice identifier.
func (g *InvoiceGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return "INV-" + strconv.FormatInt(ms, 10)
}
