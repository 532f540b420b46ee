package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func withSlowQueryLog(t *testing.T, threshold time.Duration) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetSlowQueryLogging(threshold, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })
	return &buf
}

func TestTraceQuery_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(t.Context(), "GetReceiptByInvoice", `
		SELECT invoice, products
		FROM order_receipts
		WHERE invoice = $1`)
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.GetReceiptByInvoice", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetReceiptByInvoice", attrs["db.operation"])
	assert.Equal(t, "SELECT invoice, products FROM order_receipts WHERE invoice = $1", attrs["db.statement"])
}

func TestTraceQuery_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(t.Context(), "CreateReceipt", "INSERT INTO order_receipts VALUES ($1)")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "connection refused", spans[0].Status.Description)
	assert.NotEmpty(t, spans[0].Events)
}

func TestTraceQuery_ChildOfCallerSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := otel.Tracer("test").Start(t.Context(), "order.submit")
	_, end := TraceQuery(ctx, "CreateReceipt", "INSERT")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent.SpanID())
}

func TestTraceQuery_SlowQueryLog(t *testing.T) {
	setupTestTracer(t)
	buf := withSlowQueryLog(t, time.Nanosecond)

	_, end := TraceQuery(t.Context(), "ListReceipts", "SELECT * FROM order_receipts")
	end(errors.New("canceling statement due to statement timeout"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "slow query", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "ListReceipts", line["operation"])
	assert.Equal(t, "SELECT * FROM order_receipts", line["statement"])
	assert.Equal(t, "canceling statement due to statement timeout", line["error"])
}

func TestTraceQuery_FastQueryNotLogged(t *testing.T) {
	setupTestTracer(t)
	buf := withSlowQueryLog(t, time.Hour)

	_, end := TraceQuery(t.Context(), "ListReceipts", "SELECT 1")
	end(nil)

	assert.Empty(t, buf.String())
}

func TestSetSlowQueryLogging_DisabledByZeroOrNil(t *testing.T) {
	SetSlowQueryLogging(time.Second, nil)
	assert.Nil(t, slowQueries.Load())

	SetSlowQueryLogging(0, slog.Default())
	assert.Nil(t, slowQueries.Load())

	SetSlowQueryLogging(time.Second, slog.Default())
	assert.NotNil(t, slowQueries.Load())
	SetSlowQueryLogging(0, nil)
}

func TestSetSlowQueryLogging_ConcurrentWithQueries(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			SetSlowQueryLogging(time.Duration(i)*time.Millisecond, logger)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, end := TraceQuery(context.Background(), "ListReceipts", "SELECT 1")
			end(nil)
		}
	}()
	wg.Wait()
}

func TestCompactStatement_Truncates(t *testing.T) {
	long := "SELECT " + strings.Repeat("x, ", 400) + "y"

	got := compactStatement(long)

	assert.Len(t, got, maxStatementLen+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}
