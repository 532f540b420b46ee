package redis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/wholesale-storefront/internal/domain"
)

const testNamespace = "device-1"

func setupTestRedis(t *testing.T) (*CartStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewCartStore(client, testNamespace, 0, logger)
	return store, mr
}

func line(productID int64, variationID int64, qty string) domain.CartLine {
	return domain.CartLine{
		ProductID:      productID,
		ProductName:    "Product",
		VariationLabel: "Qty: 1 - 10",
		VariationID:    domain.RefTo(variationID),
		SalePrice:      10,
		RegularPrice:   12,
		Quantity:       qty,
	}
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestCartStore_Load_Missing(t *testing.T) {
	store, _ := setupTestRedis(t)

	cart := store.Load(context.Background())
	assert.NotNil(t, cart)
	assert.Empty(t, cart)
}

func TestCartStore_Load_Persisted(t *testing.T) {
	store, mr := setupTestRedis(t)

	raw := `[{"product_id":7,"product":"Rice","variation":"Qty: 1 - 10","variation_id":3,"sale_price":"10.00","regular_price":12,"product_quantity":"3"},
	         {"product_id":8,"product":"Oil","variation":"No variation selected","variation_id":"no-variation","sale_price":4,"regular_price":5,"product_quantity":"abc"}]`
	require.NoError(t, mr.Set(testNamespace+":cartProducts", raw))

	cart := store.Load(context.Background())
	require.Len(t, cart, 2)
	assert.Equal(t, int64(7), cart[0].ProductID)
	assert.Equal(t, domain.RefTo(3), cart[0].VariationID)
	assert.InDelta(t, 10.0, float64(cart[0].SalePrice), 0.0001)
	assert.Equal(t, "3", cart[0].Quantity)
	assert.False(t, cart[1].VariationID.Valid)
	assert.Equal(t, "abc", cart[1].Quantity)
}

func TestCartStore_Load_MalformedIsEmpty(t *testing.T) {
	store, mr := setupTestRedis(t)

	for _, raw := range []string{"{{not-valid-json", `{"product_id":1}`, `"a string"`, "null"} {
		require.NoError(t, mr.Set(testNamespace+":cartProducts", raw))
		cart := store.Load(context.Background())
		assert.Empty(t, cart, "stored %q", raw)
	}
}

func TestCartStore_Load_UnreachableIsEmpty(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	cart := store.Load(context.Background())
	assert.Empty(t, cart)
}

func TestCartStore_LoadPrevious(t *testing.T) {
	store, mr := setupTestRedis(t)

	require.NoError(t, mr.Set(testNamespace+":previousCartProducts", `[{"product_id":2,"sale_price":5,"product_quantity":"4"}]`))

	prev := store.LoadPrevious(context.Background())
	require.Len(t, prev, 1)
	assert.Equal(t, 4, prev.TotalQuantity())
	assert.Empty(t, store.Load(context.Background()))
}

// ---------------------------------------------------------------------------
// ReplaceLine
// ---------------------------------------------------------------------------

func TestCartStore_ReplaceLine_Appends(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := store.ReplaceLine(ctx, line(1, 10, "2"))
	require.NoError(t, err)
	cart, err := store.ReplaceLine(ctx, line(2, 20, "5"))
	require.NoError(t, err)

	require.Len(t, cart, 2)
	assert.Equal(t, int64(1), cart[0].ProductID)
	assert.Equal(t, int64(2), cart[1].ProductID)

	raw, err := mr.Get(testNamespace + ":cartProducts")
	require.NoError(t, err)
	var stored []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 2)
	assert.Equal(t, "5", stored[1]["product_quantity"])
}

func TestCartStore_ReplaceLine_SameProductReplaces(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	_, err := store.ReplaceLine(ctx, line(1, 10, "2"))
	require.NoError(t, err)
	_, err = store.ReplaceLine(ctx, line(2, 20, "1"))
	require.NoError(t, err)
	_, err = store.ReplaceLine(ctx, line(1, 11, "60"))
	require.NoError(t, err)

	cart := store.Load(ctx)
	require.Len(t, cart, 2)
	assert.Equal(t, int64(2), cart[0].ProductID)
	assert.Equal(t, int64(1), cart[1].ProductID)
	assert.Equal(t, domain.RefTo(11), cart[1].VariationID)
	assert.Equal(t, "60", cart[1].Quantity)
}

func TestCartStore_ReplaceLine_OverwritesMalformed(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(testNamespace+":cartProducts", "garbage"))

	cart, err := store.ReplaceLine(context.Background(), line(1, 10, "1"))
	require.NoError(t, err)
	assert.Len(t, cart, 1)
}

func TestCartStore_ReplaceLine_WriteError(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	cart, err := store.ReplaceLine(context.Background(), line(1, 10, "1"))
	require.Error(t, err)
	assert.Nil(t, cart)
	assert.True(t, errors.Is(err, domain.ErrStorageWrite))
}

func TestCartStore_ReplaceLine_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewCartStore(client, "", 24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := store.ReplaceLine(context.Background(), line(1, 10, "1"))
	require.NoError(t, err)

	assert.True(t, mr.Exists("cartProducts"))
	assert.Equal(t, 24*time.Hour, mr.TTL("cartProducts"))
}

// ---------------------------------------------------------------------------
// RemoveLine
// ---------------------------------------------------------------------------

func TestCartStore_RemoveLine_PreservesOrder(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		_, err := store.ReplaceLine(ctx, line(i, i*10, "1"))
		require.NoError(t, err)
	}

	_, err := store.RemoveLine(ctx, 1)
	require.NoError(t, err)

	cart := store.Load(ctx)
	require.Len(t, cart, 2)
	assert.Equal(t, int64(1), cart[0].ProductID)
	assert.Equal(t, int64(3), cart[1].ProductID)
}

func TestCartStore_RemoveLine_OutOfRange(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	_, err := store.ReplaceLine(ctx, line(1, 10, "1"))
	require.NoError(t, err)

	for _, idx := range []int{-1, 1, 5} {
		_, err := store.RemoveLine(ctx, idx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrIndexOutOfRange), "index %d", idx)
	}

	assert.Len(t, store.Load(ctx), 1)
}

// ---------------------------------------------------------------------------
// Clear
// ---------------------------------------------------------------------------

func TestCartStore_Clear(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(testNamespace+":previousCartProducts", `[]`))
	_, err := store.ReplaceLine(ctx, line(1, 10, "1"))
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx))

	assert.False(t, mr.Exists(testNamespace+":cartProducts"))
	assert.True(t, mr.Exists(testNamespace+":previousCartProducts"), "previous cart is read-only")
	assert.Empty(t, store.Load(ctx))
}

func TestCartStore_Clear_NonExistent(t *testing.T) {
	store, _ := setupTestRedis(t)
	assert.NoError(t, store.Clear(context.Background()))
}

func TestCartStore_Clear_WriteError(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	err := store.Clear(context.Background())
	assert.True(t, errors.Is(err, domain.ErrStorageWrite))
}
