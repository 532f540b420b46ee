package variation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/wholesale-storefront/internal/domain"
)

func tiers() []domain.Variation {
	return []domain.Variation{
		{ID: 1, StartQuantity: 1, EndQuantity: 9},
		{ID: 2, StartQuantity: 10, EndQuantity: 49},
		{ID: 3, StartQuantity: 50, EndQuantity: 99},
	}
}

func TestResolve_EveryQuantityInRange(t *testing.T) {
	vs := tiers()
	for q := 1; q <= 99; q++ {
		got, ok := Resolve(q, vs)
		require.True(t, ok, "quantity %d", q)
		assert.True(t, got.Contains(q), "quantity %d resolved to %+v", q, got)
	}
}

func TestResolve_Boundaries(t *testing.T) {
	vs := tiers()
	tests := []struct {
		q    int
		want int64
	}{
		{1, 1}, {9, 1}, {10, 2}, {49, 2}, {50, 3}, {99, 3},
	}
	for _, tt := range tests {
		got, ok := Resolve(tt.q, vs)
		require.True(t, ok)
		assert.Equal(t, tt.want, got.ID, "quantity %d", tt.q)
	}
}

func TestResolve_AboveHighestFallsBackToTopTier(t *testing.T) {
	vs := tiers()
	for _, q := range []int{100, 1000, math.MaxInt} {
		got, ok := Resolve(q, vs)
		require.True(t, ok)
		assert.Equal(t, int64(3), got.ID)
	}
}

func TestResolve_FallbackUsesMaxEndNotLastElement(t *testing.T) {
	vs := []domain.Variation{
		{ID: 3, StartQuantity: 50, EndQuantity: 99},
		{ID: 1, StartQuantity: 1, EndQuantity: 9},
	}
	got, ok := Resolve(500, vs)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.ID)
}

func TestResolve_GapFallsBackToTopTier(t *testing.T) {
	vs := []domain.Variation{
		{ID: 1, StartQuantity: 1, EndQuantity: 5},
		{ID: 2, StartQuantity: 20, EndQuantity: 30},
	}
	got, ok := Resolve(10, vs)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)
}

func TestResolve_NonPositiveQuantity(t *testing.T) {
	for _, q := range []int{0, -1, math.MinInt} {
		_, ok := Resolve(q, tiers())
		assert.False(t, ok, "quantity %d", q)
	}
}

func TestResolve_EmptyVariations(t *testing.T) {
	_, ok := Resolve(5, nil)
	assert.False(t, ok)
}

func TestResolve_FirstMatchWins(t *testing.T) {
	vs := []domain.Variation{
		{ID: 1, StartQuantity: 1, EndQuantity: 10},
		{ID: 2, StartQuantity: 5, EndQuantity: 20},
	}
	got, ok := Resolve(7, vs)
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)
}

func TestResolve_Idempotent(t *testing.T) {
	vs := tiers()
	a, okA := Resolve(25, vs)
	b, okB := Resolve(25, vs)
	assert.Equal(t, okA, okB)
	assert.Equal(t, a, b)
}

func TestResolveInput(t *testing.T) {
	vs := tiers()

	got, ok := ResolveInput("12", vs)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)

	for _, raw := range []string{"abc", "", "0", "-3", "4.5"} {
		_, ok := ResolveInput(raw, vs)
		assert.False(t, ok, "input %q", raw)
	}
}

func TestForProduct(t *testing.T) {
	vs := []domain.Variation{
		{ID: 1, ProductID: 7},
		{ID: 2, ProductID: 8},
		{ID: 3},
	}
	got := ForProduct(7, vs)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestLabelAndRef(t *testing.T) {
	v := &domain.Variation{ID: 4, StartQuantity: 10, EndQuantity: 49}
	assert.Equal(t, "Qty: 10 - 49", Label(v))
	assert.Equal(t, domain.RefTo(4), Ref(v))

	assert.Equal(t, domain.NoVariationLabel, Label(nil))
	assert.False(t, Ref(nil).Valid)
}
