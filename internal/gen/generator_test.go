package gen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/feedsim/internal/domain"
)

func TestGenerator_NextCandleEnvelope(t *testing.T) {
	g := NewWithSeed(10000, 1)

	for i := 0; i < 500; i++ {
		c := g.NextCandle(int64(i))

		require.GreaterOrEqual(t, c.High, math.Max(c.Open, c.Close), "candle #%d", i)
		require.LessOrEqual(t, c.Low, math.Min(c.Open, c.Close), "candle #%d", i)
		require.GreaterOrEqual(t, c.Volume, 0.0)
		require.Less(t, c.Volume, 10.0+1e-9)
		require.Equal(t, int64(i), c.Time)
	}
}

func TestGenerator_NextCandleMovesReference(t *testing.T) {
	g := NewWithSeed(10000, 42)
	start := g.Price()

	for i := 0; i < 100; i++ {
		g.NextCandle(int64(i))
	}

	// The reference price must have drifted; each tick moves it.
	assert.NotEqual(t, start, g.Price())
}

func TestGenerator_BookLevelsShape(t *testing.T) {
	g := NewWithSeed(10000, 7)
	ref := g.Price()

	levels := g.BookLevels()
	require.Len(t, levels, 20)

	var buys, sells []domain.BookLevel
	for _, lv := range levels {
		switch lv.Side {
		case domain.SideBuy:
			buys = append(buys, lv)
		case domain.SideSell:
			sells = append(sells, lv)
		}
	}
	require.Len(t, buys, 10)
	require.Len(t, sells, 10)

	for i, lv := range buys {
		require.Less(t, lv.Price, ref, "buy level %d must sit below reference", i)
		require.GreaterOrEqual(t, lv.Size, 0.0)
		if i > 0 {
			// Monotonic per-level offsets: each buy sits further below.
			require.Less(t, lv.Price, buys[i-1].Price)
		}
	}
	for i, lv := range sells {
		require.Greater(t, lv.Price, ref, "sell level %d must sit above reference", i)
		if i > 0 {
			require.Greater(t, lv.Price, sells[i-1].Price)
		}
	}
}

func TestGenerator_BookLevelsNeverCross(t *testing.T) {
	g := NewWithSeed(500, 99)

	for i := 0; i < 50; i++ {
		g.NextCandle(int64(i))
		levels := g.BookLevels()

		bestBuy := math.Inf(-1)
		bestSell := math.Inf(1)
		for _, lv := range levels {
			if lv.Side == domain.SideBuy && lv.Price > bestBuy {
				bestBuy = lv.Price
			}
			if lv.Side == domain.SideSell && lv.Price < bestSell {
				bestSell = lv.Price
			}
		}
		require.Less(t, bestBuy, bestSell, "iteration %d", i)
	}
}

func TestGenerator_TradePrints(t *testing.T) {
	g := NewWithSeed(10000, 3)

	prints := g.TradePrints(5)
	require.Len(t, prints, 5)

	seen := make(map[string]bool)
	for i, p := range prints {
		require.NotEmpty(t, p.ID)
		require.False(t, seen[p.ID], "duplicate print id")
		seen[p.ID] = true

		require.GreaterOrEqual(t, p.Volume, 0.0)
		require.Contains(t, []domain.Side{domain.SideBuy, domain.SideSell}, p.Side)
		if i > 0 {
			require.Greater(t, p.Timestamp, prints[i-1].Timestamp)
		}
	}
}

func TestGenerator_TradePrintsClampCount(t *testing.T) {
	g := NewWithSeed(10000, 3)
	assert.Len(t, g.TradePrints(0), 1)
	assert.Len(t, g.TradePrints(-4), 1)
}

func TestGenerator_DeterministicWithSeed(t *testing.T) {
	a := NewWithSeed(10000, 11)
	b := NewWithSeed(10000, 11)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.NextCandle(int64(i)), b.NextCandle(int64(i)))
	}
	assert.Equal(t, a.BookLevels(), b.BookLevels())
}
