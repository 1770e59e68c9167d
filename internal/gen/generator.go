// Package gen produces the synthetic market samples a feed session streams:
// candles, order-book levels, and trade prints. Each Generator owns its own
// evolving reference price and random source, so sessions never share state.
package gen

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/feedsim/internal/domain"
)

const (
	// bookDepth is the number of levels generated per side.
	bookDepth = 10

	// levelSpacing is the base price offset between adjacent book levels.
	levelSpacing = 10.0

	// levelJitter is the max random extra offset per level. Strictly less
	// than levelSpacing so levels on one side never cross each other.
	levelJitter = 5.0

	// tradeVariance bounds the symmetric price variance of trade prints
	// around the reference price.
	tradeVariance = 100.0
)

// Generator drives the synthetic price process. Not safe for concurrent use;
// a feed session calls it from a single goroutine.
type Generator struct {
	price float64 // evolving reference price
	rng   *rand.Rand
}

// New creates a Generator starting at initialPrice with a time-derived seed.
func New(initialPrice float64) *Generator {
	return NewWithSeed(initialPrice, time.Now().UnixNano())
}

// NewWithSeed creates a Generator with a deterministic random source. Tests
// use this to make runs reproducible.
func NewWithSeed(initialPrice float64, seed int64) *Generator {
	return &Generator{
		price: initialPrice,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Price returns the current reference price.
func (g *Generator) Price() float64 {
	return g.price
}

// movement returns a symmetric random price step in (-10, 10).
func (g *Generator) movement() float64 {
	return (g.rng.Float64() - 0.5) * 20
}

// NextCandle advances the reference price and returns the candle for the
// given bucket timestamp (epoch seconds). High and low envelope open/close
// with independent jitter so high >= max(open, close) and low <= min.
func (g *Generator) NextCandle(ts int64) domain.Candle {
	g.price += g.movement()

	open := g.price
	close := open + g.movement()
	high := math.Max(open, close) + math.Abs(g.movement()*0.5)
	low := math.Min(open, close) - math.Abs(g.movement()*0.5)

	return domain.Candle{
		Time:   ts,
		Open:   round2(open),
		High:   round2(high),
		Low:    round2(low),
		Close:  round2(close),
		Volume: round2(g.rng.Float64() * 10),
	}
}

// BookLevels generates a full order-book snapshot around the current
// reference price: bookDepth buys strictly below it in descending price
// order away from it, bookDepth sells strictly above in ascending order.
// Every call fully replaces the previous snapshot on the viewer.
func (g *Generator) BookLevels() []domain.BookLevel {
	levels := make([]domain.BookLevel, 0, 2*bookDepth)

	for i := 0; i < bookDepth; i++ {
		offset := float64(i+1)*levelSpacing + g.rng.Float64()*levelJitter
		levels = append(levels, domain.BookLevel{
			Price: round2(g.price - offset),
			Size:  round4(g.rng.Float64() * 5),
			Side:  domain.SideBuy,
		})
	}

	for i := 0; i < bookDepth; i++ {
		offset := float64(i+1)*levelSpacing + g.rng.Float64()*levelJitter
		levels = append(levels, domain.BookLevel{
			Price: round2(g.price + offset),
			Size:  round4(g.rng.Float64() * 5),
			Side:  domain.SideSell,
		})
	}

	return levels
}

// TradePrints generates count synthetic prints near the reference price.
// Timestamps are epoch ms, offset by the index so prints within one batch
// stay distinct.
func (g *Generator) TradePrints(count int) []domain.TradePrint {
	if count <= 0 {
		count = 1
	}

	now := time.Now().UnixMilli()
	prints := make([]domain.TradePrint, 0, count)
	for i := 0; i < count; i++ {
		side := domain.SideBuy
		if g.rng.Float64() > 0.5 {
			side = domain.SideSell
		}

		variance := (g.rng.Float64() - 0.5) * tradeVariance
		prints = append(prints, domain.TradePrint{
			ID:        uuid.NewString(),
			Price:     round2(g.price + variance),
			Volume:    round4(g.rng.Float64() * 2),
			Side:      side,
			Timestamp: now + int64(i),
		})
	}

	return prints
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
