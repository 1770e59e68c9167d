// Package domain holds the market data types shared by the feed server and
// the viewer-side reconciler, plus the interfaces they communicate through.
package domain

// Side labels the direction of an order-book level or a trade print.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Candle is an OHLCV aggregate over a fixed time bucket. Time is epoch
// milliseconds; within one series it strictly increases once deduplicated.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// BookLevel is a single price+size entry in the synthetic order book. A book
// update is a full snapshot of levels; there is no cross-snapshot identity.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	Side  Side    `json:"side"`
}

// TradePrint is one synthetic execution. IDs are opaque and unique per print
// but carry no ordering; display order is by Timestamp (epoch ms) descending.
type TradePrint struct {
	ID        string  `json:"id"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Side      Side    `json:"side"`
	Timestamp int64   `json:"timestamp"`
}

// HistoryRequest asks for a page of recent candles. Limit is clamped to a
// safe default when non-positive. Before, when non-zero, restricts the page
// to candles strictly older than that epoch-ms timestamp.
type HistoryRequest struct {
	Limit  int   `json:"limit"`
	Before int64 `json:"before,omitempty"`
}
