package feed

import (
	"encoding/json"
	"fmt"
)

// Channel names on the wire. The server-to-client channels carry market
// samples; request-historical-data is the single client-to-server channel.
const (
	ChanHistorical     = "historical-data"
	ChanBookSnapshot   = "market-maker-data"
	ChanCandleUpdate   = "candlestick-update"
	ChanBookUpdate     = "market-maker-update"
	ChanTrades         = "transactions-update"
	ChanHistoryRequest = "request-historical-data"
	ChanHistoryReply   = "historical-data-response"
)

// Envelope is the JSON wire frame wrapping every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps payload in an Envelope for the given channel and marshals it.
func Encode(channel string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("feed: marshal %s payload: %w", channel, err)
	}
	data, err := json.Marshal(Envelope{
		Type:    channel,
		Payload: body,
	})
	if err != nil {
		return nil, fmt.Errorf("feed: marshal %s envelope: %w", channel, err)
	}
	return data, nil
}

// Decode parses a wire frame into an Envelope. The payload stays raw so the
// caller can unmarshal it once the channel is known.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("feed: decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("feed: envelope missing type")
	}
	return env, nil
}
