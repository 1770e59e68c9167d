package domain

import "errors"

// ErrWSDisconnect is returned by viewer-side operations that need a live
// WebSocket connection when none is established.
var ErrWSDisconnect = errors.New("websocket disconnected")
