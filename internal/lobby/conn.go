// internal/lobby/conn.go
package lobby

import (
	"context"
	"time"
)

// Conn is one live bidirectional channel to a participant. The concrete
// transport (websocket in this repo, anything else behind the same shape)
// implements it; the service only ever talks to this interface.
type Conn interface {
	// Param returns a handshake query parameter, "" if absent. The service
	// reads the session token from here on connect.
	Param(key string) string
	// Send pushes one message to the client. Delivery failures are the
	// transport's problem; they surface as a later disconnect.
	Send(m Message)
	// Disconnect forcibly closes the channel.
	Disconnect()
	// Ping measures one round trip to the client.
	Ping(ctx context.Context) (time.Duration, error)
	// OnMessage registers the inbound message callback.
	OnMessage(fn func(m Message))
	// OnDisconnect registers the callback fired once when the channel dies,
	// whether the peer dropped or Disconnect was called.
	OnDisconnect(fn func())
}
