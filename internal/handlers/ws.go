// internal/handlers/ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/quickmesh/lobby/internal/lobby"
)

const wsWriteTimeout = 5 * time.Second

// LobbyWSHandler accepts websocket upgrades on /ws?token=<token>, wraps the
// socket as a lobby.Conn and hands it to the service. The handler blocks in
// the read pump until the connection dies.
func LobbyWSHandler(logger *logrus.Logger, svc *lobby.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		conn := newWSConn(r.Context(), c, r.URL.Query(), logger)
		svc.OnNewConnection(r.Context(), conn)
		conn.readPump()
	}
}

// wsConn adapts a coder/websocket connection to the lobby.Conn capability.
type wsConn struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *websocket.Conn
	query  url.Values
	logger *logrus.Logger

	writeMu sync.Mutex

	mu           sync.Mutex
	onMessage    func(lobby.Message)
	onDisconnect func()

	disconnectOnce sync.Once
}

func newWSConn(parent context.Context, ws *websocket.Conn, query url.Values, logger *logrus.Logger) *wsConn {
	ctx, cancel := context.WithCancel(parent)
	return &wsConn{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		query:  query,
		logger: logger,
	}
}

func (c *wsConn) Param(key string) string {
	return c.query.Get(key)
}

func (c *wsConn) Send(m lobby.Message) {
	data, err := lobby.EncodeMessage(m)
	if err != nil {
		c.logger.WithField("error", err).Warn("Failed to encode outbound message")
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, wsWriteTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
		c.logger.WithField("error", err).Debug("websocket write failed")
	}
}

func (c *wsConn) Disconnect() {
	c.ws.Close(websocket.StatusNormalClosure, "disconnected by server")
	c.cancel()
}

func (c *wsConn) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.ws.Ping(ctx); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func (c *wsConn) OnMessage(fn func(lobby.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

func (c *wsConn) OnDisconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// readPump reads inbound frames until the connection dies, dispatching
// decoded messages to the registered callback, then fires the disconnect
// callback exactly once.
func (c *wsConn) readPump() {
	defer c.fireDisconnect()

	for {
		typ, data, err := c.ws.Read(c.ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				c.logger.WithField("error", err).Debug("websocket read ended")
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		m, err := lobby.DecodeMessage(data)
		if err != nil {
			if !errors.Is(err, lobby.ErrUnknownMessageType) {
				c.logger.WithField("error", err).Debug("Undecodable inbound message")
			}
			continue
		}

		c.mu.Lock()
		fn := c.onMessage
		c.mu.Unlock()
		if fn != nil {
			fn(m)
		}
	}
}

func (c *wsConn) fireDisconnect() {
	c.disconnectOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		fn := c.onDisconnect
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}
