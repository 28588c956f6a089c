package stream

import (
	"context"
	"sync"

	"ai-livestream-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

// wsClient adapts a fiber websocket connection to the session's Conn
// interface. Reads stay single-threaded in the router; writes come from both
// lanes and are serialized here.
type wsClient struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newWsClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn}
}

func (c *wsClient) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

func (c *wsClient) SendJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsClient) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// StreamHandler owns the websocket ingestion endpoint. Each accepted
// connection gets its own session with fresh lane queues and collaborators.
type StreamHandler struct {
	deps SessionDeps
	log  logger.ILogger
}

func NewStreamHandler(deps SessionDeps) *StreamHandler {
	return &StreamHandler{deps: deps, log: deps.Log}
}

// Handle runs one session over the upgraded connection. It blocks until the
// session finishes; fiber keeps the handler goroutine alive for the duration.
func (h *StreamHandler) Handle(conn *websocket.Conn) {
	client := newWsClient(conn)
	defer client.Close()

	session := NewSession(h.deps)
	if err := session.Run(context.Background(), client); err != nil {
		h.log.Info("Stream", "Session ended with error", map[string]interface{}{
			"session_id": session.Id, "error": err.Error(),
		})
	}
}
