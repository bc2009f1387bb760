package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/katalog-materi-api/internal/models"
)

// statsProvider computes aggregate statistics on demand for client-initiated
// requests.
type statsProvider interface {
	Summary(ctx context.Context, filter models.MateriFilter) (*models.StatsSummary, error)
}

// statsFilterPayload is the optional filter a client may attach to a
// request_stats or refresh_stats event.
type statsFilterPayload struct {
	Search  string `json:"search"`
	Status  string `json:"status"`
	Brand   string `json:"brand"`
	Cluster string `json:"cluster"`
	Fitur   string `json:"fitur"`
	Jenis   string `json:"jenis"`
}

func (p statsFilterPayload) toFilter() models.MateriFilter {
	return models.MateriFilter{
		Search:  p.Search,
		Status:  p.Status,
		Brand:   p.Brand,
		Cluster: p.Cluster,
		Fitur:   p.Fitur,
		Jenis:   p.Jenis,
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

// ClientOptions tunes per-connection behaviour.
type ClientOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 8
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	return o
}

// Client is one authenticated websocket subscriber. A read pump serves
// client-initiated stats requests; a write pump drains the buffered send
// channel so broadcasts never block on a slow connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	stats  statsProvider
	userID string
	opts   ClientOptions
	logger *zap.Logger

	send      chan []byte
	closeOnce sync.Once
}

// ServeClient registers the connection on the hub and runs its pumps. It
// blocks until the connection closes.
func ServeClient(hub *Hub, conn *websocket.Conn, stats statsProvider, userID string, opts ClientOptions, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	c := &Client{
		hub:    hub,
		conn:   conn,
		stats:  stats,
		userID: userID,
		opts:   opts,
		logger: logger,
		send:   make(chan []byte, opts.SendBuffer),
	}

	hub.register(c)
	go c.writePump()
	c.readPump()
}

// trySend queues a frame without blocking. Returns false when the client's
// buffer is full or already closed.
func (c *Client) trySend(frame []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("stats client read error", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError("malformed frame")
			continue
		}

		switch frame.Event {
		case EventRequestStats, EventRefreshStats:
			c.serveStats(frame.Payload)
		default:
			c.sendError("unknown event: " + frame.Event)
		}
	}
}

// serveStats answers a client-initiated stats request on this connection
// only; it never broadcasts.
func (c *Client) serveStats(payload json.RawMessage) {
	var filter statsFilterPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &filter); err != nil {
			c.sendError("malformed stats filter")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.WriteTimeout)
	defer cancel()

	summary, err := c.stats.Summary(ctx, filter.toFilter())
	if err != nil {
		c.logger.Warn("stats request failed", zap.String("user_id", c.userID), zap.Error(err))
		c.sendError("failed to compute statistics")
		return
	}

	frame, err := marshalFrame(EventStatsUpdate, summary)
	if err != nil {
		c.logger.Error("failed to marshal stats frame", zap.Error(err))
		return
	}
	c.trySend(frame)
}

func (c *Client) sendError(message string) {
	frame, err := marshalFrame(EventStatsError, errorPayload{Message: message})
	if err != nil {
		return
	}
	c.trySend(frame)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
