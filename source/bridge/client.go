// Package bridge reads source account positions from the terminal bridge, a
// websocket endpoint that publishes a full open-position snapshot whenever
// the terminal state changes.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mirrorops/copytrader/logger"
	"github.com/mirrorops/copytrader/source"
)

const defaultStaleAfter = 10 * time.Second

// frame is one snapshot message from the bridge. Position fields follow the
// terminal's naming: type 0 is a long (buy) ticket, type 1 a short (sell).
type frame struct {
	Type      string     `json:"type"`
	Timestamp int64      `json:"time"`
	Positions []position `json:"positions"`
}

type position struct {
	Ticket int64   `json:"ticket"`
	Symbol string  `json:"symbol"`
	Kind   int     `json:"type"`
	Volume float64 `json:"volume"`
	Magic  int64   `json:"magic"`
	Price  float64 `json:"price_current"`
}

// Client maintains the latest snapshot behind the source.Source interface.
// OpenPositions never blocks on the network: it serves the cached snapshot
// and reports an error once the cache goes stale.
type Client struct {
	url          string
	staleAfter   time.Duration
	log          *logger.Logger
	stopCh       chan struct{}
	reconnectMin time.Duration
	reconnectMax time.Duration

	conn *websocket.Conn

	mu        sync.RWMutex
	latest    []source.Position
	updatedAt time.Time
}

func New(url string, staleAfter time.Duration, log *logger.Logger) *Client {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &Client{
		url:          url,
		staleAfter:   staleAfter,
		log:          log,
		stopCh:       make(chan struct{}),
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
	}
}

// Connect dials the bridge and starts the read loop. The first snapshot may
// arrive after Connect returns; OpenPositions reports unavailable until then.
func (c *Client) Connect(ctx context.Context) error {
	c.logEntry().WithField("url", c.url).Info("connecting to position bridge")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial bridge %s: %w", c.url, err)
	}

	c.conn = conn
	c.conn.SetReadLimit(2 << 20)

	c.logEntry().Info("bridge connection established")

	go c.readLoop()

	return nil
}

// Close stops the read loop and drops the connection.
func (c *Client) Close() error {
	close(c.stopCh)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// OpenPositions implements source.Source from the cached snapshot.
func (c *Client) OpenPositions(ctx context.Context) ([]source.Position, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.updatedAt.IsZero() {
		return nil, fmt.Errorf("no snapshot received from bridge yet")
	}
	if age := time.Since(c.updatedAt); age > c.staleAfter {
		return nil, fmt.Errorf("bridge snapshot is %s old, staleness bound is %s", age.Round(time.Millisecond), c.staleAfter)
	}

	out := make([]source.Position, len(c.latest))
	copy(out, c.latest)
	return out, nil
}

func (c *Client) readLoop() {
	c.logEntry().Debug("bridge read loop started")

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logEntry().WithError(err).Warn("bridge read failed")

			if !c.reconnect() {
				return
			}
			continue
		}

		var msg frame
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logEntry().WithError(err).Warn("unparseable bridge frame")
			continue
		}
		if msg.Type != "" && msg.Type != "positions" {
			continue
		}

		c.store(msg)
	}
}

func (c *Client) store(msg frame) {
	positions := make([]source.Position, 0, len(msg.Positions))
	for _, p := range msg.Positions {
		dir := source.Long
		if p.Kind == 1 {
			dir = source.Short
		}
		positions = append(positions, source.Position{
			Ticket:    source.TicketID(p.Ticket),
			Symbol:    p.Symbol,
			Direction: dir,
			Size:      p.Volume,
			Magic:     p.Magic,
			Price:     p.Price,
		})
	}

	c.mu.Lock()
	c.latest = positions
	c.updatedAt = time.Now()
	c.mu.Unlock()

	c.logEntry().WithFields(logrus.Fields{
		"positions": len(positions),
		"stamp":     msg.Timestamp,
	}).Debug("snapshot updated")
}

func (c *Client) reconnect() bool {
	backoff := c.reconnectMin

	for {
		select {
		case <-c.stopCh:
			return false
		default:
		}

		c.logEntry().Info("reconnecting to position bridge")

		time.Sleep(backoff)

		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			c.logEntry().WithError(err).Warn("bridge reconnect failed")
			backoff = c.nextBackoff(backoff)
			continue
		}

		if c.conn != nil {
			_ = c.conn.Close()
		}

		c.conn = conn
		c.conn.SetReadLimit(2 << 20)

		c.logEntry().Info("bridge reconnected")
		return true
	}
}

func (c *Client) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > c.reconnectMax {
		return c.reconnectMax
	}
	return next
}

func (c *Client) logEntry() *logrus.Entry {
	return c.log.WithComponent("bridge")
}
