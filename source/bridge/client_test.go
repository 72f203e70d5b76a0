package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorops/copytrader/logger"
	"github.com/mirrorops/copytrader/source"
)

func testServer(t *testing.T, frames []string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// hold the connection open so the client does not churn reconnects
		time.Sleep(2 * time.Second)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForSnapshot(t *testing.T, c *Client) []source.Position {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		positions, err := c.OpenPositions(context.Background())
		if err == nil {
			return positions
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no snapshot received before deadline")
	return nil
}

func TestClientServesLatestSnapshot(t *testing.T) {
	t.Parallel()

	url := testServer(t, []string{
		`{"type":"positions","time":1741960800,"positions":[
			{"ticket":101,"symbol":"EURUSD","type":0,"volume":1,"magic":15,"price_current":1.0851},
			{"ticket":102,"symbol":"EURUSD","type":1,"volume":2,"magic":15,"price_current":1.0849}
		]}`,
	})

	c := New(url, time.Minute, logger.New(logger.Config{Level: "fatal"}))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	positions := waitForSnapshot(t, c)
	require.Len(t, positions, 2)
	assert.Equal(t, source.TicketID(101), positions[0].Ticket)
	assert.Equal(t, source.Long, positions[0].Direction)
	assert.Equal(t, source.Short, positions[1].Direction)
	assert.Equal(t, 2.0, positions[1].Size)
	assert.Equal(t, int64(15), positions[1].Magic)
}

func TestClientUnavailableBeforeFirstSnapshot(t *testing.T) {
	t.Parallel()

	url := testServer(t, nil)
	c := New(url, time.Minute, logger.New(logger.Config{Level: "fatal"}))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	_, err := c.OpenPositions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no snapshot")
}

func TestClientReportsStaleSnapshot(t *testing.T) {
	t.Parallel()

	url := testServer(t, []string{`{"type":"positions","positions":[{"ticket":1,"symbol":"EURUSD","type":0,"volume":1}]}`})
	c := New(url, 50*time.Millisecond, logger.New(logger.Config{Level: "fatal"}))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	waitForSnapshot(t, c)
	time.Sleep(100 * time.Millisecond)

	_, err := c.OpenPositions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stale")
}

func TestClientSkipsForeignFrames(t *testing.T) {
	t.Parallel()

	url := testServer(t, []string{
		`{"type":"heartbeat"}`,
		`not json at all`,
		`{"type":"positions","positions":[{"ticket":7,"symbol":"EURUSD","type":0,"volume":1}]}`,
	})

	c := New(url, time.Minute, logger.New(logger.Config{Level: "fatal"}))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	positions := waitForSnapshot(t, c)
	require.Len(t, positions, 1)
	assert.Equal(t, source.TicketID(7), positions[0].Ticket)
}
