package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/katalog-materi-api/internal/models"
)

type scriptedStatsProvider struct {
	summary *models.StatsSummary
	err     error
}

func (p *scriptedStatsProvider) Summary(_ context.Context, filter models.MateriFilter) (*models.StatsSummary, error) {
	if p.err != nil {
		return nil, p.err
	}
	s := *p.summary
	if filter.Brand != "" {
		s.Total = 1
	}
	return &s, nil
}

func dialTestClient(t *testing.T, hub *Hub, stats statsProvider) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		go ServeClient(hub, conn, stats, "user-1", ClientOptions{}, nil)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestClientRequestStatsRoundTrip(t *testing.T) {
	hub := NewHub(nil, nil)
	stats := &scriptedStatsProvider{summary: &models.StatsSummary{Total: 7, Active: 5, Expired: 2}}
	conn := dialTestClient(t, hub, stats)

	require.NoError(t, conn.WriteJSON(Frame{Event: EventRequestStats}))

	frame := readFrame(t, conn)
	assert.Equal(t, EventStatsUpdate, frame.Event)

	var payload models.StatsSummary
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, 7, payload.Total)
}

func TestClientRefreshStatsWithFilter(t *testing.T) {
	hub := NewHub(nil, nil)
	stats := &scriptedStatsProvider{summary: &models.StatsSummary{Total: 7}}
	conn := dialTestClient(t, hub, stats)

	filter, _ := json.Marshal(statsFilterPayload{Brand: "IndiHome"})
	require.NoError(t, conn.WriteJSON(Frame{Event: EventRefreshStats, Payload: filter}))

	frame := readFrame(t, conn)
	assert.Equal(t, EventStatsUpdate, frame.Event)

	var payload models.StatsSummary
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, 1, payload.Total, "filter payload reaches the provider")
}

func TestClientStatsErrorOnProviderFailure(t *testing.T) {
	hub := NewHub(nil, nil)
	stats := &scriptedStatsProvider{err: errors.New("db down")}
	conn := dialTestClient(t, hub, stats)

	require.NoError(t, conn.WriteJSON(Frame{Event: EventRequestStats}))

	frame := readFrame(t, conn)
	assert.Equal(t, EventStatsError, frame.Event)
	// Internal detail stays server-side.
	assert.NotContains(t, string(frame.Payload), "db down")
}

func TestClientUnknownEvent(t *testing.T) {
	hub := NewHub(nil, nil)
	stats := &scriptedStatsProvider{summary: &models.StatsSummary{}}
	conn := dialTestClient(t, hub, stats)

	require.NoError(t, conn.WriteJSON(Frame{Event: "subscribe_everything"}))

	frame := readFrame(t, conn)
	assert.Equal(t, EventStatsError, frame.Event)
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub := NewHub(nil, nil)
	stats := &scriptedStatsProvider{summary: &models.StatsSummary{}}
	conn := dialTestClient(t, hub, stats)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
