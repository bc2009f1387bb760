package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/katalog-materi-api/internal/models"
)

type countingMetrics struct {
	mu            sync.Mutex
	connected     int
	disconnected  int
	broadcasts    int
	droppedFrames int
}

func (m *countingMetrics) ClientConnected() {
	m.mu.Lock()
	m.connected++
	m.mu.Unlock()
}

func (m *countingMetrics) ClientDisconnected() {
	m.mu.Lock()
	m.disconnected++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordBroadcast() {
	m.mu.Lock()
	m.broadcasts++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordDroppedFrame() {
	m.mu.Lock()
	m.droppedFrames++
	m.mu.Unlock()
}

func newTestClient(hub *Hub, buffer int) *Client {
	return &Client{
		hub:    hub,
		userID: "user-test",
		send:   make(chan []byte, buffer),
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	metrics := &countingMetrics{}
	hub := NewHub(metrics, nil)

	a := newTestClient(hub, 4)
	b := newTestClient(hub, 4)
	hub.register(a)
	hub.register(b)
	require.Equal(t, 2, hub.ClientCount())

	hub.Broadcast(EventStatsUpdate, models.StatsSummary{Total: 9})

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.send:
			var frame Frame
			require.NoError(t, json.Unmarshal(raw, &frame))
			assert.Equal(t, EventStatsUpdate, frame.Event)

			var payload models.StatsSummary
			require.NoError(t, json.Unmarshal(frame.Payload, &payload))
			assert.Equal(t, 9, payload.Total)
		default:
			t.Fatal("client did not receive broadcast frame")
		}
	}
	assert.Equal(t, 1, metrics.broadcasts)
}

func TestHubEvictsSlowClient(t *testing.T) {
	metrics := &countingMetrics{}
	hub := NewHub(metrics, nil)

	slow := newTestClient(hub, 1)
	fast := newTestClient(hub, 4)
	hub.register(slow)
	hub.register(fast)

	// Fill the slow client's buffer, then broadcast again.
	hub.Broadcast(EventStatsUpdate, models.StatsSummary{Total: 1})
	hub.Broadcast(EventStatsUpdate, models.StatsSummary{Total: 2})

	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, metrics.droppedFrames)
	assert.Equal(t, 1, metrics.disconnected)
	assert.Len(t, fast.send, 2)
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(nil, nil)
	c := newTestClient(hub, 1)
	hub.register(c)

	hub.unregister(c)
	hub.unregister(c)
	assert.Zero(t, hub.ClientCount())
}

func TestHubShutdownDisconnectsEveryone(t *testing.T) {
	metrics := &countingMetrics{}
	hub := NewHub(metrics, nil)
	hub.register(newTestClient(hub, 1))
	hub.register(newTestClient(hub, 1))

	hub.Shutdown()
	assert.Zero(t, hub.ClientCount())
	assert.Equal(t, 2, metrics.disconnected)
}

type bridgeStatsProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *bridgeStatsProvider) Summary(_ context.Context, _ models.MateriFilter) (*models.StatsSummary, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return &models.StatsSummary{Total: 3, Active: 2, Expired: 1, LastUpdated: time.Now().UTC()}, nil
}

func (p *bridgeStatsProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestBridgeCoalescesMutationBursts(t *testing.T) {
	hub := NewHub(nil, nil)
	client := newTestClient(hub, 8)
	hub.register(client)

	stats := &bridgeStatsProvider{}
	bridge := NewBridge(hub, stats, 30*time.Millisecond, nil)
	bridge.Start(context.Background())
	defer bridge.Stop()

	for i := 0; i < 5; i++ {
		bridge.MutationObserved()
	}

	require.Eventually(t, func() bool {
		return len(client.send) > 0
	}, time.Second, 10*time.Millisecond)

	// Burst collapsed into one recompute and one broadcast.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, stats.count())
	assert.Len(t, client.send, 1)

	var frame Frame
	require.NoError(t, json.Unmarshal(<-client.send, &frame))
	assert.Equal(t, EventStatsUpdate, frame.Event)
}

func TestBridgeSkipsRecomputeWithoutClients(t *testing.T) {
	hub := NewHub(nil, nil)
	stats := &bridgeStatsProvider{}
	bridge := NewBridge(hub, stats, 10*time.Millisecond, nil)
	bridge.Start(context.Background())
	defer bridge.Stop()

	bridge.MutationObserved()
	time.Sleep(60 * time.Millisecond)

	assert.Zero(t, stats.count())
}

func TestBridgeSeparateWindowsRecomputeAgain(t *testing.T) {
	hub := NewHub(nil, nil)
	client := newTestClient(hub, 8)
	hub.register(client)

	stats := &bridgeStatsProvider{}
	bridge := NewBridge(hub, stats, 10*time.Millisecond, nil)
	bridge.Start(context.Background())
	defer bridge.Stop()

	bridge.MutationObserved()
	require.Eventually(t, func() bool { return stats.count() == 1 }, time.Second, 5*time.Millisecond)

	bridge.MutationObserved()
	require.Eventually(t, func() bool { return stats.count() == 2 }, time.Second, 5*time.Millisecond)
}
