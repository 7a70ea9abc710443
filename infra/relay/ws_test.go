package relay

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/shiftd/core/model"
	corerelay "github.com/fleetops/shiftd/core/relay"
	"github.com/fleetops/shiftd/internal/eventbus"
)

type recordingSubscriber struct {
	mu     sync.Mutex
	topics []string
}

func (r *recordingSubscriber) SubscribeTopic(topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return nil
}

func (r *recordingSubscriber) subscribed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.topics...)
}

func TestWebsocketRelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.New[model.TelemetryEvent]()
	router := &recordingSubscriber{}
	hub := corerelay.NewHub(bus, router, 8, nil, nil)
	go hub.Run(ctx)

	srv := NewServer(hub, Config{})
	ts := httptest.NewServer(srv.Handler(ctx))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.Listeners() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Publish on a ticker until the read lands so the test does not
	// depend on when the hub's bus subscription was established.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(25 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bus.Publish(model.TelemetryEvent{
					Kind:     model.KindIgnitionStatus,
					DeviceID: "42",
					Topic:    "flespi/state/gw/devices/42/telemetry/engine.ignition.status",
					Payload:  map[string]any{"value": 1.0},
				})
			}
		}
	}()

	readCtx, readCancel := context.WithTimeout(ctx, 3*time.Second)
	_, data, err := conn.Read(readCtx)
	readCancel()
	close(stop)
	require.NoError(t, err)

	var ev model.TelemetryEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, model.KindIgnitionStatus, ev.Kind)
	assert.Equal(t, "42", ev.DeviceID)

	// A subscribe request grows the router's subscription set.
	req := []byte(`{"action":"subscribe","topic":"flespi/state/gw/devices/7/telemetry/din"}`)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, req))
	require.Eventually(t, func() bool {
		got := router.subscribed()
		return len(got) == 1 && got[0] == "flespi/state/gw/devices/7/telemetry/din"
	}, 2*time.Second, 10*time.Millisecond)

	// Closing the connection detaches the listener.
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool {
		return hub.Listeners() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConfigSetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, ":8085", cfg.ListenAddr)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, 5, cfg.WriteTimeoutSeconds)
}
