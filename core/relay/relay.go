package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fleetops/shiftd/core/logger"
	"github.com/fleetops/shiftd/core/metrics"
	"github.com/fleetops/shiftd/core/model"
	"github.com/fleetops/shiftd/internal/eventbus"
)

// Listener is one connected dashboard client. Send must not block
// indefinitely; an error marks the listener unhealthy and it is pruned.
type Listener interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// TopicSubscriber lets a listener grow the router's subscription set.
type TopicSubscriber interface {
	SubscribeTopic(topic string) error
}

// Request is an inbound listener message.
type Request struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// Hub bridges the internal event bus to all connected listeners. Every
// bus event is serialized once and offered to each listener in arrival
// order; a slow or dead listener is pruned without affecting delivery
// to the rest.
type Hub struct {
	bus    *eventbus.Bus[model.TelemetryEvent]
	router TopicSubscriber
	log    logger.Logger
	sink   metrics.Sink

	queueSize int

	mu        sync.Mutex
	listeners map[string]*client
}

// client owns the per-listener outbound queue. The queue is never
// closed; the done channel stops both the write pump and any pending
// broadcast offers.
type client struct {
	listener Listener
	queue    chan []byte
	done     chan struct{}
}

// NewHub creates a Hub. queueSize bounds the per-listener outbound
// queue; events beyond it are dropped for that listener only.
func NewHub(bus *eventbus.Bus[model.TelemetryEvent], router TopicSubscriber, queueSize int, log logger.Logger, sink metrics.Sink) *Hub {
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Hub{
		bus:       bus,
		router:    router,
		log:       log,
		sink:      sink,
		queueSize: queueSize,
		listeners: make(map[string]*client),
	}
}

// Run consumes the bus until the context is cancelled or the bus closes.
func (h *Hub) Run(ctx context.Context) {
	events := h.bus.Subscribe()
	defer h.bus.Unsubscribe(events)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev, ok := <-events:
			if !ok {
				h.closeAll()
				return
			}
			h.broadcast(ev)
		}
	}
}

// Attach registers a listener and starts its write pump.
func (h *Hub) Attach(l Listener) {
	c := &client{listener: l, queue: make(chan []byte, h.queueSize), done: make(chan struct{})}
	h.mu.Lock()
	h.listeners[l.ID()] = c
	n := len(h.listeners)
	h.mu.Unlock()
	h.recordListeners(n)
	h.log.Infof("listener %s connected (%d total)", l.ID(), n)

	go func() {
		for {
			select {
			case <-c.done:
				return
			case data := <-c.queue:
				if err := l.Send(data); err != nil {
					h.log.Warnf("listener %s: send failed, pruning: %v", l.ID(), err)
					h.Detach(l.ID())
					return
				}
			}
		}
	}()
}

// Detach removes a listener and closes its connection. Safe to call
// more than once.
func (h *Hub) Detach(id string) {
	h.mu.Lock()
	c, ok := h.listeners[id]
	if ok {
		delete(h.listeners, id)
	}
	n := len(h.listeners)
	h.mu.Unlock()
	if !ok {
		return
	}
	close(c.done)
	if err := c.listener.Close(); err != nil {
		h.log.Debugf("listener %s: close: %v", id, err)
	}
	h.recordListeners(n)
	h.log.Infof("listener %s disconnected (%d total)", id, n)
}

// Listeners returns the number of currently attached listeners.
func (h *Hub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// HandleRequest processes one inbound listener message. Subscribe
// requests are forwarded to the router's dynamic subscription set;
// unsubscribe is acknowledged without immediate effect.
func (h *Hub) HandleRequest(listenerID string, raw []byte) error {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("listener %s: malformed request: %w", listenerID, err)
	}
	switch req.Action {
	case "subscribe":
		if req.Topic == "" {
			return fmt.Errorf("listener %s: subscribe without topic", listenerID)
		}
		return h.router.SubscribeTopic(req.Topic)
	case "unsubscribe":
		h.log.Debugf("listener %s: unsubscribe %s acknowledged", listenerID, req.Topic)
		return nil
	default:
		return fmt.Errorf("listener %s: unknown action %q", listenerID, req.Action)
	}
}

// broadcast serializes the event once and offers it to every listener.
func (h *Hub) broadcast(ev model.TelemetryEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Errorf("marshal event: %v", err)
		return
	}
	h.mu.Lock()
	clients := make([]*client, 0, len(h.listeners))
	for _, c := range h.listeners {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		select {
		case c.queue <- data:
		case <-c.done:
		default:
			// Queue full: the listener is too slow, drop this event for it.
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.Detach(id)
	}
}

func (h *Hub) recordListeners(n int) {
	if lr, ok := h.sink.(metrics.ListenerRecorder); ok {
		if err := lr.RecordListeners(n); err != nil {
			h.log.Errorf("metrics error: %v", err)
		}
	}
}
