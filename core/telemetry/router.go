package telemetry

import (
	"encoding/json"

	"github.com/fleetops/shiftd/core/logger"
	"github.com/fleetops/shiftd/core/metrics"
	"github.com/fleetops/shiftd/core/model"
	"github.com/fleetops/shiftd/internal/eventbus"
)

// Transport is the publish/subscribe session the router rides on. The
// implementation owns reconnection; the router only needs to know when
// a (re)connect happened so it can replay its subscription set.
type Transport interface {
	// Subscribe registers interest in a topic. The handler receives every
	// message published to it.
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	// OnConnect registers a callback invoked after every successful
	// connect, including automatic reconnects.
	OnConnect(fn func())
	// Connected reports whether the session is currently established.
	Connected() bool
}

// Router maintains the transport subscription set, classifies every
// inbound message by its channel name and publishes the classified
// event on the internal bus.
type Router struct {
	transport  Transport
	subs       *Registry
	classifier *Classifier
	bus        *eventbus.Bus[model.TelemetryEvent]
	log        logger.Logger
	sink       metrics.Sink
}

// NewRouter wires a Router. The registry is seeded from cfg and grows
// through SubscribeTopic.
func NewRouter(transport Transport, cfg Config, bus *eventbus.Bus[model.TelemetryEvent], log logger.Logger, sink metrics.Sink) *Router {
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Router{
		transport:  transport,
		subs:       NewRegistry(cfg.StaticTopics),
		classifier: NewClassifier(cfg),
		bus:        bus,
		log:        log,
		sink:       sink,
	}
}

// Start registers the reconnect hook and subscribes the current set if
// the transport is already connected.
func (r *Router) Start() {
	r.transport.OnConnect(r.resubscribe)
	if r.transport.Connected() {
		r.resubscribe()
	}
}

// SubscribeTopic adds a channel to the subscription set at runtime and
// subscribes immediately when connected. Duplicate requests are no-ops.
func (r *Router) SubscribeTopic(topic string) error {
	if !r.subs.Add(topic) {
		return nil
	}
	r.log.Infof("dynamic subscription added: %s", topic)
	if !r.transport.Connected() {
		return nil
	}
	return r.transport.Subscribe(topic, r.HandleMessage)
}

// Topics returns the current subscription set.
func (r *Router) Topics() []string { return r.subs.All() }

// resubscribe replays the full subscription set. Called on every
// (re)connect so dynamically added channels are not silently lost.
func (r *Router) resubscribe() {
	topics := r.subs.All()
	for _, t := range topics {
		if err := r.transport.Subscribe(t, r.HandleMessage); err != nil {
			r.log.Errorf("subscribe %s: %v", t, err)
		}
	}
	r.log.Infof("subscribed to %d channels", len(topics))
}

// HandleMessage parses and classifies one inbound message. An empty
// body is treated as an empty structure; a malformed body drops the
// single message with a warning. Unmatched channels are dropped.
func (r *Router) HandleMessage(topic string, payload []byte) {
	body := map[string]any{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &body); err != nil {
			r.log.Warnf("dropping malformed payload on %s: %v", topic, err)
			return
		}
	}

	kind := r.classifier.Classify(topic)
	if kind == model.KindUnmatched {
		r.log.Debugf("unmatched channel %s, dropping", topic)
		return
	}

	if er, ok := r.sink.(metrics.EventRecorder); ok {
		if err := er.RecordTelemetryEvent(string(kind)); err != nil {
			r.log.Errorf("metrics error: %v", err)
		}
	}
	r.bus.Publish(model.TelemetryEvent{
		Kind:     kind,
		DeviceID: DeviceID(topic),
		Topic:    topic,
		Payload:  body,
	})
}
