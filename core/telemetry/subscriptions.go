package telemetry

import "sync"

// Registry owns the set of subscribed channel names. The set grows
// monotonically at runtime and is replayed wholesale on reconnect.
// All mutation goes through Add under a single lock.
type Registry struct {
	mu     sync.Mutex
	topics []string
	seen   map[string]struct{}
}

// NewRegistry seeds the registry with the static topic list.
func NewRegistry(static []string) *Registry {
	r := &Registry{seen: make(map[string]struct{}, len(static))}
	for _, t := range static {
		r.add(t)
	}
	return r
}

// Add inserts a topic, reporting false when it was already present.
func (r *Registry) Add(topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(topic)
}

func (r *Registry) add(topic string) bool {
	if _, ok := r.seen[topic]; ok {
		return false
	}
	r.seen[topic] = struct{}{}
	r.topics = append(r.topics, topic)
	return true
}

// All returns a copy of the current subscription set.
func (r *Registry) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.topics))
	copy(out, r.topics)
	return out
}
