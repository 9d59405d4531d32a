package chat

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
)

// Registry maps connection ids to live clients. Both acceptors share one
// Registry, and with it one id counter.
type Registry struct {
	mu      sync.RWMutex
	clients map[uint64]*Client
	lastID  atomic.Uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uint64]*Client),
	}
}

// NextID allocates the next connection id. Ids start at 1 and are never reused.
func (r *Registry) NextID() uint64 {
	return r.lastID.Add(1)
}

// Register adds a client under its pre-assigned id.
func (r *Registry) Register(client *Client) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ID] = client
	return client.ID
}

// Deregister removes the client with the given id. It reports whether an entry
// was removed; removing an absent id is a no-op.
func (r *Registry) Deregister(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; !ok {
		return false
	}
	delete(r.clients, id)
	return true
}

// Lookup returns the client registered under id.
func (r *Registry) Lookup(id uint64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[id]
	return client, ok
}

// Snapshot returns the registered clients ordered by id. The slice is a copy;
// later registrations and removals do not affect it.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	slices.SortFunc(clients, func(a, b *Client) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return clients
}

// Count returns number of registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
