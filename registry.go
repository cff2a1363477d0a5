package main

import (
	"sync"
)

const playerIDLength = 8

// registry maps generated player ids to their live connections. Ids are
// short random tokens; with 62^8 values and party-sized rooms a collision
// check would never fire, so none is made.
type registry struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func newRegistry() *registry {
	return &registry{clients: make(map[string]*client)}
}

func (reg *registry) register(c *client) string {
	id := randomID(playerIDLength)
	c.id = id

	reg.mu.Lock()
	reg.clients[id] = c
	reg.mu.Unlock()

	return id
}

func (reg *registry) unregister(playerID string) {
	reg.mu.Lock()
	delete(reg.clients, playerID)
	reg.mu.Unlock()
}

func (reg *registry) lookup(playerID string) (*client, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	c, ok := reg.clients[playerID]
	return c, ok
}

func (reg *registry) count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.clients)
}
