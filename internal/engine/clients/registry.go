// internal/engine/clients/registry.go
package clients

import (
	"fmt"
	"sort"
	"sync"

	"rag-engine/internal/common/errors"
	"rag-engine/internal/models"
)

// Registry holds the registered client contexts. Entries are immutable once
// registered: Register and Get both exchange clones, so no caller ever holds
// a reference into the stored map. ReplaceAll swaps the whole map in one
// step, keeping concurrent readers on a consistent snapshot during reloads.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*models.ClientContext
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*models.ClientContext)}
}

// Register adds a client. An already-registered id is rejected; there is no
// in-place update path, only ReplaceAll.
func (r *Registry) Register(client *models.ClientContext) error {
	if client == nil || client.ClientID == "" {
		return errors.NewConfigLoadError("client registry", fmt.Errorf("client record without id"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[client.ClientID]; exists {
		return errors.NewDuplicateClientError(client.ClientID)
	}
	r.clients[client.ClientID] = client.Clone()
	return nil
}

// Get returns a copy of the stored record for the id.
func (r *Registry) Get(clientID string) (*models.ClientContext, error) {
	r.mu.RLock()
	client, ok := r.clients[clientID]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.NewClientNotFoundError(clientID)
	}
	return client.Clone(), nil
}

// List returns the registered client ids in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ReplaceAll replaces the registry content in one swap. The batch is
// validated and cloned into a fresh map first, so a bad batch leaves the
// current content untouched and readers never observe a partial reload.
func (r *Registry) ReplaceAll(batch []*models.ClientContext) error {
	next := make(map[string]*models.ClientContext, len(batch))
	for _, client := range batch {
		if client == nil || client.ClientID == "" {
			return errors.NewConfigLoadError("client registry", fmt.Errorf("client record without id"))
		}
		if _, exists := next[client.ClientID]; exists {
			return errors.NewDuplicateClientError(client.ClientID)
		}
		next[client.ClientID] = client.Clone()
	}

	r.mu.Lock()
	r.clients = next
	r.mu.Unlock()
	return nil
}
