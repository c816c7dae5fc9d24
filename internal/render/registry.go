package render

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"
)

var ErrUnknownSurface = errors.New("unknown surface")

// Painted is the latest image registered under an id.
type Painted struct {
	ID        string
	Image     image.Image
	PaintedAt time.Time
	Theme     string
}

// Registry makes painted surfaces addressable by a caller-chosen id so an
// exporter can find them without knowing who painted them.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Painted
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]Painted{}}
}

func (r *Registry) Put(p Painted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[p.ID] = p
}

func (r *Registry) Get(id string) (Painted, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[id]
	if !ok {
		return Painted{}, fmt.Errorf("surface %q: %w", id, ErrUnknownSurface)
	}
	return p, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// IDs lists registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
