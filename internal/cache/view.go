package cache

import (
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/search/builder"
)

// generation pairs a record set with the indices built from it. mu is held
// for writing across a record replacement and its re-indexing, and for
// reading across a query and the resolution of its hits.
type generation struct {
	mu      sync.RWMutex
	records map[string]*restaurant.Restaurant
	order   []string
	indices *builder.Indices
	builtAt time.Time
}

func newGeneration(records []*restaurant.Restaurant, indices *builder.Indices) *generation {
	g := &generation{
		records: make(map[string]*restaurant.Restaurant, len(records)),
		order:   make([]string, 0, len(records)),
		indices: indices,
		builtAt: time.Now().UTC(),
	}
	for _, r := range records {
		g.records[r.ID] = r
		g.order = append(g.order, r.ID)
	}
	return g
}

func (g *generation) apply(r *restaurant.Restaurant) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, known := g.records[r.ID]; !known {
		g.order = append(g.order, r.ID)
	}
	g.records[r.ID] = r
	g.indices.Upsert(restaurant.Normalize(r))
}

func (g *generation) size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

// View is a read handle on one generation. A View stays valid after a
// reset; it keeps answering from the generation it was taken from. Records
// it returns are shared and must not be modified.
type View struct {
	g *generation
}

// Read runs fn while upserts to the generation are held off, so index hits
// and record lookups inside fn agree with each other.
func (v *View) Read(fn func(r Reader) error) error {
	v.g.mu.RLock()
	defer v.g.mu.RUnlock()
	return fn(Reader{g: v.g})
}

func (v *View) Get(id string) (*restaurant.Restaurant, bool) {
	v.g.mu.RLock()
	defer v.g.mu.RUnlock()
	r, ok := v.g.records[id]
	return r, ok
}

// All lists restaurants in store order. Filtering never touches the cache.
func (v *View) All(onlyActive bool) []*restaurant.Restaurant {
	v.g.mu.RLock()
	defer v.g.mu.RUnlock()
	return Reader{g: v.g}.All(onlyActive)
}

// Reader exposes a generation inside View.Read. It must not escape fn.
type Reader struct {
	g *generation
}

func (r Reader) Indices() *builder.Indices {
	return r.g.indices
}

func (r Reader) Get(id string) (*restaurant.Restaurant, bool) {
	rec, ok := r.g.records[id]
	return rec, ok
}

func (r Reader) All(onlyActive bool) []*restaurant.Restaurant {
	out := make([]*restaurant.Restaurant, 0, len(r.g.order))
	for _, id := range r.g.order {
		rec := r.g.records[id]
		if onlyActive && !rec.Metadata.IsActive {
			continue
		}
		out = append(out, rec)
	}
	return out
}
