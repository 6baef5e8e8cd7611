// Package builder assembles the directory's three search indices from
// restaurant records: restaurant names, the global dish vocabulary, and the
// combined name and menu index used for boosted search.
package builder

import (
	"context"
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/search/index"
	"golang.org/x/sync/errgroup"
)

const (
	FieldName     = "name"
	FieldDishes   = "dishes"
	FieldDishName = "dishName"
)

// Indices is one generation of the search state. A generation produced by
// Build is complete before it is handed out; afterwards only Upsert mutates
// it.
type Indices struct {
	Names    *index.Index
	Dishes   *index.Index
	Combined *index.Index

	mu        sync.Mutex
	dishVocab map[string]struct{}
}

func empty() *Indices {
	return &Indices{
		Names:     index.New("names", FieldName),
		Dishes:    index.New("dishes", FieldDishName),
		Combined:  index.New("combined", FieldName, FieldDishes),
		dishVocab: make(map[string]struct{}),
	}
}

func nameDoc(n restaurant.Normalized) index.Document {
	return index.Document{
		ID:     n.ID,
		Fields: map[string][]string{FieldName: {n.Name}},
		Active: n.Active,
	}
}

func combinedDoc(n restaurant.Normalized) index.Document {
	return index.Document{
		ID:     n.ID,
		Fields: map[string][]string{FieldName: {n.Name}, FieldDishes: n.Dishes},
		Active: n.Active,
	}
}

func dishDoc(name string) index.Document {
	return index.Document{
		ID:     name,
		Fields: map[string][]string{FieldDishName: {name}},
		Active: true,
	}
}

// Build creates a fresh generation from records. The three bulk inserts run
// concurrently; if any fails the whole generation is discarded.
func Build(ctx context.Context, records []*restaurant.Restaurant) (*Indices, error) {
	ix := empty()
	nameDocs := make([]index.Document, 0, len(records))
	combinedDocs := make([]index.Document, 0, len(records))
	var dishDocs []index.Document

	for _, r := range records {
		n := restaurant.Normalize(r)
		nameDocs = append(nameDocs, nameDoc(n))
		combinedDocs = append(combinedDocs, combinedDoc(n))
		for _, dish := range n.Dishes {
			if _, seen := ix.dishVocab[dish]; seen {
				continue
			}
			ix.dishVocab[dish] = struct{}{}
			dishDocs = append(dishDocs, dishDoc(dish))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ix.Names.BulkAdd(gctx, nameDocs) })
	g.Go(func() error { return ix.Dishes.BulkAdd(gctx, dishDocs) })
	g.Go(func() error { return ix.Combined.BulkAdd(gctx, combinedDocs) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building indices: %w", err)
	}
	return ix, nil
}

// Upsert re-indexes a single restaurant in place. Its previous name and
// combined entries are replaced. Dish names it no longer serves stay in the
// dish vocabulary until the next Build.
func (ix *Indices) Upsert(n restaurant.Normalized) {
	ix.Names.Upsert(nameDoc(n))
	ix.Combined.Upsert(combinedDoc(n))

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, dish := range n.Dishes {
		if _, seen := ix.dishVocab[dish]; seen {
			continue
		}
		ix.dishVocab[dish] = struct{}{}
		ix.Dishes.Upsert(dishDoc(dish))
	}
}

// DishVocabulary returns the number of distinct dish names indexed.
func (ix *Indices) DishVocabulary() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.dishVocab)
}
