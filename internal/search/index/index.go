// Package index implements a field-aware in-memory inverted index with BM25
// scoring, per-field boosts, prefix expansion and filter predicates.
// Documents are keyed by ID: adding a document whose ID is already present
// replaces the previous entry.
package index

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/search/tokenizer"
)

var ErrDuplicateID = errors.New("duplicate document id")

// prefixWeight scales matches found by prefix expansion so that a document
// containing the exact query term ranks above one that only extends it.
const prefixWeight = 0.5

// Document is the unit of indexing. Each value in Fields is tokenized
// separately and the tokens of all values in a field are pooled. Documents
// returned in hits share storage with the index and must not be modified.
type Document struct {
	ID     string
	Fields map[string][]string
	Active bool
}

// Value returns the first value of field, or "".
func (d Document) Value(field string) string {
	if v := d.Fields[field]; len(v) > 0 {
		return v[0]
	}
	return ""
}

type Hit struct {
	ID    string
	Score float64
	Doc   Document
}

// Query describes a ranked lookup. Fields missing from Boost weigh 1; a
// non-positive boost disables the field. A nil Filter keeps every match and
// a non-positive Limit returns all of them.
type Query struct {
	Text   string
	Boost  map[string]float64
	Filter func(Document) bool
	Prefix bool
	Limit  int
}

type entry struct {
	doc     Document
	lengths map[string]int
	terms   map[string]map[string]int
}

// Index is safe for concurrent use.
type Index struct {
	name   string
	fields []string

	mu       sync.RWMutex
	docs     map[string]*entry
	postings map[string]map[string]map[string]int
	vocab    map[string][]string
	totalLen map[string]int
}

// New creates an empty index over the given fields.
func New(name string, fields ...string) *Index {
	ix := &Index{
		name:     name,
		fields:   fields,
		docs:     make(map[string]*entry),
		postings: make(map[string]map[string]map[string]int, len(fields)),
		vocab:    make(map[string][]string, len(fields)),
		totalLen: make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		ix.postings[f] = make(map[string]map[string]int)
	}
	return ix
}

func (ix *Index) Name() string { return ix.name }

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Terms returns the number of distinct terms across all fields.
func (ix *Index) Terms() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, v := range ix.vocab {
		n += len(v)
	}
	return n
}

func (ix *Index) Has(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.docs[id]
	return ok
}

func (ix *Index) Get(id string) (Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.docs[id]
	if !ok {
		return Document{}, false
	}
	return e.doc, true
}

// Upsert indexes doc, first removing any entry with the same ID.
func (ix *Index) Upsert(doc Document) {
	e := ix.analyze(doc)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(doc.ID)
	ix.addLocked(e)
}

// Remove deletes the entry for id and reports whether one existed.
func (ix *Index) Remove(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.removeLocked(id)
}

// BulkAdd inserts docs that must all carry IDs new to the index. The batch
// is validated before anything is inserted. Cancellation is checked while
// inserting, so a cancelled call can leave a prefix of docs in the index;
// callers building a fresh index discard it on error.
func (ix *Index) BulkAdd(ctx context.Context, docs []Document) error {
	analyzed := make([]*entry, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%s: %w: %q", ix.name, ErrDuplicateID, d.ID)
		}
		seen[d.ID] = struct{}{}
		analyzed[i] = ix.analyze(d)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, d := range docs {
		if _, exists := ix.docs[d.ID]; exists {
			return fmt.Errorf("%s: %w: %q", ix.name, ErrDuplicateID, d.ID)
		}
	}
	for i, e := range analyzed {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s: bulk add interrupted: %w", ix.name, err)
			}
		}
		ix.addLocked(e)
	}
	return nil
}

func (ix *Index) analyze(doc Document) *entry {
	e := &entry{
		doc:     doc,
		lengths: make(map[string]int, len(ix.fields)),
		terms:   make(map[string]map[string]int, len(ix.fields)),
	}
	for _, f := range ix.fields {
		values := doc.Fields[f]
		if len(values) == 0 {
			continue
		}
		tf := make(map[string]int)
		for _, v := range values {
			for _, term := range tokenizer.Terms(v) {
				tf[term]++
				e.lengths[f]++
			}
		}
		e.terms[f] = tf
	}
	return e
}

func (ix *Index) addLocked(e *entry) {
	ix.docs[e.doc.ID] = e
	for f, tf := range e.terms {
		for term, n := range tf {
			docs, ok := ix.postings[f][term]
			if !ok {
				docs = make(map[string]int)
				ix.postings[f][term] = docs
				ix.vocab[f] = insertSorted(ix.vocab[f], term)
			}
			docs[e.doc.ID] = n
		}
		ix.totalLen[f] += e.lengths[f]
	}
}

func (ix *Index) removeLocked(id string) bool {
	e, ok := ix.docs[id]
	if !ok {
		return false
	}
	for f, tf := range e.terms {
		for term := range tf {
			docs := ix.postings[f][term]
			delete(docs, id)
			if len(docs) == 0 {
				delete(ix.postings[f], term)
				ix.vocab[f] = deleteSorted(ix.vocab[f], term)
			}
		}
		ix.totalLen[f] -= e.lengths[f]
	}
	delete(ix.docs, id)
	return true
}

type expansion struct {
	term   string
	weight float64
}

func (ix *Index) expand(field, term string, prefix bool) []expansion {
	var out []expansion
	if _, ok := ix.postings[field][term]; ok {
		out = append(out, expansion{term: term, weight: 1})
	}
	if !prefix || term == "" {
		return out
	}
	vocab := ix.vocab[field]
	i, _ := slices.BinarySearch(vocab, term)
	for ; i < len(vocab) && strings.HasPrefix(vocab[i], term); i++ {
		if vocab[i] != term {
			out = append(out, expansion{term: vocab[i], weight: prefixWeight})
		}
	}
	return out
}

// Search scores every document matching at least one query term. Query
// terms combine with OR; within one query term and field only the best
// expansion counts. Results are ordered by score descending, then ID.
func (ix *Index) Search(q Query) []Hit {
	queryTerms := unique(tokenizer.Terms(q.Text))

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := len(ix.docs)
	if n == 0 {
		return nil
	}

	scores := make(map[string]float64)
	for _, f := range ix.fields {
		boost := 1.0
		if v, ok := q.Boost[f]; ok {
			boost = v
		}
		if boost <= 0 {
			continue
		}
		avgLen := float64(ix.totalLen[f]) / float64(n)
		for _, qt := range queryTerms {
			best := make(map[string]float64)
			for _, x := range ix.expand(f, qt, q.Prefix) {
				docs := ix.postings[f][x.term]
				idf := computeIDF(n, len(docs))
				for id, tf := range docs {
					s := x.weight * idf * computeTFNorm(float64(tf), float64(ix.docs[id].lengths[f]), avgLen)
					if cur, seen := best[id]; !seen || s > cur {
						best[id] = s
					}
				}
			}
			for id, s := range best {
				scores[id] += boost * s
			}
		}
	}

	top := newTopK(q.Limit)
	for id, score := range scores {
		e := ix.docs[id]
		if q.Filter != nil && !q.Filter(e.doc) {
			continue
		}
		top.offer(Hit{ID: id, Score: score, Doc: e.doc})
	}
	return top.sorted()
}

func unique(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func insertSorted(s []string, v string) []string {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	return slices.Insert(s, i, v)
}

func deleteSorted(s []string, v string) []string {
	i, found := slices.BinarySearch(s, v)
	if !found {
		return s
	}
	return slices.Delete(s, i, i+1)
}
