package index

import "container/heap"

// topK keeps the best hits seen so far. The heap root is the weakest hit, so
// a full heap evicts it when something better arrives.
type topK struct {
	limit int
	h     hitHeap
}

func newTopK(limit int) *topK {
	return &topK{limit: limit}
}

func (t *topK) offer(hit Hit) {
	if t.limit <= 0 {
		t.h = append(t.h, hit)
		return
	}
	if t.h.Len() < t.limit {
		heap.Push(&t.h, hit)
		return
	}
	if weaker(t.h[0], hit) {
		t.h[0] = hit
		heap.Fix(&t.h, 0)
	}
}

func (t *topK) sorted() []Hit {
	if t.limit <= 0 {
		heap.Init(&t.h)
	}
	result := make([]Hit, t.h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&t.h).(Hit)
	}
	return result
}

// weaker reports whether x ranks below y: lower score, or equal score and a
// later ID.
func weaker(x, y Hit) bool {
	if x.Score != y.Score {
		return x.Score < y.Score
	}
	return x.ID > y.ID
}

type hitHeap []Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return weaker(h[i], h[j]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) {
	*h = append(*h, x.(Hit))
}

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
