package query

import "container/heap"

// DefaultLimit is the number of results returned when k is not positive.
const DefaultLimit = 10

// RankTop returns the k highest positive scores, best first. Equal scores are
// ordered by title.
func RankTop(scores map[string]float64, k int) []Result {
	if k <= 0 {
		k = DefaultLimit
	}
	h := &resultHeap{}
	for title, score := range scores {
		if score <= 0 {
			continue
		}
		heap.Push(h, Result{Title: title, Score: score})
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	out := make([]Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Result)
		out[i].Rank = i + 1
	}
	return out
}

// resultHeap is a min-heap on result quality, so the worst kept result is
// at the root.
type resultHeap []Result

func (h resultHeap) Len() int { return len(h) }

func (h resultHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].Title > h[j].Title
}

func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) {
	*h = append(*h, x.(Result))
}

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
