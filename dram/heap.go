package dram

import (
	"container/heap"

	"github.com/sarchlab/arches/transaction"
)

// completionItem is a scheduled return: the DRAM clock cycle at which a
// column-read's data becomes available, and the Return to deliver then
// (spec.md §4.4, "Completion").
type completionItem struct {
	cycle uint64
	ret   transaction.Return
}

// completionHeap is a min-heap ordered by cycle, one per channel.
type completionHeap []completionItem

func (h completionHeap) Len() int            { return len(h) }
func (h completionHeap) Less(i, j int) bool  { return h[i].cycle < h[j].cycle }
func (h completionHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *completionHeap) Push(x interface{}) { *h = append(*h, x.(completionItem)) }
func (h *completionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *completionHeap) schedule(cycle uint64, ret transaction.Return) {
	heap.Push(h, completionItem{cycle: cycle, ret: ret})
}

// popReady removes and returns every item whose cycle has arrived.
func (h *completionHeap) popReady(now uint64) []transaction.Return {
	var ready []transaction.Return
	for h.Len() > 0 && (*h)[0].cycle <= now {
		item := heap.Pop(h).(completionItem)
		ready = append(ready, item.ret)
	}
	return ready
}
