// Implements the WaitQueue the broker keeps for Vms pending host allocation
// and Cloudlets pending Vm binding.

package sim

import (
	"fmt"
	"strings"
)

// WaitQueue is a FIFO of items waiting for placement. Retries walk it front to
// back so placement order equals submission order.
type WaitQueue[T comparable] struct {
	queue []T
}

// Enqueue adds an item to the back of the queue.
func (wq *WaitQueue[T]) Enqueue(item T) {
	wq.queue = append(wq.queue, item)
}

func (wq *WaitQueue[T]) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range wq.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(wq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of waiting items.
func (wq *WaitQueue[T]) Len() int {
	return len(wq.queue)
}

// Contains reports whether item is waiting.
func (wq *WaitQueue[T]) Contains(item T) bool {
	for _, v := range wq.queue {
		if v == item {
			return true
		}
	}
	return false
}

// Items returns a copy of the queue contents in FIFO order.
func (wq *WaitQueue[T]) Items() []T {
	out := make([]T, len(wq.queue))
	copy(out, wq.queue)
	return out
}

// Remove deletes the first occurrence of item, preserving order.
func (wq *WaitQueue[T]) Remove(item T) bool {
	for i, v := range wq.queue {
		if v == item {
			wq.queue = append(wq.queue[:i], wq.queue[i+1:]...)
			return true
		}
	}
	return false
}

// Drain visits every item in FIFO order and keeps only those for which
// keep returns true. fn may enqueue new items; those are retained untouched
// and are not visited in this pass.
func (wq *WaitQueue[T]) Drain(keep func(T) bool) {
	if keep == nil {
		panic("Drain: keep must not be nil")
	}
	pending := wq.queue
	wq.queue = nil
	var kept []T
	for _, item := range pending {
		if keep(item) {
			kept = append(kept, item)
		}
	}
	wq.queue = append(kept, wq.queue...)
}
