package jobs

import (
	"fmt"
	"sync"
)

// Priority orders jobs in the queue. Lower values are served first.
type Priority int

const (
	VeryHigh Priority = iota
	High
	Normal
	Low
	VeryLow
	Idle

	numPriorities = int(Idle) + 1
)

var priorityNames = [numPriorities]string{"VeryHigh", "High", "Normal", "Low", "VeryLow", "Idle"}

func (p Priority) String() string {
	if p.Valid() {
		return priorityNames[p]
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// Valid reports whether p is one of the six defined priorities.
func (p Priority) Valid() bool {
	return p >= VeryHigh && p <= Idle
}

// ParsePriority resolves a priority name as printed by String.
func ParsePriority(name string) (Priority, error) {
	for i, n := range priorityNames {
		if n == name {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("unknown job priority %q", name)
}

// queue is a set of FIFO lanes, one per priority. Pop serves the oldest
// entry of the most urgent non-empty lane.
type queue struct {
	mu    sync.Mutex
	lanes [numPriorities][]*entry
	size  int
}

func newQueue() *queue {
	return &queue{}
}

func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *queue) Push(e *entry) {
	if e == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	p := e.job.Priority
	q.lanes[p] = append(q.lanes[p], e)
	q.size++
}

func (q *queue) Pop() *entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	for p := range q.lanes {
		lane := q.lanes[p]
		if len(lane) == 0 {
			continue
		}
		e := lane[0]
		lane[0] = nil
		q.lanes[p] = lane[1:]
		q.size--
		return e
	}
	return nil
}

// drain removes and returns every queued entry in service order.
func (q *queue) drain() []*entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*entry
	for p := range q.lanes {
		out = append(out, q.lanes[p]...)
		q.lanes[p] = nil
	}
	q.size = 0
	return out
}
