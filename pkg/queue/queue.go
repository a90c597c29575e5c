// Package queue provides the unbounded lock-free FIFO of task cells shared
// by the concurrent executor and the semaphore waiter list.
package queue

import (
	"sync/atomic"

	"github.com/brickingsoft/vortex/pkg/task"
)

// New constructs an empty queue.
func New() *Queue {
	sentinel := &node{}
	q := &Queue{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

type node struct {
	cell *task.Task
	next atomic.Pointer[node]
}

// Queue is a Michael-Scott FIFO. Enqueue and Dequeue may be called from
// any number of goroutines. Nodes are not reused: a node stays reachable
// by any racing operation that loaded it, which is what rules out the ABA
// hazard manual reclamation would reintroduce.
type Queue struct {
	head atomic.Pointer[node]
	tail atomic.Pointer[node]
	size atomic.Int64
}

// Enqueue appends cell at the tail.
func (q *Queue) Enqueue(cell *task.Task) {
	n := &node{cell: cell}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			// tail is lagging, help it along
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			q.size.Add(1)
			return
		}
	}
}

// Dequeue removes and returns the head cell, or nil when the queue is
// empty.
func (q *Queue) Dequeue() *task.Task {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if head == tail {
			if next == nil {
				return nil
			}
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		cell := next.cell
		if q.head.CompareAndSwap(head, next) {
			// next is the new sentinel; losing racers re-read through the
			// fresh head before trusting their snapshot
			next.cell = nil
			q.size.Add(-1)
			return cell
		}
	}
}

func (q *Queue) Length() int64 {
	return q.size.Load()
}
