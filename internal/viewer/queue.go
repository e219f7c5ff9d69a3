// Package viewer mounts models onto rendering surfaces and drives them
// frame by frame.
//
// Everything here runs on the frame thread: the host calls
// FrameQueue.Flush once per display refresh and every tick, draw and
// lifecycle callback happens inside it. None of the types are safe for
// concurrent use.
package viewer

import "time"

type FrameCallback func(now time.Time)

type frameRequest struct {
	id        uint64
	fn        FrameCallback
	cancelled bool
}

// FrameQueue is the host's per-frame callback list.
type FrameQueue struct {
	seq     uint64
	pending []*frameRequest
	byID    map[uint64]*frameRequest
}

func NewFrameQueue() *FrameQueue {
	return &FrameQueue{byID: make(map[uint64]*frameRequest)}
}

// RequestFrame schedules fn for the next Flush and returns an id for
// CancelFrame. Requests made during a Flush run on the following one.
func (q *FrameQueue) RequestFrame(fn FrameCallback) uint64 {
	q.seq++
	r := &frameRequest{id: q.seq, fn: fn}
	q.pending = append(q.pending, r)
	q.byID[r.id] = r
	return r.id
}

// CancelFrame prevents a scheduled callback from running, even if the
// current Flush has already collected it. Unknown ids are ignored.
func (q *FrameQueue) CancelFrame(id uint64) {
	if r, ok := q.byID[id]; ok {
		r.cancelled = true
		delete(q.byID, id)
	}
}

// Flush runs every callback scheduled before the call and returns how many
// ran.
func (q *FrameQueue) Flush(now time.Time) int {
	batch := q.pending
	q.pending = nil
	ran := 0
	for _, r := range batch {
		if r.cancelled {
			continue
		}
		delete(q.byID, r.id)
		r.cancelled = true
		r.fn(now)
		ran++
	}
	return ran
}

// Len is the number of callbacks waiting for the next Flush.
func (q *FrameQueue) Len() int { return len(q.byID) }
