package native

import "github.com/gogpu/wgpu/hal"

// submission tracks the resources of one queue submit until its fence
// signals.
type submission struct {
	id         uint64
	fence      hal.Fence
	cmdBuf     hal.CommandBuffer
	bindGroups []hal.BindGroup
	buffers    []hal.Buffer

	// release runs after the GPU is done with everything submitted so far.
	release []func()
}

// inflightQueue holds submissions in submit order. The queue executes in
// order, so completion is always a prefix.
type inflightQueue struct {
	pending []*submission
	nextID  uint64
}

func (q *inflightQueue) push(s *submission) {
	q.nextID++
	s.id = q.nextID
	q.pending = append(q.pending, s)
}

func (q *inflightQueue) len() int { return len(q.pending) }

// deferRelease runs fn once the latest submission completes, or now when
// nothing is in flight.
func (q *inflightQueue) deferRelease(fn func()) {
	if n := len(q.pending); n > 0 {
		last := q.pending[n-1]
		last.release = append(last.release, fn)
		return
	}
	fn()
}

// popCompleted removes and returns the completed prefix. done is called in
// order and stops at the first incomplete submission.
func (q *inflightQueue) popCompleted(done func(*submission) bool) []*submission {
	i := 0
	for i < len(q.pending) && done(q.pending[i]) {
		i++
	}
	if i == 0 {
		return nil
	}
	out := make([]*submission, i)
	copy(out, q.pending[:i])
	clear(q.pending[:i])
	q.pending = q.pending[i:]
	return out
}
