package id

import "github.com/benz9527/xpal/lib/infra"

// InvalidHandle is returned by HandleManager.Next if every handle is in use.
// Valid handles are always non-negative.
const InvalidHandle = -1

// InUseFunc reports whether the candidate denotes a live resource.
type InUseFunc[H infra.Signed] func(candidate H) bool

// recycleState only moves from fresh to mayRecycle. Once the handles
// wrapped around, they are able to wrap around again, so the in-use
// check is never skipped afterwards.
type recycleState uint8

const (
	fresh recycleState = iota
	mayRecycle
)

// HandleManager hands out small integer handles. Handles grow
// monotonically until the limit, then wrap to 0 and recycle the
// handles that the in-use predicate reports as free.
//
// It is not thread-safe, the owner has to serialize the calls.
type HandleManager[H infra.Signed] struct {
	inUse InUseFunc[H]
	last  H
	limit H
	state recycleState
}

type IntHandleManager = HandleManager[int32]

// NewHandleManager creates a manager with handles in [0, maxValue].
// A negative maxValue means the full positive range of H.
func NewHandleManager[H infra.Signed](maxValue H, inUse InUseFunc[H]) *HandleManager[H] {
	m := &HandleManager[H]{}
	m.Init(maxValue, inUse)
	return m
}

func (m *HandleManager[H]) Init(maxValue H, inUse InUseFunc[H]) {
	m.last = InvalidHandle
	m.limit = maxValue
	if maxValue < 0 {
		m.limit = infra.MaxSigned[H]()
	}
	m.inUse = inUse
	m.state = fresh
}

// LastHandle is the most recently issued handle, or InvalidHandle.
func (m *HandleManager[H]) LastHandle() H {
	return m.last
}

// Recycling reports whether the handles have wrapped around at least once.
func (m *HandleManager[H]) Recycling() bool {
	return m.state == mayRecycle
}

func (m *HandleManager[H]) advance(h H) (next H, wrapped bool) {
	if h < 0 || h >= m.limit {
		return 0, true
	}
	return h + 1, false
}

func (m *HandleManager[H]) isInUse(h H) bool {
	return m.inUse != nil && m.inUse(h)
}

// Next returns the next free handle, or InvalidHandle if the whole range
// is in use. The predicate is never invoked before the first wraparound.
// On exhaustion the last handle is kept, the next call starts over from
// the same point because a resource may be released in between.
func (m *HandleManager[H]) Next() H {
	candidate, wrapped := m.advance(m.last)
	if m.last < 0 {
		// Nothing issued yet.
		candidate, wrapped = 0, false
	}
	if wrapped {
		m.state = mayRecycle
	}

	if m.state == mayRecycle {
		// A full cycle, the last handle itself may have been released.
		start := candidate
		for m.isInUse(candidate) {
			if candidate, _ = m.advance(candidate); candidate == start {
				return InvalidHandle
			}
		}
	}
	m.last = candidate
	return candidate
}
