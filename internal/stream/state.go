package stream

import (
	"sync/atomic"
)

// State is the process wide streaming state
type State uint8

const (
	Idle State = iota
	Recording
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Recording:
		return "RECORDING"
	case Playing:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// Snapshot pairs a state with the session that owns it. Idle has session 0.
type Snapshot struct {
	State   State
	Session uint64
}

// StateCell is shared between the control context and the worker. Every
// transition is a compare-and-swap on an immutable snapshot, so readers on
// either side always observe a complete, published value.
type StateCell struct {
	ptr atomic.Pointer[Snapshot]
}

func (c *StateCell) Load() Snapshot {
	if p := c.ptr.Load(); p != nil {
		return *p
	}
	return Snapshot{}
}

// CompareAndSwap moves from old to next if old is still current.
func (c *StateCell) CompareAndSwap(old, next Snapshot) bool {
	p := c.ptr.Load()
	var cur Snapshot
	if p != nil {
		cur = *p
	}
	if cur != old {
		return false
	}
	return c.ptr.CompareAndSwap(p, &next)
}

// Is reports whether session still holds state. A session that was stopped
// and replaced by a new one of the same kind no longer matches.
func (c *StateCell) Is(state State, session uint64) bool {
	return c.Load() == Snapshot{State: state, Session: session}
}

// Finish returns the cell to Idle if session still holds state.
func (c *StateCell) Finish(state State, session uint64) bool {
	return c.CompareAndSwap(Snapshot{State: state, Session: session}, Snapshot{})
}
