package stream

import (
	"context"
	"sync"
	"time"
)

// Notifier receives session outcomes. Calls always arrive through the
// Dispatcher, never on the worker.
type Notifier interface {
	OnRecordingSucceeded(durationSeconds int)
	OnRecordingFailed()
	OnPlaybackFailed()
}

// ShortRecordingNotifier is optionally implemented by a Notifier that wants
// to hear about recordings that ended without reaching the minimum
// duration. Without it such recordings complete silently.
type ShortRecordingNotifier interface {
	OnRecordingTooShort(elapsed time.Duration)
}

// Dispatcher runs notification callbacks on the control context.
// Post must not block.
type Dispatcher interface {
	Post(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Post(fn func()) {
	f(fn)
}

// Mailbox is an unbounded Dispatcher drained by the control context.
type Mailbox struct {
	mu      sync.Mutex
	pending []func()
	ready   chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

func (m *Mailbox) Post(fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled when Post added work since the last signal.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// Drain runs every pending callback on the calling goroutine.
func (m *Mailbox) Drain() int {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

// Run drains the mailbox until ctx is done.
func (m *Mailbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			m.Drain()
			return ctx.Err()
		case <-m.ready:
			m.Drain()
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) OnRecordingSucceeded(int) {}
func (nopNotifier) OnRecordingFailed()       {}
func (nopNotifier) OnPlaybackFailed()        {}
