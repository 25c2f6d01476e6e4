package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/audiolibrelab/voicememo/internal/audio"
)

var (
	ErrBusy        = errors.New("stream: playback in progress")
	ErrNoRecording = errors.New("stream: no recording to play")
)

// DefaultMinDuration is the length a recording must exceed to count as a success.
const DefaultMinDuration = 3 * time.Second

// Store holds recordings as raw PCM.
type Store interface {
	// Create opens a new recording named after startedAt for writing.
	Create(startedAt time.Time) (name string, w io.WriteCloser, err error)
	Open(name string) (io.ReadCloser, error)
}

type Options struct {
	Backend audio.Backend
	Store   Store

	// Notifier receives outcomes through Dispatcher. Optional.
	Notifier Notifier
	// Dispatcher defaults to running each callback on a new goroutine.
	Dispatcher Dispatcher

	// BufferSize is the Fixed Buffer capacity in bytes.
	BufferSize  int
	MinDuration time.Duration
	QueueSize   int

	Clock  func() time.Time
	Logger *slog.Logger
}

// Engine is the control surface of the streaming core. Its methods never
// block on device or file I/O: they flip the state cell and hand sessions
// to the worker.
type Engine struct {
	backend     audio.Backend
	store       Store
	notifier    Notifier
	dispatcher  Dispatcher
	params      audio.Params
	buffer      *audio.Buffer
	minDuration time.Duration
	clock       func() time.Time
	logger      *slog.Logger

	state  StateCell
	worker *Worker
	nextID atomic.Uint64
	source atomic.Pointer[string]
}

func New(opts Options) (*Engine, error) {
	if opts.Backend == nil {
		return nil, errors.New("stream: backend is required")
	}
	if opts.Store == nil {
		return nil, errors.New("stream: store is required")
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = audio.BufferSize
	}

	params := audio.DefaultParams()
	if opts.BufferSize < 0 || opts.BufferSize%params.FrameSize() != 0 {
		return nil, fmt.Errorf("stream: buffer size %d is not a positive multiple of %d", opts.BufferSize, params.FrameSize())
	}
	if opts.MinDuration < 0 {
		return nil, fmt.Errorf("stream: negative minimum duration %s", opts.MinDuration)
	}
	if opts.MinDuration == 0 {
		opts.MinDuration = DefaultMinDuration
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = DispatcherFunc(func(fn func()) { go fn() })
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Engine{
		backend:     opts.Backend,
		store:       opts.Store,
		notifier:    opts.Notifier,
		dispatcher:  opts.Dispatcher,
		params:      params,
		buffer:      audio.NewBuffer(opts.BufferSize),
		minDuration: opts.MinDuration,
		clock:       opts.Clock,
		logger:      opts.Logger,
		worker:      NewWorker(opts.QueueSize, opts.Logger),
	}, nil
}

// ToggleRecording stops the active recording, or starts a new one when idle.
func (e *Engine) ToggleRecording() error {
	for {
		cur := e.state.Load()
		switch cur.State {
		case Recording:
			if e.state.CompareAndSwap(cur, Snapshot{}) {
				e.logger.Debug("Recording stop requested", "session_id", cur.Session)
				return nil
			}
		case Playing:
			return ErrBusy
		default:
			next := Snapshot{State: Recording, Session: e.nextID.Add(1)}
			if !e.state.CompareAndSwap(cur, next) {
				continue
			}
			if err := e.worker.Submit(func(ctx context.Context) { e.capture(ctx, next.Session) }); err != nil {
				e.state.Finish(Recording, next.Session)
				return fmt.Errorf("submit capture: %w", err)
			}
			return nil
		}
	}
}

// Play streams the current recording to the playback device. A request while
// already playing is ignored. An active recording is stopped first.
func (e *Engine) Play() error {
	for {
		cur := e.state.Load()
		if cur.State == Playing {
			e.logger.Debug("Playback already in progress", "session_id", cur.Session)
			return nil
		}
		if e.source.Load() == nil {
			return ErrNoRecording
		}

		next := Snapshot{State: Playing, Session: e.nextID.Add(1)}
		if !e.state.CompareAndSwap(cur, next) {
			continue
		}
		if err := e.worker.Submit(func(ctx context.Context) { e.playback(ctx, next.Session) }); err != nil {
			e.state.Finish(Playing, next.Session)
			return fmt.Errorf("submit playback: %w", err)
		}
		return nil
	}
}

// StopPlayback ends the active playback after the chunk in flight. The
// session ends quietly, without a failure notification.
func (e *Engine) StopPlayback() {
	for {
		cur := e.state.Load()
		if cur.State != Playing || e.state.CompareAndSwap(cur, Snapshot{}) {
			return
		}
	}
}

// Select makes name the recording Play streams next.
func (e *Engine) Select(name string) {
	e.source.Store(&name)
}

// LastRecording returns the recording Play would stream.
func (e *Engine) LastRecording() (string, bool) {
	if p := e.source.Load(); p != nil {
		return *p, true
	}
	return "", false
}

func (e *Engine) State() State {
	return e.state.Load().State
}

// Sync waits until every session submitted so far has finished.
func (e *Engine) Sync(ctx context.Context) error {
	return e.worker.Sync(ctx)
}

// Close cancels the running session, drops queued ones and stops the worker.
func (e *Engine) Close() {
	e.worker.Close()
	e.state.ptr.Store(&Snapshot{})
}

func (e *Engine) post(fn func()) {
	e.dispatcher.Post(fn)
}

func (e *Engine) deviceConfig(dir audio.Direction) (audio.DeviceConfig, error) {
	minimum, err := e.backend.MinBufferSize(dir, e.params)
	if err != nil {
		return audio.DeviceConfig{}, fmt.Errorf("query %s buffer size: %w", dir, err)
	}
	return audio.DeviceConfig{
		Params:     e.params,
		BufferSize: audio.DeviceBufferSize(minimum, e.buffer.Cap()),
		ChunkSize:  e.buffer.Cap(),
	}, nil
}
