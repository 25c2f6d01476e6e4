package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/audiolibrelab/voicememo/internal/audio"
	"github.com/audiolibrelab/voicememo/internal/config"
	"github.com/audiolibrelab/voicememo/internal/export"
	"github.com/audiolibrelab/voicememo/internal/storage"
	"github.com/audiolibrelab/voicememo/internal/stream"
)

// Service is the voice memo API used by the commands
type Service interface {
	// Recording operations
	ToggleRecording() error

	// Playback operations
	Play(name string) error
	StopPlayback()

	// Status operations
	GetStatus() (Status, string)
	Wait(ctx context.Context) error
	GetLastError() string

	// Information operations
	ListRecordings() ([]storage.Recording, error)
	GetRecordingInfo(name string) (*storage.Recording, error)
	ListDevices(dir audio.Direction) ([]audio.DeviceInfo, error)
	GetConfig() *config.Config

	// ExportRecording writes name, or the newest recording, as WAV
	ExportRecording(name, outPath string) (string, error)

	Close() error
}

// Status mirrors the stream state for display
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusRecording Status = "RECORDING"
	StatusPlaying   Status = "PLAYING"
)

type EventKind string

const (
	EventRecordingSucceeded EventKind = "recording_succeeded"
	EventRecordingTooShort  EventKind = "recording_too_short"
	EventRecordingFailed    EventKind = "recording_failed"
	EventPlaybackFailed     EventKind = "playback_failed"
)

// Event is a session outcome forwarded to the host.
type Event struct {
	Kind      EventKind
	Recording string
	Seconds   int
	Elapsed   time.Duration
}

// Listener receives events on whatever goroutine runs the dispatcher.
type Listener func(Event)

// VoiceMemoService wires the stream engine to the recording store and
// keeps the last reported error.
type VoiceMemoService struct {
	cfg      *config.Config
	backend  audio.Backend
	store    *storage.Store
	engine   *stream.Engine
	listener Listener

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates a service on the configured backend and recording directory.
// Outcomes are posted through dispatcher and then handed to listener.
func New(cfg *config.Config, dispatcher stream.Dispatcher, listener Listener) (Service, error) {
	backend, err := audio.NewBackend(cfg.Audio.Backend)
	if err != nil {
		return nil, err
	}

	s, err := newService(cfg, backend, storage.NewOS(cfg.Recording.Directory), dispatcher, listener)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

func newService(cfg *config.Config, backend audio.Backend, store *storage.Store, dispatcher stream.Dispatcher, listener Listener) (*VoiceMemoService, error) {
	if listener == nil {
		listener = func(Event) {}
	}

	s := &VoiceMemoService{
		cfg:      cfg,
		backend:  backend,
		store:    store,
		listener: listener,
	}

	engine, err := stream.New(stream.Options{
		Backend:     backend,
		Store:       store,
		Notifier:    s,
		Dispatcher:  dispatcher,
		BufferSize:  cfg.Audio.BufferSize,
		MinDuration: cfg.Recording.MinDuration,
		QueueSize:   cfg.Worker.QueueSize,
		Logger:      slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stream engine: %w", err)
	}
	s.engine = engine

	slog.Debug("Service created", "backend", backend.Type(), "directory", store.Dir())
	return s, nil
}

// ToggleRecording starts a recording when idle and stops the active one otherwise
func (s *VoiceMemoService) ToggleRecording() error {
	slog.Debug("Service.ToggleRecording called", "state", s.engine.State())
	if s.engine.State() == stream.Idle {
		s.clearLastError()
	}

	err := s.engine.ToggleRecording()
	if err != nil {
		slog.Error("Service.ToggleRecording failed", "error", err)
		s.setLastError(fmt.Sprintf("Failed to toggle recording: %v", err))
	}
	return err
}

// Play streams name, or the current recording when name is empty. Without
// a current recording the newest one in the store is used.
func (s *VoiceMemoService) Play(name string) error {
	if name == "" {
		if current, ok := s.engine.LastRecording(); ok {
			name = current
		} else {
			latest, err := s.store.Latest()
			if err != nil {
				return fmt.Errorf("no recording to play: %w", err)
			}
			name = latest.Name
		}
	}

	if _, err := s.store.Stat(name); err != nil {
		return err
	}

	if s.engine.State() != stream.Playing {
		s.engine.Select(name)
	}
	if err := s.engine.Play(); err != nil {
		s.setLastError(fmt.Sprintf("Failed to play %s: %v", name, err))
		return err
	}
	return nil
}

func (s *VoiceMemoService) StopPlayback() {
	s.engine.StopPlayback()
}

// GetStatus returns the current state and the recording it applies to
func (s *VoiceMemoService) GetStatus() (Status, string) {
	recording, _ := s.engine.LastRecording()

	switch s.engine.State() {
	case stream.Recording:
		return StatusRecording, recording
	case stream.Playing:
		return StatusPlaying, recording
	default:
		return StatusIdle, recording
	}
}

// Wait blocks until all submitted sessions have finished.
func (s *VoiceMemoService) Wait(ctx context.Context) error {
	return s.engine.Sync(ctx)
}

func (s *VoiceMemoService) ListRecordings() ([]storage.Recording, error) {
	return s.store.List()
}

func (s *VoiceMemoService) GetRecordingInfo(name string) (*storage.Recording, error) {
	if name == "" {
		return s.store.Latest()
	}
	return s.store.Stat(name)
}

func (s *VoiceMemoService) ListDevices(dir audio.Direction) ([]audio.DeviceInfo, error) {
	return s.backend.Devices(dir)
}

func (s *VoiceMemoService) GetConfig() *config.Config {
	return s.cfg
}

func (s *VoiceMemoService) ExportRecording(name, outPath string) (string, error) {
	rec, err := s.GetRecordingInfo(name)
	if err != nil {
		return "", err
	}
	return export.New(s.store).Export(rec.Name, outPath)
}

// Close stops the engine, cancelling any session in flight, then releases
// the backend.
func (s *VoiceMemoService) Close() error {
	s.engine.Close()
	return s.backend.Close()
}

// OnRecordingSucceeded implements stream.Notifier
func (s *VoiceMemoService) OnRecordingSucceeded(durationSeconds int) {
	s.clearLastError()
	s.emit(Event{Kind: EventRecordingSucceeded, Seconds: durationSeconds, Elapsed: time.Duration(durationSeconds) * time.Second})
}

// OnRecordingTooShort implements stream.ShortRecordingNotifier
func (s *VoiceMemoService) OnRecordingTooShort(elapsed time.Duration) {
	s.emit(Event{Kind: EventRecordingTooShort, Seconds: int(elapsed / time.Second), Elapsed: elapsed})
}

// OnRecordingFailed implements stream.Notifier
func (s *VoiceMemoService) OnRecordingFailed() {
	s.setLastError("Recording failed")
	s.emit(Event{Kind: EventRecordingFailed})
}

// OnPlaybackFailed implements stream.Notifier
func (s *VoiceMemoService) OnPlaybackFailed() {
	s.setLastError("Playback failed")
	s.emit(Event{Kind: EventPlaybackFailed})
}

func (s *VoiceMemoService) emit(event Event) {
	event.Recording, _ = s.engine.LastRecording()
	s.listener(event)
}

// GetLastError returns the last error message (thread-safe)
func (s *VoiceMemoService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// setLastError sets the last error message (thread-safe)
func (s *VoiceMemoService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

// clearLastError clears the last error message (thread-safe)
func (s *VoiceMemoService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}

// IsNotFound reports whether err means a recording does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, stream.ErrNoRecording)
}
