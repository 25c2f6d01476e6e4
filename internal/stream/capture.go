package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/multierr"

	"github.com/audiolibrelab/voicememo/internal/audio"
)

var errShortRead = errors.New("capture read returned no data")

// capture runs one recording session on the worker and reports its outcome.
func (e *Engine) capture(ctx context.Context, id uint64) {
	// Stopped while queued: no file, no device, no outcome.
	if !e.state.Is(Recording, id) || ctx.Err() != nil {
		e.logger.Debug("Recording cancelled before start", "session_id", id)
		return
	}

	rec := newRecordingSession()
	logger := e.logger.With("session", rec.ID.String(), "kind", "capture")

	var err error
	var catcher panics.Catcher
	catcher.Try(func() { err = e.record(ctx, id, rec, logger) })
	if r := catcher.Recovered(); r != nil {
		err = r.AsError()
	}
	e.state.Finish(Recording, id)

	if rec.StoppedAt.IsZero() {
		rec.StoppedAt = e.clock()
	}

	if err != nil {
		rec.Status = Failed
		logger.Error("Recording failed", "file", rec.Name, "error", err)
		e.post(e.notifier.OnRecordingFailed)
		return
	}
	rec.Status = Completed

	elapsed := rec.Elapsed()
	logger.Info("Recording finished", "file", rec.Name, "elapsed", elapsed, "bytes", rec.Bytes)

	if ctx.Err() != nil {
		return
	}
	if elapsed > e.minDuration {
		seconds := int(elapsed / time.Second)
		e.post(func() { e.notifier.OnRecordingSucceeded(seconds) })
		return
	}
	if n, ok := e.notifier.(ShortRecordingNotifier); ok {
		e.post(func() { n.OnRecordingTooShort(elapsed) })
	}
}

// record moves device buffers into a new recording file until the session
// loses the Recording state or the device fails.
func (e *Engine) record(ctx context.Context, id uint64, rec *RecordingSession, logger *slog.Logger) (err error) {
	cfg, err := e.deviceConfig(audio.Capture)
	if err != nil {
		return err
	}

	name, out, err := e.store.Create(e.clock())
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	rec.Name = name
	e.source.Store(&name)
	defer func() {
		if cerr := out.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close recording: %w", cerr))
		}
	}()

	device, err := e.backend.OpenCapture(cfg)
	if err != nil {
		return fmt.Errorf("open capture device: %w", err)
	}
	release := releaseOnce(device, logger)
	defer release()

	if err := device.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	rec.StartedAt = e.clock()
	logger.Info("Recording started", "file", name, "device_buffer", cfg.BufferSize, "chunk", cfg.ChunkSize)

	buf := e.buffer.Bytes()
	for e.state.Is(Recording, id) && ctx.Err() == nil {
		n, rerr := device.Read(buf)
		if n <= 0 {
			if rerr == nil {
				rerr = errShortRead
			}
			return fmt.Errorf("read capture device (%d): %w", n, rerr)
		}
		if _, werr := out.Write(buf[:n]); werr != nil {
			return fmt.Errorf("write recording: %w", werr)
		}
		rec.Bytes += int64(n)
		if rerr != nil {
			return fmt.Errorf("read capture device: %w", rerr)
		}
	}

	rec.StoppedAt = e.clock()
	release()
	return nil
}

// device is the teardown half shared by capture and playback handles.
type device interface {
	Stop() error
	Release() error
}

// releaseOnce stops and releases d on the first call only. Teardown errors
// are logged, never returned.
func releaseOnce(d device, logger *slog.Logger) func() {
	var once sync.Once
	return func() {
		once.Do(func() { releaseQuietly(d, logger) })
	}
}

func releaseQuietly(d device, logger *slog.Logger) {
	var err error
	var catcher panics.Catcher
	catcher.Try(func() {
		err = multierr.Append(d.Stop(), d.Release())
	})
	if r := catcher.Recovered(); r != nil {
		err = multierr.Append(err, r.AsError())
	}
	if err != nil {
		logger.Warn("Device teardown failed", "error", err)
	}
}
