package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sourcegraph/conc/panics"

	"github.com/audiolibrelab/voicememo/internal/audio"
)

// playback runs one playback session on the worker. Only failures are
// reported; a playback that reaches the end of the file is silent.
func (e *Engine) playback(ctx context.Context, id uint64) {
	name, ok := e.LastRecording()
	if !ok {
		e.state.Finish(Playing, id)
		e.post(e.notifier.OnPlaybackFailed)
		return
	}

	session := newPlaybackSession(name)
	logger := e.logger.With("session", session.ID.String(), "kind", "playback")

	var err error
	var catcher panics.Catcher
	catcher.Try(func() { err = e.play(ctx, id, session, logger) })
	if r := catcher.Recovered(); r != nil {
		err = r.AsError()
	}
	e.state.Finish(Playing, id)

	if err != nil {
		session.Status = Failed
		logger.Error("Playback failed", "file", name, "error", err)
		e.post(e.notifier.OnPlaybackFailed)
		return
	}
	session.Status = Completed
	logger.Info("Playback finished", "file", name, "bytes", session.Bytes)
}

func (e *Engine) play(ctx context.Context, id uint64, session *PlaybackSession, logger *slog.Logger) error {
	cfg, err := e.deviceConfig(audio.Playback)
	if err != nil {
		return err
	}

	device, err := e.backend.OpenPlayback(cfg)
	if err != nil {
		return fmt.Errorf("open playback device: %w", err)
	}
	// Runs after the stream finalizer below, whatever way the loop exits.
	defer releaseQuietly(device, logger)

	return e.stream(ctx, id, session, device, logger)
}

// stream copies the recording to the device one buffer at a time.
func (e *Engine) stream(ctx context.Context, id uint64, session *PlaybackSession, device audio.PlaybackDevice, logger *slog.Logger) error {
	in, err := e.store.Open(session.Name)
	if err != nil {
		e.state.Finish(Playing, id)
		return fmt.Errorf("open recording: %w", err)
	}
	defer func() {
		e.state.Finish(Playing, id)
		if cerr := in.Close(); cerr != nil {
			logger.Warn("Closing recording failed", "error", cerr)
		}
	}()

	if err := device.Play(); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	logger.Info("Playback started", "file", session.Name)

	buf := e.buffer.Bytes()
	for {
		if !e.state.Is(Playing, id) || ctx.Err() != nil {
			logger.Info("Playback stopped", "bytes", session.Bytes)
			return nil
		}

		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := device.Write(buf[:n]); werr != nil {
				if audio.IsWriteFailure(werr) {
					return fmt.Errorf("write playback device: %w", werr)
				}
				logger.Warn("Playback write error ignored", "error", werr)
			}
			session.Bytes += int64(n)
		}

		switch {
		case errors.Is(rerr, io.EOF):
			return nil
		case rerr != nil:
			return fmt.Errorf("read recording: %w", rerr)
		case n == 0:
			return nil
		}
	}
}
