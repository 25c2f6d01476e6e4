package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/audiolibrelab/voicememo/internal/service"
	"github.com/audiolibrelab/voicememo/internal/stream"
)

// console is the control context of the CLI. Session outcomes are posted
// to its mailbox by the engine and printed when the command drains it.
type console struct {
	out     io.Writer
	mailbox *stream.Mailbox
	svc     service.Service
	failed  error
}

func openConsole(out io.Writer) (*console, error) {
	c := &console{
		out:     out,
		mailbox: stream.NewMailbox(),
	}

	svc, err := service.New(cfg, c.mailbox, c.handle)
	if err != nil {
		return nil, fmt.Errorf("failed to start audio service: %w", err)
	}
	c.svc = svc
	return c, nil
}

func (c *console) handle(e service.Event) {
	switch e.Kind {
	case service.EventRecordingSucceeded:
		c.failed = nil
		fmt.Fprintf(c.out, "✅ Recorded %d seconds to %s\n", e.Seconds, e.Recording)
	case service.EventRecordingTooShort:
		fmt.Fprintf(c.out, "⚠️  Recording too short (%s, need more than %s), kept as %s\n",
			e.Elapsed.Round(10*time.Millisecond), cfg.Recording.MinDuration, e.Recording)
	case service.EventRecordingFailed:
		c.failed = errors.New("recording failed")
		fmt.Fprintf(c.out, "❌ Recording failed\n")
	case service.EventPlaybackFailed:
		c.failed = errors.New("playback failed")
		fmt.Fprintf(c.out, "❌ Playback of %s failed\n", e.Recording)
	}
}

// wait blocks until the worker is idle and then applies its outcomes.
func (c *console) wait(ctx context.Context) error {
	err := c.svc.Wait(ctx)
	c.mailbox.Drain()
	return err
}

func (c *console) Close() error {
	err := c.svc.Close()
	c.mailbox.Drain()
	return err
}

// readLines feeds trimmed input lines to a channel that is closed at EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return lines
}
