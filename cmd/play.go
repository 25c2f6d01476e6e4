package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/voicememo/internal/play"
	"github.com/audiolibrelab/voicememo/internal/storage"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [recording]",
	Short: "Play a recording on the default output device",
	Long: `Stream a recording to the default output device. Without an argument
the newest recording is played. Ctrl+C stops playback.

With --external the recording is handed to ffplay, mpv or aplay instead of
the audio backend.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		}

		if external, _ := cmd.Flags().GetBool("external"); external {
			return playExternal(cmd, name)
		}

		c, err := openConsole(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := c.svc.Play(name); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		_, current := c.svc.GetStatus()
		fmt.Fprintf(cmd.OutOrStdout(), "▶️  Playing %s... press Ctrl+C to stop\n", current)

		done := make(chan error, 1)
		go func() { done <- c.svc.Wait(context.Background()) }()

		select {
		case err = <-done:
		case <-ctx.Done():
			c.svc.StopPlayback()
			err = <-done
		}
		c.mailbox.Drain()

		if err != nil {
			return err
		}
		return c.failed
	},
}

func playExternal(cmd *cobra.Command, name string) error {
	store := storage.NewOS(cfg.Recording.Directory)

	var (
		rec *storage.Recording
		err error
	)
	if name != "" {
		rec, err = store.Stat(name)
	} else {
		rec, err = store.Latest()
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "▶️  Playing %s externally... press Ctrl+C to stop\n", rec.Name)
	return play.New(store.Params()).Play(ctx, rec.Path)
}

func init() {
	playCmd.Flags().Bool("external", false, "play with an external media player")
}
