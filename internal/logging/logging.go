package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Configure sets the default slog logger.
//
// Valid levels are "none", "error", "warn", "info" and "debug". A verbose
// level above zero forces debug output, even over "none". With an empty
// logFile records go to w as text; otherwise they are written to logFile as
// JSON and the opened file is returned so the caller can close it.
func Configure(level string, verbose int, logFile string, w io.Writer) (*os.File, error) {
	lvl, enabled, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose > 0 {
		lvl, enabled = slog.LevelDebug, true
	}

	if !enabled {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, opts)))
	return f, nil
}

func parseLevel(level string) (slog.Level, bool, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "none":
		return 0, false, nil
	case "error":
		return slog.LevelError, true, nil
	case "warn":
		return slog.LevelWarn, true, nil
	case "", "info":
		return slog.LevelInfo, true, nil
	case "debug":
		return slog.LevelDebug, true, nil
	default:
		return 0, false, fmt.Errorf("unexpected log level %q", level)
	}
}
