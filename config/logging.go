package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// InitLogger builds the process logger: JSON records appended to aide.log in
// the data directory. Debug level is gated by AIDE_DEBUG, the same way the
// data dir and model are gated by their environment variables.
func InitLogger(dataDir string) *slog.Logger {
	level := slog.LevelInfo
	if CheckDebug() {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	logPath := filepath.Join(dataDir, "aide.log")
	// 0600 - log lines may include message fragments
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open log file at %s: %v\n", logPath, err)
	} else {
		out = f
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}
