package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// NewLogger builds the CLI logger: text on w at the configured level (debug
// with --verbose) and, when a log file is set, JSON lines appended to it at
// debug level. The returned close function releases the file.
func NewLogger(w io.Writer, opts *RootOptions) (*slog.Logger, func() error, error) {
	level := opts.LogLevel
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}
	closer := func() error { return nil }

	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = f.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}
