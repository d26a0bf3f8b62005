package logging

import (
	"log/slog"
	"os"
)

// Init installs the default slog logger. Without verbose only warnings
// and errors are emitted; verbose enables debug output, which is where
// rule-evaluation skips and fetch retries are reported.
func Init(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
