package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Services receive it via
// options so tests can swap in a silent logger.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
