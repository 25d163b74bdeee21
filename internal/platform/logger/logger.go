package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so the portal's
// log pipeline can index fields without parsing.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
