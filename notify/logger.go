package notify

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/sagarc03/storehouse"
)

// Logger logs every event at info level.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (l *Logger) Notify(ctx context.Context, e storehouse.Event) {
	attrs := []any{
		"path", e.Path,
		"location", e.Location,
	}
	if e.URL != "" {
		attrs = append(attrs, "url", e.URL)
	}
	if e.ContentType != "" {
		attrs = append(attrs, "type", e.ContentType)
	}
	if e.Encoding != "" {
		attrs = append(attrs, "encoding", e.Encoding)
	}
	if e.Kind.Completed() {
		attrs = append(attrs, "size", humanSize(e.Size), "bytes", e.Size)
	}

	l.logger.InfoContext(ctx, string(e.Kind), attrs...)
}

func humanSize(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(n))
}
