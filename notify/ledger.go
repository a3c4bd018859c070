package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/sagarc03/storehouse"
)

// Ledger records uploaded and fetched files into a LedgerRepo. Requested
// events are ignored.
type Ledger struct {
	repo    storehouse.LedgerRepo
	logger  *slog.Logger
	timeout time.Duration
}

func NewLedger(repo storehouse.LedgerRepo, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{repo: repo, logger: logger, timeout: 10 * time.Second}
}

func (l *Ledger) Notify(ctx context.Context, e storehouse.Event) {
	var source storehouse.Source
	switch e.Kind {
	case storehouse.EventUploaded:
		source = storehouse.SourceUpload
	case storehouse.EventFetched:
		source = storehouse.SourceFetch
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	_, created, err := l.repo.Record(ctx, storehouse.LedgerRecord{
		Path:        e.Path,
		Location:    e.Location,
		Source:      source,
		URL:         e.URL,
		ContentType: e.ContentType,
		Encoding:    e.Encoding,
		SizeBytes:   e.Size,
	})
	if err != nil {
		l.logger.ErrorContext(ctx, "record ledger entry", "path", e.Path, "error", err)
		return
	}

	l.logger.DebugContext(ctx, "ledger entry recorded", "path", e.Path, "created", created)
}
