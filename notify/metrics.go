package notify

import (
	"context"

	"github.com/sagarc03/storehouse"
)

// CommitObserver is satisfied by *metrics.ServerMetrics.
type CommitObserver interface {
	ObserveCommit(source string, size int64)
}

// Metrics counts committed files by source.
type Metrics struct {
	observer CommitObserver
}

func NewMetrics(observer CommitObserver) *Metrics {
	return &Metrics{observer: observer}
}

func (m *Metrics) Notify(_ context.Context, e storehouse.Event) {
	switch e.Kind {
	case storehouse.EventUploaded:
		m.observer.ObserveCommit(string(storehouse.SourceUpload), e.Size)
	case storehouse.EventFetched:
		m.observer.ObserveCommit(string(storehouse.SourceFetch), e.Size)
	}
}
