package session

import (
	"context"

	"github.com/jwulff/bolt/internal/backend"
	"github.com/jwulff/bolt/internal/domain"
)

// Backend is the inference server contract. *backend.Client satisfies it.
type Backend interface {
	Health(ctx context.Context) error
	Start(ctx context.Context, mode domain.Mode) (backend.StartResponse, error)
	Stop(ctx context.Context, mode domain.Mode) error
	LatestResult(ctx context.Context) (backend.Result, error)
	FeedURL(mode domain.Mode) string
}

// Video moves the camera preview between sources. *video.Owner satisfies it.
type Video interface {
	Transition(ctx context.Context, target domain.VideoSource, feedURL string) error
}

// History records recognized text. *history.Store satisfies it.
type History interface {
	Add(t domain.EntryType, text string, confidence *float64) (domain.HistoryEntry, bool)
	SaveText(t domain.EntryType, text string, confidence *float64) (domain.HistoryEntry, error)
}

// EventSink receives session updates. Implementations must not block and
// must not call back into the controller.
type EventSink interface {
	SessionChanged(domain.SessionStatus)
	Toast(domain.Toast)
}
