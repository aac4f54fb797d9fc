// Package video owns the camera preview. Exactly one source holds the
// physical camera at a time: the local capture or the backend's MJPEG feed.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jwulff/bolt/internal/backend"
	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/logging"
)

// CameraSession is a live local capture.
type CameraSession interface {
	Close() error
}

// Camera opens local capture sessions.
type Camera interface {
	Open(ctx context.Context) (CameraSession, error)
}

// FeedReader streams a backend MJPEG feed.
type FeedReader interface {
	ReadFeed(ctx context.Context, url string, onFrame backend.FrameFunc) error
}

// State is a snapshot of the preview.
type State struct {
	Source  domain.VideoSource
	FeedURL string
	Frames  int
}

// Observer is notified on every source change and periodically as feed
// frames arrive. It must not call back into the Owner.
type Observer func(State)

const frameNotifyEvery = 15

// Owner is the single place the camera is acquired and released.
type Owner struct {
	camera Camera
	feeds  FeedReader
	log    *slog.Logger

	mu         sync.Mutex
	source     domain.VideoSource
	feedURL    string
	camSession CameraSession
	feedCancel context.CancelFunc
	feedDone   chan struct{}

	obsMu    sync.RWMutex
	observer Observer

	frames atomic.Int64
}

func NewOwner(camera Camera, feeds FeedReader, log *slog.Logger) *Owner {
	if camera == nil {
		camera = NoopCamera{}
	}
	return &Owner{
		camera: camera,
		feeds:  feeds,
		log:    log.With(slog.String("component", "video")),
		source: domain.VideoNone,
	}
}

// SetObserver registers the change callback.
func (o *Owner) SetObserver(fn Observer) {
	o.obsMu.Lock()
	o.observer = fn
	o.obsMu.Unlock()
}

func (o *Owner) currentObserver() Observer {
	o.obsMu.RLock()
	defer o.obsMu.RUnlock()
	return o.observer
}

// State returns the current preview state.
func (o *Owner) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

// Source returns who currently holds the camera.
func (o *Owner) Source() domain.VideoSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.source
}

// Transition moves the preview to target. Whatever is held is always released
// before the new source is acquired. feedURL is only used for VideoBackend.
// A local camera that fails to open leaves the preview at VideoNone.
func (o *Owner) Transition(ctx context.Context, target domain.VideoSource, feedURL string) error {
	o.mu.Lock()

	if target == o.source && (target != domain.VideoBackend || feedURL == o.feedURL) {
		o.mu.Unlock()
		return nil
	}

	o.releaseLocked()

	var err error
	switch target {
	case domain.VideoNone:
	case domain.VideoLocal:
		var sess CameraSession
		sess, err = o.camera.Open(ctx)
		if err != nil {
			o.log.Warn("local camera unavailable", logging.Err(err))
			err = fmt.Errorf("open camera: %w", err)
		} else {
			o.camSession = sess
			o.source = domain.VideoLocal
		}
	case domain.VideoBackend:
		o.attachFeedLocked(feedURL)
	default:
		err = fmt.Errorf("unknown video source %q", target)
	}

	state := o.stateLocked()
	o.mu.Unlock()

	if observer := o.currentObserver(); observer != nil {
		observer(state)
	}
	return err
}

// Release drops whatever source is held.
func (o *Owner) Release() {
	_ = o.Transition(context.Background(), domain.VideoNone, "")
}

func (o *Owner) releaseLocked() {
	switch o.source {
	case domain.VideoLocal:
		if o.camSession != nil {
			if err := o.camSession.Close(); err != nil {
				o.log.Warn("camera close failed", logging.Err(err))
			}
			o.camSession = nil
		}
	case domain.VideoBackend:
		if o.feedCancel != nil {
			o.feedCancel()
			<-o.feedDone
			o.feedCancel = nil
			o.feedDone = nil
		}
	}
	o.source = domain.VideoNone
	o.feedURL = ""
	o.frames.Store(0)
}

func (o *Owner) attachFeedLocked(url string) {
	o.source = domain.VideoBackend
	o.feedURL = url
	if o.feeds == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	o.feedCancel = cancel
	o.feedDone = done

	go func() {
		defer close(done)
		err := o.feeds.ReadFeed(ctx, url, func(n int) {
			o.frames.Store(int64(n))
			if n == 1 || n%frameNotifyEvery == 0 {
				o.notifyFrames(ctx, url, n)
			}
		})
		if err != nil {
			// The backend may not have opened the camera; the preview stays blank.
			o.log.Warn("backend feed ended", slog.String("url", url), logging.Err(err))
		}
	}()
}

// notifyFrames runs on the feed goroutine and must not take o.mu, since
// releaseLocked waits for that goroutine while holding it.
func (o *Owner) notifyFrames(ctx context.Context, url string, n int) {
	if ctx.Err() != nil {
		return
	}
	if observer := o.currentObserver(); observer != nil {
		observer(State{Source: domain.VideoBackend, FeedURL: url, Frames: n})
	}
}

func (o *Owner) stateLocked() State {
	return State{Source: o.source, FeedURL: o.feedURL, Frames: int(o.frames.Load())}
}
