// Package session drives capture sessions against the inference backend:
// one parameterized Controller per mode, coordinated so only one mode is
// live at a time.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jwulff/bolt/internal/backend"
	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/history"
	"github.com/jwulff/bolt/internal/logging"
)

// Config controls polling behaviour.
type Config struct {
	PollInterval time.Duration
	Warmup       time.Duration
}

const defaultPollInterval = time.Second

// Controller runs the session of one capture mode.
type Controller struct {
	mode    domain.Mode
	backend Backend
	video   Video
	history History
	events  EventSink
	log     *slog.Logger
	cfg     Config
	now     func() time.Time

	mu         sync.Mutex
	state      domain.SessionState
	text       string
	confidence float64
	warmUntil  time.Time
	active     *activeSession
	stopDone   chan struct{} // closed when the in-flight stop finishes

	// gate is shared by the controllers of one Coordinator; nil when the
	// controller runs alone.
	gate *cameraGate
}

type activeSession struct {
	cancel    context.CancelFunc
	startDone chan struct{}
	pollDone  chan struct{} // set once live; guarded by Controller.mu
}

func NewController(
	mode domain.Mode,
	be Backend,
	video Video,
	hist History,
	events EventSink,
	log *slog.Logger,
	cfg Config,
) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Controller{
		mode:       mode,
		backend:    be,
		video:      video,
		history:    hist,
		events:     events,
		log:        log.With(slog.String("component", "session"), slog.String("mode", string(mode.Type))),
		cfg:        cfg,
		now:        time.Now,
		state:      domain.SessionIdle,
		confidence: mode.DefaultConfidence,
	}
}

// Mode returns the descriptor this controller drives.
func (c *Controller) Mode() domain.Mode { return c.mode }

// Status returns a snapshot of the session.
func (c *Controller) Status() domain.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Start brings the session live. It is a no-op unless the session is idle.
// A backend that is unreachable or refuses to start produces one error toast
// and leaves the session idle with the local camera restored. Start blocks
// until the session is live or has failed.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.SessionIdle {
		c.mu.Unlock()
		return nil
	}
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	active := &activeSession{cancel: cancel, startDone: make(chan struct{})}
	c.active = active
	c.state = domain.SessionStarting
	c.text = ""
	c.confidence = c.mode.DefaultConfidence
	status := c.statusLocked()
	c.mu.Unlock()

	defer close(active.startDone)
	c.events.SessionChanged(status)

	// The backend needs the physical camera.
	if err := c.claimCamera(sessCtx, domain.VideoNone, ""); err != nil {
		c.log.Warn("release camera failed", logging.Err(err))
	}

	if err := c.backend.Health(sessCtx); err != nil {
		return c.failStart(sessCtx, active, "health check", err)
	}
	resp, err := c.backend.Start(sessCtx, c.mode)
	if err != nil {
		return c.failStart(sessCtx, active, "start", err)
	}
	attrs := []any{slog.String("status", resp.Status)}
	if resp.Error != "" {
		attrs = append(attrs, slog.String("backend_error", resp.Error))
	}
	c.log.Info("backend started", attrs...)

	c.mu.Lock()
	if c.active != active {
		// Stopped while starting.
		c.mu.Unlock()
		return nil
	}
	c.state = domain.SessionLive
	c.warmUntil = c.now().Add(c.cfg.Warmup)
	pollDone := make(chan struct{})
	active.pollDone = pollDone
	status = c.statusLocked()
	c.mu.Unlock()

	if err := c.claimCamera(sessCtx, domain.VideoBackend, c.backend.FeedURL(c.mode)); err != nil {
		c.log.Warn("attach backend feed failed", logging.Err(err))
	}
	c.events.SessionChanged(status)
	go c.poll(sessCtx, pollDone)
	return nil
}

func (c *Controller) failStart(ctx context.Context, active *activeSession, step string, err error) error {
	c.mu.Lock()
	if c.active != active || ctx.Err() != nil {
		c.mu.Unlock()
		return nil
	}
	c.active = nil
	c.state = domain.SessionIdle
	status := c.statusLocked()
	c.mu.Unlock()
	active.cancel()

	c.log.Warn("session start failed", slog.String("step", step), logging.Err(err))
	if verr := c.handOffCamera(context.Background(), domain.VideoLocal); verr != nil {
		c.log.Warn("restore camera failed", logging.Err(verr))
	}
	c.events.Toast(domain.Toast{Level: domain.ToastError, Message: "Failed to start " + c.mode.Label})
	c.events.SessionChanged(status)
	return err
}

// Stop ends the session and restores the local camera. It is safe to call in
// any state; a call that finds a stop already in flight waits for it. Polling
// has fully stopped before the backend is told to stop, and a failure of that
// notification is logged only.
func (c *Controller) Stop(ctx context.Context) error {
	return c.stop(ctx, true)
}

func (c *Controller) stop(ctx context.Context, restoreCamera bool) error {
	c.mu.Lock()
	active := c.active
	if active == nil {
		done := c.stopDone
		c.mu.Unlock()
		if done == nil {
			return nil
		}
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.active = nil
	c.state = domain.SessionStopping
	done := make(chan struct{})
	c.stopDone = done
	status := c.statusLocked()
	c.mu.Unlock()
	defer close(done)
	c.events.SessionChanged(status)

	active.cancel()
	<-active.startDone
	c.mu.Lock()
	pollDone := active.pollDone
	c.mu.Unlock()
	if pollDone != nil {
		<-pollDone
	}

	if err := c.backend.Stop(ctx, c.mode); err != nil {
		c.log.Warn("backend stop failed", logging.Err(err))
	}

	target := domain.VideoNone
	if restoreCamera {
		target = domain.VideoLocal
	}
	if err := c.handOffCamera(ctx, target); err != nil {
		c.log.Warn("restore camera failed", logging.Err(err))
	}

	c.mu.Lock()
	c.state = domain.SessionIdle
	c.stopDone = nil
	c.warmUntil = time.Time{}
	status = c.statusLocked()
	c.mu.Unlock()
	c.events.SessionChanged(status)
	return nil
}

// SaveCurrentText saves the displayed text to history. Saving text that is
// already saved produces an info toast and no new entry.
func (c *Controller) SaveCurrentText() error {
	c.mu.Lock()
	text, confidence := c.text, c.confidence
	c.mu.Unlock()

	_, err := c.history.SaveText(c.mode.Type, text, &confidence)
	switch {
	case err == nil:
		c.events.Toast(domain.Toast{Level: domain.ToastSuccess, Message: "Saved to Recent Saves"})
	case errors.Is(err, history.ErrAlreadySaved):
		c.events.Toast(domain.Toast{Level: domain.ToastInfo, Message: "Already saved"})
	case errors.Is(err, history.ErrEmptyText):
		c.events.Toast(domain.Toast{Level: domain.ToastInfo, Message: "Nothing to save yet"})
	default:
		c.events.Toast(domain.Toast{Level: domain.ToastError, Message: "Save failed"})
	}
	return err
}

// claimCamera moves the camera to target for this session unconditionally.
func (c *Controller) claimCamera(ctx context.Context, target domain.VideoSource, feedURL string) error {
	if c.gate != nil {
		return c.gate.claim(ctx, target, feedURL)
	}
	return c.video.Transition(ctx, target, feedURL)
}

// handOffCamera gives the camera up after this session ends. Under a
// coordinator it is skipped while another mode is starting or live.
func (c *Controller) handOffCamera(ctx context.Context, target domain.VideoSource) error {
	if c.gate != nil {
		return c.gate.handOff(ctx, target)
	}
	return c.video.Transition(ctx, target, "")
}

// ClearText empties the displayed text without touching history.
func (c *Controller) ClearText() {
	c.mu.Lock()
	c.text = ""
	status := c.statusLocked()
	c.mu.Unlock()
	c.events.SessionChanged(status)
}

// poll runs one tick at a time until ctx is cancelled.
func (c *Controller) poll(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	var warm <-chan time.Time
	if c.cfg.Warmup > 0 {
		timer := time.NewTimer(c.cfg.Warmup)
		defer timer.Stop()
		warm = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-warm:
			warm = nil
			c.events.SessionChanged(c.Status())
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	res, err := c.backend.LatestResult(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Debug("poll failed", logging.Err(err))
		}
		return
	}
	if res.Type != c.mode.ResultType {
		return
	}
	text := backend.NormalizeText(res.Text)
	if text == "" {
		return
	}
	confidence := c.mode.DefaultConfidence
	if res.Confidence != nil {
		confidence = *res.Confidence
	}

	c.mu.Lock()
	if ctx.Err() != nil || c.state != domain.SessionLive {
		c.mu.Unlock()
		return
	}
	c.text = text
	c.confidence = confidence
	c.history.Add(c.mode.Type, text, &confidence)
	status := c.statusLocked()
	c.mu.Unlock()

	c.events.SessionChanged(status)
}

func (c *Controller) statusLocked() domain.SessionStatus {
	return domain.SessionStatus{
		Mode:       c.mode.Type,
		State:      c.state,
		Text:       c.text,
		Confidence: c.confidence,
		WarmingUp:  c.state == domain.SessionLive && c.now().Before(c.warmUntil),
	}
}
