package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/logging"
)

// ErrUnknownMode is returned for an entry type with no controller.
var ErrUnknownMode = errors.New("unknown capture mode")

// Coordinator owns every mode's controller and the camera between them.
// At most one mode is live; starting one stops the others first and waits
// for any stop already in flight.
type Coordinator struct {
	gate        *cameraGate
	log         *slog.Logger
	controllers []*Controller

	// startMu serializes starts so two modes never race for the camera.
	startMu sync.Mutex

	mu   sync.Mutex
	page domain.EntryType // mode page currently shown, empty elsewhere
}

func NewCoordinator(video Video, log *slog.Logger, controllers ...*Controller) *Coordinator {
	gate := &cameraGate{video: video, controllers: controllers}
	for _, ctrl := range controllers {
		ctrl.gate = gate
	}
	return &Coordinator{
		gate:        gate,
		log:         log.With(slog.String("component", "coordinator")),
		controllers: controllers,
	}
}

// cameraGate serializes camera transitions across the controllers of one
// coordinator. A session claims the camera unconditionally; a session that
// ends only hands it off while no mode is starting or live.
type cameraGate struct {
	mu          sync.Mutex
	video       Video
	controllers []*Controller
}

func (g *cameraGate) claim(ctx context.Context, target domain.VideoSource, feedURL string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.video.Transition(ctx, target, feedURL)
}

func (g *cameraGate) handOff(ctx context.Context, target domain.VideoSource) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ctrl := range g.controllers {
		switch ctrl.Status().State {
		case domain.SessionStarting, domain.SessionLive:
			return nil
		}
	}
	return g.video.Transition(ctx, target, "")
}

// Controller returns the controller for t.
func (c *Coordinator) Controller(t domain.EntryType) (*Controller, error) {
	for _, ctrl := range c.controllers {
		if ctrl.mode.Type == t {
			return ctrl, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, t)
}

// Statuses returns every mode's status in registration order.
func (c *Coordinator) Statuses() []domain.SessionStatus {
	out := make([]domain.SessionStatus, 0, len(c.controllers))
	for _, ctrl := range c.controllers {
		out = append(out, ctrl.Status())
	}
	return out
}

// Start stops every other mode, then starts t.
func (c *Coordinator) Start(ctx context.Context, t domain.EntryType) error {
	ctrl, err := c.Controller(t)
	if err != nil {
		return err
	}

	c.startMu.Lock()
	defer c.startMu.Unlock()

	for _, other := range c.controllers {
		if other != ctrl {
			_ = other.stop(ctx, false)
		}
	}
	return ctrl.Start(ctx)
}

// Stop stops t and restores the local camera.
func (c *Coordinator) Stop(ctx context.Context, t domain.EntryType) error {
	ctrl, err := c.Controller(t)
	if err != nil {
		return err
	}
	return ctrl.Stop(ctx)
}

// Toggle starts t when idle and stops it otherwise.
func (c *Coordinator) Toggle(ctx context.Context, t domain.EntryType) error {
	ctrl, err := c.Controller(t)
	if err != nil {
		return err
	}
	if ctrl.Status().State == domain.SessionIdle {
		return c.Start(ctx, t)
	}
	return ctrl.Stop(ctx)
}

// SaveCurrentText saves t's displayed text to history.
func (c *Coordinator) SaveCurrentText(t domain.EntryType) error {
	ctrl, err := c.Controller(t)
	if err != nil {
		return err
	}
	return ctrl.SaveCurrentText()
}

// ClearText empties t's displayed text.
func (c *Coordinator) ClearText(t domain.EntryType) error {
	ctrl, err := c.Controller(t)
	if err != nil {
		return err
	}
	ctrl.ClearText()
	return nil
}

// EnterPage is called when a mode page is shown: sessions of other modes end
// and the local camera preview is acquired unless a session is starting or
// live.
func (c *Coordinator) EnterPage(ctx context.Context, t domain.EntryType) error {
	ctrl, err := c.Controller(t)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.page = t
	c.mu.Unlock()

	if err := c.stopAll(ctx, ctrl); err != nil {
		return err
	}
	return c.gate.handOff(ctx, domain.VideoLocal)
}

// LeavePage is called when navigating away from a mode page.
func (c *Coordinator) LeavePage(ctx context.Context) error {
	c.mu.Lock()
	c.page = ""
	c.mu.Unlock()
	return c.StopAll(ctx)
}

// Page returns the mode page last entered, or empty.
func (c *Coordinator) Page() domain.EntryType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// StopAll stops every session in parallel and releases the camera. It runs
// on navigation away from a mode page and on exit. A session started
// concurrently keeps the camera.
func (c *Coordinator) StopAll(ctx context.Context) error {
	err := c.stopAll(ctx, nil)
	if verr := c.gate.handOff(ctx, domain.VideoNone); verr != nil && err == nil {
		err = verr
	}
	return err
}

func (c *Coordinator) stopAll(ctx context.Context, except *Controller) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, ctrl := range c.controllers {
		if ctrl == except {
			continue
		}
		g.Go(func() error {
			return ctrl.stop(gctx, false)
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Warn("stop sessions failed", logging.Err(err))
		return err
	}
	return nil
}
