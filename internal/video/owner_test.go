package video

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jwulff/bolt/internal/backend"
	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/logging"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeCamera struct {
	rec     *recorder
	openErr error
}

func (c *fakeCamera) Open(context.Context) (CameraSession, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	c.rec.add("camera-open")
	return &fakeCameraSession{rec: c.rec}, nil
}

type fakeCameraSession struct{ rec *recorder }

func (s *fakeCameraSession) Close() error {
	s.rec.add("camera-close")
	return nil
}

type fakeFeeds struct {
	rec    *recorder
	frames int
}

func (f *fakeFeeds) ReadFeed(ctx context.Context, url string, onFrame backend.FrameFunc) error {
	f.rec.add("feed-open " + url)
	for i := 1; i <= f.frames; i++ {
		onFrame(i)
	}
	<-ctx.Done()
	f.rec.add("feed-close")
	return nil
}

func TestOwnerReleasesCameraBeforeBackendFeed(t *testing.T) {
	rec := &recorder{}
	owner := NewOwner(&fakeCamera{rec: rec}, &fakeFeeds{rec: rec}, logging.Discard())

	if err := owner.Transition(context.Background(), domain.VideoLocal, ""); err != nil {
		t.Fatalf("local: %v", err)
	}
	if owner.Source() != domain.VideoLocal {
		t.Fatalf("source = %s, want local", owner.Source())
	}

	if err := owner.Transition(context.Background(), domain.VideoBackend, "http://b/video_feed"); err != nil {
		t.Fatalf("backend: %v", err)
	}
	if owner.Source() != domain.VideoBackend {
		t.Fatalf("source = %s, want backend", owner.Source())
	}

	waitFor(t, func() bool { return len(rec.snapshot()) >= 3 })
	got := rec.snapshot()
	want := []string{"camera-open", "camera-close", "feed-open http://b/video_feed"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want prefix %v", got, want)
		}
	}

	owner.Release()
	if owner.Source() != domain.VideoNone {
		t.Fatalf("source after release = %s", owner.Source())
	}
	got = rec.snapshot()
	if got[len(got)-1] != "feed-close" {
		t.Fatalf("feed not closed on release: %v", got)
	}
}

func TestOwnerCameraFailureLeavesNone(t *testing.T) {
	rec := &recorder{}
	owner := NewOwner(&fakeCamera{rec: rec, openErr: errors.New("device busy")}, nil, logging.Discard())

	var states []State
	owner.SetObserver(func(s State) { states = append(states, s) })

	if err := owner.Transition(context.Background(), domain.VideoLocal, ""); err == nil {
		t.Fatal("expected camera error")
	}
	if owner.Source() != domain.VideoNone {
		t.Fatalf("source = %s, want none", owner.Source())
	}
	if len(states) != 1 || states[0].Source != domain.VideoNone {
		t.Fatalf("observer states = %+v", states)
	}
}

func TestOwnerSameSourceIsNoop(t *testing.T) {
	rec := &recorder{}
	owner := NewOwner(&fakeCamera{rec: rec}, nil, logging.Discard())

	_ = owner.Transition(context.Background(), domain.VideoLocal, "")
	_ = owner.Transition(context.Background(), domain.VideoLocal, "")

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("events = %v, want single open", got)
	}
}

func TestOwnerReportsFrames(t *testing.T) {
	rec := &recorder{}
	owner := NewOwner(nil, &fakeFeeds{rec: rec, frames: 30}, logging.Discard())

	var mu sync.Mutex
	maxFrames := 0
	owner.SetObserver(func(s State) {
		mu.Lock()
		if s.Frames > maxFrames {
			maxFrames = s.Frames
		}
		mu.Unlock()
	})

	_ = owner.Transition(context.Background(), domain.VideoBackend, "http://b/video_feed_lip")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return maxFrames == 30
	})
	if owner.State().Frames != 30 {
		t.Errorf("frames = %d, want 30", owner.State().Frames)
	}
	owner.Release()
	if owner.State().Frames != 0 {
		t.Errorf("frames after release = %d, want 0", owner.State().Frames)
	}
}

func TestFFMPEGCameraArgs(t *testing.T) {
	cam, err := NewFFMPEGCamera("ffmpeg -thread_queue_size 64", "", "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	args := cam.Args()
	if args[0] != "ffmpeg" || args[1] != "-thread_queue_size" || args[2] != "64" {
		t.Fatalf("args prefix = %v", args[:3])
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"-f v4l2", "-i /dev/video0", "-f null"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestFFMPEGCameraExitsEarly(t *testing.T) {
	cam, err := NewFFMPEGCamera("false", "v4l2", "/dev/null")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := cam.Open(context.Background()); err == nil {
		t.Fatal("expected error when capture process exits immediately")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
