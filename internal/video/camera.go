package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
)

// NoopCamera is used when local capture is disabled.
type NoopCamera struct{}

func (NoopCamera) Open(context.Context) (CameraSession, error) { return noopSession{}, nil }

type noopSession struct{}

func (noopSession) Close() error { return nil }

// FFMPEGCamera holds the capture device with an ffmpeg process for as long as
// the local preview is active. Frames are discarded; holding the device is
// what keeps the backend from opening it concurrently.
type FFMPEGCamera struct {
	command     []string
	inputFormat string
	device      string
	startGrace  time.Duration
}

// NewFFMPEGCamera parses command (e.g. "ffmpeg" or "ffmpeg -thread_queue_size 64")
// into an argv prefix.
func NewFFMPEGCamera(command, inputFormat, device string) (*FFMPEGCamera, error) {
	if strings.TrimSpace(command) == "" {
		command = "ffmpeg"
	}
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse camera command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("camera command empty")
	}
	if inputFormat == "" {
		inputFormat = "v4l2"
	}
	if device == "" {
		device = "/dev/video0"
	}
	return &FFMPEGCamera{
		command:     args,
		inputFormat: inputFormat,
		device:      device,
		startGrace:  250 * time.Millisecond,
	}, nil
}

// Args returns the full ffmpeg argv for the configured device.
func (c *FFMPEGCamera) Args() []string {
	args := append([]string{}, c.command...)
	return append(args,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.inputFormat,
		"-i", c.device,
		"-f", "null",
		"-",
	)
}

func (c *FFMPEGCamera) Open(ctx context.Context) (CameraSession, error) {
	argv := c.Args()
	// The capture outlives the request that opened it; Close ends it.
	cmd := exec.Command(argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	timer := time.NewTimer(c.startGrace)
	defer timer.Stop()
	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-waitErr
		return nil, ctx.Err()
	case <-timer.C:
	}

	return &ffmpegSession{process: cmd.Process, waitErr: waitErr, stderr: &stderr}, nil
}

type ffmpegSession struct {
	process *os.Process
	waitErr <-chan error
	stderr  *bytes.Buffer

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Close() error {
	s.stopOnce.Do(func() {
		_ = s.process.Signal(os.Interrupt)

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			_ = s.process.Kill()
			if err, ok := <-s.waitErr; ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.stopErr
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
