package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
)

// ExecSynthesizer speaks through an espeak-compatible command. Rate, pitch
// and volume are passed as -s, -p and -a; the text is fed on stdin.
type ExecSynthesizer struct {
	cmd []string
}

func NewExecSynthesizer(command string) (*ExecSynthesizer, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse speech command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("speech command empty")
	}
	return &ExecSynthesizer{cmd: args}, nil
}

// Args returns the argv used to speak with p.
func (e *ExecSynthesizer) Args(p Params) []string {
	args := append([]string{}, e.cmd...)
	return append(args,
		"-s", strconv.Itoa(int(175*p.Rate+0.5)),
		"-p", strconv.Itoa(int(50*p.Pitch+0.5)),
		"-a", strconv.Itoa(int(100*p.Volume+0.5)),
		"--stdin",
	)
}

func (e *ExecSynthesizer) Speak(ctx context.Context, text string, p Params) (Utterance, error) {
	argv := e.Args(p)
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start speech command: %w", err)
	}

	u := &execUtterance{cancel: cancel, done: make(chan struct{})}
	go func() {
		u.err = cmd.Wait()
		if ctx.Err() != nil {
			u.err = nil
		}
		cancel()
		close(u.done)
	}()
	return u, nil
}

type execUtterance struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (u *execUtterance) Done() <-chan struct{} { return u.done }

func (u *execUtterance) Err() error {
	<-u.done
	return u.err
}

func (u *execUtterance) Cancel() {
	u.cancel()
	<-u.done
}
