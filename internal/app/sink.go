package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/video"
)

const sinkBuffer = 64

// Notifier mirrors toasts outside the terminal. *notify.Notifier satisfies it.
type Notifier interface {
	Dispatch(domain.Toast)
}

// Sink queues controller, video and speech events for the model, which
// reads them one at a time with waitForEvent. Senders block while the queue
// is full; after Close every event is dropped.
type Sink struct {
	events   chan tea.Msg
	done     chan struct{}
	once     sync.Once
	notifier Notifier
}

func NewSink(notifier Notifier) *Sink {
	return &Sink{
		events:   make(chan tea.Msg, sinkBuffer),
		done:     make(chan struct{}),
		notifier: notifier,
	}
}

// Events is the queue the model reads; pass it as Deps.Events.
func (s *Sink) Events() <-chan tea.Msg {
	return s.events
}

// Close stops delivery once the program has exited.
func (s *Sink) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Sink) send(msg tea.Msg) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.events <- msg:
	case <-s.done:
	}
}

func (s *Sink) SessionChanged(st domain.SessionStatus) {
	s.send(SessionMsg{Status: st})
}

func (s *Sink) Toast(t domain.Toast) {
	if s.notifier != nil {
		s.notifier.Dispatch(t)
	}
	s.send(ToastMsg{Toast: t})
}

// VideoChanged is a video.Observer.
func (s *Sink) VideoChanged(st video.State) {
	s.send(VideoMsg{State: st})
}

// SpeechChanged is the speaker's play state callback.
func (s *Sink) SpeechChanged(playing bool) {
	s.send(SpeechMsg{Playing: playing})
}

// waitForEvent reads the next queued event. Handlers of event messages
// re-arm it.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		return <-events
	}
}
