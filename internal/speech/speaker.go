// Package speech reads recognized text aloud. At most one utterance plays at
// a time; a new one cancels whatever is playing.
package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/jwulff/bolt/internal/logging"
)

// Params are the voice settings, each with 1 as the neutral value except
// volume, where 1 is full.
type Params struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

// DefaultParams returns neutral settings.
func DefaultParams() Params {
	return Params{Rate: 1, Pitch: 1, Volume: 1}
}

// Clamp bounds p to rate 0.1-10, pitch 0-2 and volume 0-1.
func (p Params) Clamp() Params {
	p.Rate = clamp(p.Rate, 0.1, 10)
	p.Pitch = clamp(p.Pitch, 0, 2)
	p.Volume = clamp(p.Volume, 0, 1)
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Utterance is one playing synthesis.
type Utterance interface {
	Done() <-chan struct{}
	Err() error
	Cancel()
}

// Synthesizer starts utterances.
type Synthesizer interface {
	Speak(ctx context.Context, text string, p Params) (Utterance, error)
}

// Speaker tracks the playing utterance and the voice settings.
type Speaker struct {
	synth Synthesizer
	log   *slog.Logger

	mu       sync.Mutex
	params   Params
	text     string
	current  Utterance
	seq      uint64
	onChange func(playing bool)
}

func NewSpeaker(synth Synthesizer, params Params, log *slog.Logger) *Speaker {
	return &Speaker{
		synth:  synth,
		params: params.Clamp(),
		log:    log.With(slog.String("component", "speech")),
	}
}

// OnChange registers a callback for play state changes. It is called without
// the speaker lock held.
func (s *Speaker) OnChange(fn func(playing bool)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Speak cancels any playing utterance and starts text from the beginning.
func (s *Speaker) Speak(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		s.Stop()
		return nil
	}
	s.mu.Lock()
	s.text = text
	change, err := s.restartLocked()
	fn := s.onChange
	s.mu.Unlock()
	change.notify(fn)
	return err
}

// Toggle speaks text when idle and stops otherwise.
func (s *Speaker) Toggle(text string) error {
	if s.Playing() {
		s.Stop()
		return nil
	}
	return s.Speak(text)
}

// Stop cancels the playing utterance, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	was := s.cancelLocked()
	fn := s.onChange
	s.mu.Unlock()
	if was {
		stateChange{changed: true, playing: false}.notify(fn)
	}
}

// Playing reports whether an utterance is in progress.
func (s *Speaker) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Params returns the current voice settings.
func (s *Speaker) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *Speaker) SetRate(v float64) error   { return s.update(func(p *Params) { p.Rate = v }) }
func (s *Speaker) SetPitch(v float64) error  { return s.update(func(p *Params) { p.Pitch = v }) }
func (s *Speaker) SetVolume(v float64) error { return s.update(func(p *Params) { p.Volume = v }) }

// update applies a settings change. A playing utterance restarts from the
// beginning with the new settings.
func (s *Speaker) update(fn func(*Params)) error {
	s.mu.Lock()
	fn(&s.params)
	s.params = s.params.Clamp()
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}
	change, err := s.restartLocked()
	onChange := s.onChange
	s.mu.Unlock()
	change.notify(onChange)
	return err
}

type stateChange struct {
	changed bool
	playing bool
}

func (c stateChange) notify(fn func(bool)) {
	if c.changed && fn != nil {
		fn(c.playing)
	}
}

func (s *Speaker) restartLocked() (stateChange, error) {
	wasPlaying := s.cancelLocked()

	u, err := s.synth.Speak(context.Background(), s.text, s.params)
	if err != nil {
		s.log.Warn("speech failed", logging.Err(err))
		return stateChange{changed: wasPlaying, playing: false}, err
	}
	s.seq++
	s.current = u
	go s.watch(u, s.seq)
	return stateChange{changed: !wasPlaying, playing: true}, nil
}

// cancelLocked stops the current utterance and reports whether one was playing.
func (s *Speaker) cancelLocked() bool {
	if s.current == nil {
		return false
	}
	s.seq++
	u := s.current
	s.current = nil
	u.Cancel()
	return true
}

func (s *Speaker) watch(u Utterance, seq uint64) {
	<-u.Done()
	if err := u.Err(); err != nil {
		s.log.Warn("speech ended with error", logging.Err(err))
	}
	s.mu.Lock()
	if s.seq != seq {
		s.mu.Unlock()
		return
	}
	s.current = nil
	fn := s.onChange
	s.mu.Unlock()
	stateChange{changed: true, playing: false}.notify(fn)
}
