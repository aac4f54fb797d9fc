// Package history keeps the recognized-text entries of both capture modes,
// newest first, with optional SQLite persistence.
package history

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/logging"
)

var (
	// ErrNotFound is returned for an unknown entry id.
	ErrNotFound = errors.New("history entry not found")
	// ErrAlreadySaved is returned by SaveText when the text is already saved.
	ErrAlreadySaved = errors.New("already saved")
	// ErrEmptyText is returned by SaveText for blank text.
	ErrEmptyText = errors.New("nothing to save")
)

// Persister mirrors store mutations to durable storage. *db.Store satisfies it.
type Persister interface {
	InsertEntry(domain.HistoryEntry) error
	SetSaved(id string, saved bool) error
	UnsaveAll(domain.EntryType) error
	DeleteEntry(id string) error
	ClearEntries() error
}

// Filter selects entries for List. A zero Filter matches everything.
type Filter struct {
	Type      domain.EntryType
	SavedOnly bool
}

func (f Filter) match(e domain.HistoryEntry) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	return !f.SavedOnly || e.IsSaved
}

// Counts summarizes the store for the history page header.
type Counts struct {
	Total      int
	LipReading int
	Gesture    int
	Saved      int
}

// Option configures a Store.
type Option func(*Store)

// WithPersister mirrors every mutation to p.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persist = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides the id generator.
func WithIDs(next func() string) Option {
	return func(s *Store) { s.newID = next }
}

// Store is safe for concurrent use; poll goroutines add while the UI reads.
// Persister calls run under the store lock, keeping database writes in
// memory order.
type Store struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry // newest first

	persist Persister
	now     func() time.Time
	newID   func() string
	log     *slog.Logger
}

// New returns an empty store seeded with initial (newest first), typically
// loaded from the database.
func New(log *slog.Logger, initial []domain.HistoryEntry, opts ...Option) *Store {
	s := &Store{
		entries: append([]domain.HistoryEntry(nil), initial...),
		now:     time.Now,
		newID:   uuid.NewString,
		log:     log.With(slog.String("component", "history")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add records a recognized result. It is a no-op, returning false, when the
// most recent entry already has the same type and text.
func (s *Store) Add(t domain.EntryType, text string, confidence *float64) (domain.HistoryEntry, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.HistoryEntry{}, false
	}

	s.mu.Lock()
	if len(s.entries) > 0 && s.entries[0].Type == t && s.entries[0].Text == text {
		latest := s.entries[0]
		s.mu.Unlock()
		return latest, false
	}
	e := s.newEntryLocked(t, text, confidence, false)
	s.persistInsert(e)
	s.mu.Unlock()
	return e, true
}

// SaveText marks text as saved for type t. An existing matching entry is
// flagged in place; otherwise a new saved entry is created.
func (s *Store) SaveText(t domain.EntryType, text string, confidence *float64) (domain.HistoryEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.HistoryEntry{}, ErrEmptyText
	}

	s.mu.Lock()
	for _, e := range s.entries {
		if e.Type == t && e.Text == text && e.IsSaved {
			s.mu.Unlock()
			return e, ErrAlreadySaved
		}
	}
	for i := range s.entries {
		if s.entries[i].Type == t && s.entries[i].Text == text {
			s.entries[i].IsSaved = true
			e := s.entries[i]
			s.persistSaved(e.ID, true)
			s.mu.Unlock()
			return e, nil
		}
	}
	e := s.newEntryLocked(t, text, confidence, true)
	s.persistInsert(e)
	s.mu.Unlock()
	return e, nil
}

// MarkSaved flags an entry as saved.
func (s *Store) MarkSaved(id string) error { return s.setSaved(id, true) }

// UnmarkSaved clears an entry's saved flag.
func (s *Store) UnmarkSaved(id string) error { return s.setSaved(id, false) }

// ToggleSaved flips an entry's saved flag and returns the new value.
func (s *Store) ToggleSaved(id string) (bool, error) {
	e, err := s.Get(id)
	if err != nil {
		return false, err
	}
	return !e.IsSaved, s.setSaved(id, !e.IsSaved)
}

func (s *Store) setSaved(id string, saved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	if s.entries[i].IsSaved != saved {
		s.entries[i].IsSaved = saved
		s.persistSaved(id, saved)
	}
	return nil
}

// UnmarkAll clears the saved flag on every entry of type t.
func (s *Store) UnmarkAll(t domain.EntryType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.entries {
		if s.entries[i].Type == t && s.entries[i].IsSaved {
			s.entries[i].IsSaved = false
			n++
		}
	}
	if n > 0 && s.persist != nil {
		if err := s.persist.UnsaveAll(t); err != nil {
			s.log.Warn("persist unsave all failed", slog.String("type", string(t)), logging.Err(err))
		}
	}
	return n
}

// Delete removes one entry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	if s.persist != nil {
		if err := s.persist.DeleteEntry(id); err != nil {
			s.log.Warn("persist delete failed", slog.String("id", id), logging.Err(err))
		}
	}
	return nil
}

// ClearAll removes every entry.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	if s.persist != nil {
		if err := s.persist.ClearEntries(); err != nil {
			s.log.Warn("persist clear failed", logging.Err(err))
		}
	}
}

// Get returns one entry by id.
func (s *Store) Get(id string) (domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.HistoryEntry{}, ErrNotFound
	}
	return s.entries[i], nil
}

// List returns entries matching f, newest first.
func (s *Store) List(f Filter) []domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.HistoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Saved returns the saved entries of type t, newest first.
func (s *Store) Saved(t domain.EntryType) []domain.HistoryEntry {
	return s.List(Filter{Type: t, SavedOnly: true})
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Counts tallies entries by type and saved flag.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c Counts
	for _, e := range s.entries {
		c.Total++
		switch e.Type {
		case domain.EntryLipReading:
			c.LipReading++
		case domain.EntryGesture:
			c.Gesture++
		}
		if e.IsSaved {
			c.Saved++
		}
	}
	return c
}

func (s *Store) newEntryLocked(t domain.EntryType, text string, confidence *float64, saved bool) domain.HistoryEntry {
	e := domain.HistoryEntry{
		ID:        s.newID(),
		Type:      t,
		Text:      text,
		CreatedAt: s.now(),
		IsSaved:   saved,
	}
	if confidence != nil {
		e.Confidence = domain.Float64Ptr(*confidence)
	}
	s.entries = append([]domain.HistoryEntry{e}, s.entries...)
	return e
}

func (s *Store) indexLocked(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// persistInsert and persistSaved must be called with s.mu held.
func (s *Store) persistInsert(e domain.HistoryEntry) {
	if s.persist == nil {
		return
	}
	if err := s.persist.InsertEntry(e); err != nil {
		s.log.Warn("persist insert failed", slog.String("id", e.ID), logging.Err(err))
	}
}

func (s *Store) persistSaved(id string, saved bool) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SetSaved(id, saved); err != nil {
		s.log.Warn("persist saved flag failed", slog.String("id", id), logging.Err(err))
	}
}
