package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/logging"
)

var fixedNow = time.Date(2024, 3, 9, 14, 30, 0, 0, time.Local)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	n := 0
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	}
	return New(logging.Discard(), nil, append(base, opts...)...)
}

type fakePersister struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (p *fakePersister) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if p.fail {
		return errors.New("disk full")
	}
	return nil
}

func (p *fakePersister) InsertEntry(e domain.HistoryEntry) error {
	return p.record("insert " + e.ID)
}
func (p *fakePersister) SetSaved(id string, saved bool) error {
	return p.record(fmt.Sprintf("saved %s %t", id, saved))
}
func (p *fakePersister) UnsaveAll(t domain.EntryType) error { return p.record("unsave-all " + string(t)) }
func (p *fakePersister) DeleteEntry(id string) error        { return p.record("delete " + id) }
func (p *fakePersister) ClearEntries() error                { return p.record("clear") }

func TestAddDedupesConsecutive(t *testing.T) {
	s := newTestStore(t)

	if _, added := s.Add(domain.EntryLipReading, "hello", nil); !added {
		t.Fatal("first add not recorded")
	}
	if _, added := s.Add(domain.EntryLipReading, "hello", nil); added {
		t.Error("identical consecutive add recorded")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}

	s.Add(domain.EntryGesture, "hello", nil)
	s.Add(domain.EntryLipReading, "hello", nil)
	if s.Len() != 3 {
		t.Errorf("len = %d, want 3 (dedupe is against the most recent entry only)", s.Len())
	}
}

func TestAddIgnoresBlankText(t *testing.T) {
	s := newTestStore(t)
	if _, added := s.Add(domain.EntryGesture, "   ", nil); added {
		t.Error("blank text recorded")
	}
}

func TestListNewestFirstAndFilter(t *testing.T) {
	s := newTestStore(t)
	s.Add(domain.EntryLipReading, "one", nil)
	s.Add(domain.EntryGesture, "Fist", nil)
	s.Add(domain.EntryLipReading, "two", nil)

	all := s.List(Filter{})
	if len(all) != 3 || all[0].Text != "two" || all[2].Text != "one" {
		t.Fatalf("all = %+v", all)
	}

	lip := s.List(Filter{Type: domain.EntryLipReading})
	if len(lip) != 2 {
		t.Errorf("lip-reading entries = %d, want 2", len(lip))
	}
	gestures := s.List(Filter{Type: domain.EntryGesture})
	if len(gestures) != 1 || gestures[0].Text != "Fist" {
		t.Errorf("gesture entries = %+v", gestures)
	}

	c := s.Counts()
	if c.Total != 3 || c.LipReading != 2 || c.Gesture != 1 || c.Saved != 0 {
		t.Errorf("counts = %+v", c)
	}
}

func TestSaveTextIdempotent(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.SaveText(domain.EntryLipReading, "hello", domain.Float64Ptr(95)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := s.SaveText(domain.EntryLipReading, "hello", domain.Float64Ptr(95)); !errors.Is(err, ErrAlreadySaved) {
		t.Fatalf("second save err = %v, want ErrAlreadySaved", err)
	}

	saved := s.Saved(domain.EntryLipReading)
	if len(saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(saved))
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestSaveTextMarksExistingEntry(t *testing.T) {
	s := newTestStore(t)
	added, _ := s.Add(domain.EntryGesture, "Thumbs Up", nil)

	saved, err := s.SaveText(domain.EntryGesture, "Thumbs Up", nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID != added.ID {
		t.Errorf("saved id = %q, want existing %q", saved.ID, added.ID)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestSaveTextEmpty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveText(domain.EntryLipReading, "", nil); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
}

func TestMarkUnmarkToggle(t *testing.T) {
	s := newTestStore(t)
	e, _ := s.Add(domain.EntryLipReading, "hello", nil)

	if err := s.MarkSaved(e.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if got, _ := s.Get(e.ID); !got.IsSaved {
		t.Error("entry not saved after MarkSaved")
	}
	if err := s.UnmarkSaved(e.ID); err != nil {
		t.Fatalf("unmark: %v", err)
	}
	if got, _ := s.Get(e.ID); got.IsSaved {
		t.Error("entry still saved after UnmarkSaved")
	}

	now, err := s.ToggleSaved(e.ID)
	if err != nil || !now {
		t.Errorf("toggle = %t, %v; want true, nil", now, err)
	}

	if err := s.MarkSaved("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("mark missing err = %v, want ErrNotFound", err)
	}
}

func TestUnmarkAllOnlyTouchesType(t *testing.T) {
	s := newTestStore(t)
	s.SaveText(domain.EntryLipReading, "a", nil)
	s.SaveText(domain.EntryLipReading, "b", nil)
	s.SaveText(domain.EntryGesture, "Fist", nil)

	if n := s.UnmarkAll(domain.EntryLipReading); n != 2 {
		t.Errorf("unmarked = %d, want 2", n)
	}
	if c := s.Counts(); c.Saved != 1 {
		t.Errorf("saved = %d, want 1", c.Saved)
	}
}

func TestDeleteAndClearAll(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Add(domain.EntryLipReading, "a", nil)
	s.Add(domain.EntryLipReading, "b", nil)

	if err := s.Delete(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get deleted err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}

	s.ClearAll()
	if s.Len() != 0 {
		t.Errorf("len after clear = %d, want 0", s.Len())
	}
}

func TestPersisterMirrorsMutations(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, WithPersister(p))

	e, _ := s.Add(domain.EntryLipReading, "hello", nil)
	s.Add(domain.EntryLipReading, "hello", nil)
	s.MarkSaved(e.ID)
	s.MarkSaved(e.ID)
	s.UnmarkAll(domain.EntryLipReading)
	s.Delete(e.ID)
	s.ClearAll()

	want := []string{
		"insert id-1",
		"saved id-1 true",
		"unsave-all lip-reading",
		"delete id-1",
		"clear",
	}
	if strings.Join(p.calls, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %v, want %v", p.calls, want)
	}
}

func TestPersisterFailureKeepsMemory(t *testing.T) {
	s := newTestStore(t, WithPersister(&fakePersister{fail: true}))
	if _, added := s.Add(domain.EntryGesture, "Fist", nil); !added {
		t.Fatal("add rejected on persist failure")
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestDownloadAsTextRoundTrip(t *testing.T) {
	e := domain.HistoryEntry{ID: "abc", Type: domain.EntryLipReading, Text: "Predicted: HI\nTranslated: hi  "}
	d := DownloadAsText(e)
	if string(d.Data) != e.Text {
		t.Errorf("data = %q, want %q", d.Data, e.Text)
	}
	if d.Name != "lip-reading-log-abc.txt" {
		t.Errorf("name = %q", d.Name)
	}
}

func TestDownloadCurrentName(t *testing.T) {
	d := DownloadCurrent(domain.EntryGesture, "Fist", fixedNow)
	if d.Name != "gesture-text-2024-03-09.txt" {
		t.Errorf("name = %q", d.Name)
	}
}

func TestDownloadAll(t *testing.T) {
	s := newTestStore(t)
	s.Add(domain.EntryLipReading, "hello", domain.Float64Ptr(95))
	s.Add(domain.EntryGesture, "Fist", nil)

	d := s.DownloadAll()
	if d.Name != "complete-history-2024-03-09.txt" {
		t.Errorf("name = %q", d.Name)
	}
	want := "[2024-03-09 14:30:00] (Confidence: n/a)\nFist\n" +
		"\n" +
		"[2024-03-09 14:30:00] (Confidence: 95.0%)\nhello\n"
	if string(d.Data) != want {
		t.Errorf("data = %q, want %q", d.Data, want)
	}
}

func TestWriteFileDoesNotOverwrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	d := Download{Name: "gesture-log-1.txt", Data: []byte("Fist")}

	first, err := WriteFile(dir, d)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	second, err := WriteFile(dir, d)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if first == second {
		t.Fatalf("second write reused %q", first)
	}
	if filepath.Base(second) != "gesture-log-1 (1).txt" {
		t.Errorf("second = %q", filepath.Base(second))
	}
	data, _ := os.ReadFile(first)
	if string(data) != "Fist" {
		t.Errorf("content = %q", data)
	}
}
