package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/history"
	"github.com/jwulff/bolt/internal/logging"
	"github.com/jwulff/bolt/internal/speech"
	"github.com/jwulff/bolt/internal/video"
)

type fakeSessions struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSessions) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeSessions) Toggle(_ context.Context, t domain.EntryType) error {
	f.record("toggle " + string(t))
	return nil
}
func (f *fakeSessions) SaveCurrentText(t domain.EntryType) error {
	f.record("save " + string(t))
	return nil
}
func (f *fakeSessions) ClearText(t domain.EntryType) error {
	f.record("clear " + string(t))
	return nil
}
func (f *fakeSessions) EnterPage(_ context.Context, t domain.EntryType) error {
	f.record("enter " + string(t))
	return nil
}
func (f *fakeSessions) LeavePage(context.Context) error {
	f.record("leave")
	return nil
}
func (f *fakeSessions) StopAll(context.Context) error {
	f.record("stop-all")
	return nil
}
func (f *fakeSessions) Statuses() []domain.SessionStatus {
	return []domain.SessionStatus{
		{Mode: domain.EntryLipReading, State: domain.SessionIdle, Confidence: 95},
		{Mode: domain.EntryGesture, State: domain.SessionIdle},
	}
}

func (f *fakeSessions) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeSpeech struct {
	mu      sync.Mutex
	params  speech.Params
	spoken  []string
	stopped int
}

func (f *fakeSpeech) Toggle(text string) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	return nil
}
func (f *fakeSpeech) Stop() {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
}
func (f *fakeSpeech) Playing() bool         { return false }
func (f *fakeSpeech) Params() speech.Params { return f.params }
func (f *fakeSpeech) SetRate(v float64) error {
	f.params.Rate = v
	return nil
}
func (f *fakeSpeech) SetPitch(v float64) error {
	f.params.Pitch = v
	return nil
}
func (f *fakeSpeech) SetVolume(v float64) error {
	f.params.Volume = v
	return nil
}

var testNow = time.Date(2024, 3, 9, 14, 30, 0, 0, time.Local)

func newTestModel(t *testing.T) (Model, *fakeSessions, *fakeSpeech, *history.Store) {
	t.Helper()
	sessions := &fakeSessions{}
	sp := &fakeSpeech{params: speech.DefaultParams()}
	store := history.New(logging.Discard(), nil, history.WithClock(func() time.Time { return testNow }))
	m := New(Deps{
		Sessions:     sessions,
		History:      store,
		Speech:       sp,
		DownloadsDir: t.TempDir(),
		Log:          logging.Discard(),
		Now:          func() time.Time { return testNow },
	})
	m.width = 100
	m.height = 30
	return m, sessions, sp, store
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func key(k string) tea.KeyMsg {
	switch k {
	case KeySpace:
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case KeyEsc:
		return tea.KeyMsg{Type: tea.KeyEsc}
	case KeyEnter:
		return tea.KeyMsg{Type: tea.KeyEnter}
	case KeyTab:
		return tea.KeyMsg{Type: tea.KeyTab}
	case KeyCtrlC:
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// run executes cmd synchronously, as the bubbletea runtime would.
func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestNewModel(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	if m.page != PageHome {
		t.Errorf("page = %v, want home", m.page)
	}
	if m.statuses[domain.EntryLipReading].State != domain.SessionIdle {
		t.Error("lip-reading should start idle")
	}
	if m.video.Source != domain.VideoNone {
		t.Errorf("video = %s, want none", m.video.Source)
	}
}

func TestViewBeforeWindowSize(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.width = 0
	if got := m.View(); got != "Initializing..." {
		t.Errorf("view = %q", got)
	}
}

func TestNavigateRunsPageHooks(t *testing.T) {
	m, sessions, sp, _ := newTestModel(t)

	m, cmd := applyUpdate(m, key(KeyLipReading))
	if m.page != PageLipReading {
		t.Fatalf("page = %v, want lip reading", m.page)
	}
	run(cmd)

	m, cmd = applyUpdate(m, key(KeyTab))
	if m.page != PageGestures {
		t.Fatalf("page = %v, want gestures", m.page)
	}
	run(cmd)

	m, cmd = applyUpdate(m, key(KeyEsc))
	if m.page != PageHome {
		t.Fatalf("page = %v, want home", m.page)
	}
	run(cmd)

	want := []string{"enter lip-reading", "enter gesture", "leave"}
	if got := sessions.snapshot(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if sp.stopped != 2 {
		t.Errorf("speech stops = %d, want 2 (leaving each mode page)", sp.stopped)
	}
}

func TestHomeMenuNavigation(t *testing.T) {
	m, _, _, _ := newTestModel(t)

	m, _ = applyUpdate(m, key(KeyJ))
	m, _ = applyUpdate(m, key(KeyJ))
	if m.homeItem != 2 {
		t.Fatalf("homeItem = %d, want 2", m.homeItem)
	}
	m, _ = applyUpdate(m, key(KeyEnter))
	if m.page != PageHistory {
		t.Errorf("page = %v, want history", m.page)
	}
}

func TestModeKeysDispatch(t *testing.T) {
	m, sessions, sp, _ := newTestModel(t)
	m.page = PageGestures

	_, cmd := applyUpdate(m, key(KeySpace))
	run(cmd)
	_, cmd = applyUpdate(m, key(KeySave))
	run(cmd)
	_, cmd = applyUpdate(m, key(KeyClear))
	run(cmd)

	want := []string{"toggle gesture", "save gesture", "clear gesture"}
	if got := sessions.snapshot(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if sp.stopped != 1 {
		t.Errorf("clear should stop speech, stops = %d", sp.stopped)
	}
}

func TestSessionMsgUpdatesView(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.page = PageGestures

	m, _ = applyUpdate(m, SessionMsg{Status: domain.SessionStatus{
		Mode:  domain.EntryGesture,
		State: domain.SessionLive,
		Text:  "Thumbs Up",
	}})
	m, _ = applyUpdate(m, VideoMsg{State: video.State{Source: domain.VideoBackend, Frames: 30}})

	view := m.View()
	for _, want := range []string{"LIVE", "Thumbs Up", "Good/Yes/Approve", "backend feed (30 frames)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSpeakRequiresText(t *testing.T) {
	m, _, sp, _ := newTestModel(t)
	m.page = PageLipReading

	m, _ = applyUpdate(m, key(KeySpeak))
	if m.toast == nil || m.toast.Level != domain.ToastInfo {
		t.Fatalf("toast = %+v, want info", m.toast)
	}

	m.statuses[domain.EntryLipReading] = domain.SessionStatus{Mode: domain.EntryLipReading, Text: "hello"}
	_, cmd := applyUpdate(m, key(KeySpeak))
	run(cmd)
	if len(sp.spoken) != 1 || sp.spoken[0] != "hello" {
		t.Errorf("spoken = %v", sp.spoken)
	}
}

func TestSpeechSettingKeys(t *testing.T) {
	m, _, sp, _ := newTestModel(t)
	m.page = PageLipReading

	_, cmd := applyUpdate(m, key(KeyRateUp))
	run(cmd)
	_, cmd = applyUpdate(m, key(KeyVolumeDown))
	run(cmd)

	if sp.params.Rate < 1.09 || sp.params.Rate > 1.11 {
		t.Errorf("rate = %v, want 1.1", sp.params.Rate)
	}
	if sp.params.Volume < 0.89 || sp.params.Volume > 0.91 {
		t.Errorf("volume = %v, want 0.9", sp.params.Volume)
	}
}

func TestDownloadCurrentText(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.page = PageLipReading
	m.statuses[domain.EntryLipReading] = domain.SessionStatus{Mode: domain.EntryLipReading, Text: "hello"}

	_, cmd := applyUpdate(m, key(KeyDownload))
	msg, ok := run(cmd).(DownloadedMsg)
	if !ok {
		t.Fatalf("expected DownloadedMsg")
	}
	if msg.Err != nil {
		t.Fatalf("download: %v", msg.Err)
	}
	if filepath.Base(msg.Path) != "lip-reading-text-2024-03-09.txt" {
		t.Errorf("path = %q", msg.Path)
	}
	data, _ := os.ReadFile(msg.Path)
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	m, _ = applyUpdate(m, msg)
	if m.toast == nil || m.toast.Level != domain.ToastSuccess {
		t.Errorf("toast = %+v, want success", m.toast)
	}
}

func TestToastClearsOnlyLatest(t *testing.T) {
	m, _, _, _ := newTestModel(t)

	m, _ = applyUpdate(m, ToastMsg{Toast: domain.Toast{Level: domain.ToastError, Message: "Failed to start Lip Reading"}})
	first := m.toastSeq
	m, _ = applyUpdate(m, ToastMsg{Toast: domain.Toast{Level: domain.ToastInfo, Message: "Already saved"}})

	m, _ = applyUpdate(m, ClearToastMsg{Seq: first})
	if m.toast == nil || m.toast.Message != "Already saved" {
		t.Fatalf("stale clear removed newer toast: %+v", m.toast)
	}
	if !strings.Contains(m.View(), "Already saved") {
		t.Error("view missing toast")
	}
	m, _ = applyUpdate(m, ClearToastMsg{Seq: m.toastSeq})
	if m.toast != nil {
		t.Errorf("toast = %+v, want cleared", m.toast)
	}
}

func TestHistoryPageActions(t *testing.T) {
	m, _, _, store := newTestModel(t)
	store.Add(domain.EntryLipReading, "hello", domain.Float64Ptr(95))
	store.Add(domain.EntryGesture, "Fist", nil)
	m.page = PageHistory

	// Newest first: Fist is selected.
	m, _ = applyUpdate(m, key(KeyEnter))
	if saved := store.Saved(domain.EntryGesture); len(saved) != 1 {
		t.Fatalf("saved gestures = %d, want 1", len(saved))
	}
	if !strings.Contains(m.View(), "★") {
		t.Error("view missing saved marker")
	}

	m, _ = applyUpdate(m, key(KeyJ))
	m, _ = applyUpdate(m, key(KeyDelete))
	if store.Len() != 1 {
		t.Fatalf("len = %d, want 1", store.Len())
	}
	if m.toast == nil || m.toast.Message != "Deleted from history" {
		t.Errorf("toast = %+v", m.toast)
	}
	if m.selected != 0 {
		t.Errorf("selected = %d, want 0 after deleting last row", m.selected)
	}
}

func TestHistoryFilterCycle(t *testing.T) {
	m, _, _, store := newTestModel(t)
	store.Add(domain.EntryLipReading, "hello", nil)
	store.Add(domain.EntryGesture, "Fist", nil)
	m.page = PageHistory

	m, _ = applyUpdate(m, key(KeyFilter))
	if m.filter.Type != domain.EntryLipReading {
		t.Fatalf("filter = %q", m.filter.Type)
	}
	if strings.Contains(m.View(), "Fist") {
		t.Error("lip-reading filter shows gesture entry")
	}
	m, _ = applyUpdate(m, key(KeyFilter))
	m, _ = applyUpdate(m, key(KeyFilter))
	if m.filter.Type != "" {
		t.Errorf("filter = %q, want all", m.filter.Type)
	}
}

func TestHistoryClearAllNeedsConfirmation(t *testing.T) {
	m, _, _, store := newTestModel(t)
	store.Add(domain.EntryLipReading, "hello", nil)
	m.page = PageHistory

	m, _ = applyUpdate(m, key(KeyClearAll))
	if !m.confirmClear {
		t.Fatal("expected confirmation prompt")
	}
	m, _ = applyUpdate(m, key(KeyCancel))
	if store.Len() != 1 {
		t.Fatal("cancel cleared history")
	}

	m, _ = applyUpdate(m, key(KeyClearAll))
	m, _ = applyUpdate(m, key(KeyConfirm))
	if store.Len() != 0 {
		t.Errorf("len = %d, want 0", store.Len())
	}
	if m.confirmClear {
		t.Error("prompt still open")
	}
}

func TestHistoryDownloadAll(t *testing.T) {
	m, _, _, store := newTestModel(t)
	m.page = PageHistory

	m, _ = applyUpdate(m, key(KeyDownloadAll))
	if m.toast == nil || m.toast.Message != "History is empty" {
		t.Fatalf("toast = %+v", m.toast)
	}

	store.Add(domain.EntryLipReading, "hello", nil)
	_, cmd := applyUpdate(m, key(KeyDownloadAll))
	msg := run(cmd).(DownloadedMsg)
	if filepath.Base(msg.Path) != "complete-history-2024-03-09.txt" {
		t.Errorf("path = %q", msg.Path)
	}
}

func TestQuitStopsSessions(t *testing.T) {
	m, sessions, sp, _ := newTestModel(t)
	m.page = PageLipReading

	m, cmd := applyUpdate(m, key(KeyQuit))
	if !m.quitting {
		t.Fatal("expected quitting")
	}
	if _, ok := run(cmd).(ShutdownMsg); !ok {
		t.Fatal("expected ShutdownMsg")
	}
	if got := sessions.snapshot(); len(got) != 1 || got[0] != "stop-all" {
		t.Errorf("calls = %v, want [stop-all]", got)
	}
	if sp.stopped != 1 {
		t.Errorf("speech stops = %d, want 1", sp.stopped)
	}

	// Keys are ignored while shutting down.
	if _, cmd := applyUpdate(m, key(KeySpace)); cmd != nil {
		t.Error("key handled while quitting")
	}
}
