package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/history"
	"github.com/jwulff/bolt/internal/logging"
	"github.com/jwulff/bolt/internal/speech"
	"github.com/jwulff/bolt/internal/video"
)

// Page is the screen currently shown.
type Page int

const (
	PageHome Page = iota
	PageLipReading
	PageGestures
	PageHistory
	PageAbout
)

var homeMenu = []Page{PageLipReading, PageGestures, PageHistory, PageAbout}

func (p Page) String() string {
	switch p {
	case PageLipReading:
		return "Lip Reading"
	case PageGestures:
		return "Hand Gestures"
	case PageHistory:
		return "History"
	case PageAbout:
		return "About"
	default:
		return "Home"
	}
}

// mode returns the capture mode shown on p, if any.
func (p Page) mode() (domain.EntryType, bool) {
	switch p {
	case PageLipReading:
		return domain.EntryLipReading, true
	case PageGestures:
		return domain.EntryGesture, true
	default:
		return "", false
	}
}

func pageFor(t domain.EntryType) Page {
	if t == domain.EntryGesture {
		return PageGestures
	}
	return PageLipReading
}

// Sessions drives capture sessions. *session.Coordinator satisfies it.
type Sessions interface {
	Toggle(ctx context.Context, t domain.EntryType) error
	SaveCurrentText(t domain.EntryType) error
	ClearText(t domain.EntryType) error
	EnterPage(ctx context.Context, t domain.EntryType) error
	LeavePage(ctx context.Context) error
	StopAll(ctx context.Context) error
	Statuses() []domain.SessionStatus
}

// Speech reads text aloud. *speech.Speaker satisfies it.
type Speech interface {
	Toggle(text string) error
	Stop()
	Playing() bool
	Params() speech.Params
	SetRate(float64) error
	SetPitch(float64) error
	SetVolume(float64) error
}

// Deps are the services the model drives.
type Deps struct {
	Sessions     Sessions
	History      *history.Store
	Speech       Speech
	Notifier     Notifier
	Events       <-chan tea.Msg // from Sink.Events; nil disables event delivery
	DownloadsDir string
	Log          *slog.Logger
	Now          func() time.Time
}

const (
	toastTimeout    = 3 * time.Second
	shutdownTimeout = 5 * time.Second
)

// filterCycle is the order the history filter key steps through.
var filterCycle = []domain.EntryType{"", domain.EntryLipReading, domain.EntryGesture}

// Model is the root bubbletea model for the BOLT TUI.
type Model struct {
	deps Deps

	page     Page
	homeItem int

	statuses map[domain.EntryType]domain.SessionStatus
	video    video.State
	speaking bool

	// History page
	filter       history.Filter
	selected     int
	confirmClear bool

	toast    *domain.Toast
	toastSeq int

	width    int
	height   int
	quitting bool
}

// New creates a Model on the home page.
func New(deps Deps) Model {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = slog.New(slog.DiscardHandler)
	}
	m := Model{
		deps:     deps,
		page:     PageHome,
		statuses: make(map[domain.EntryType]domain.SessionStatus),
		video:    video.State{Source: domain.VideoNone},
	}
	for _, st := range deps.Sessions.Statuses() {
		m.statuses[st.Mode] = st
	}
	return m
}

// Init starts reading session, video and speech events. The home page
// holds no camera.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.deps.Events)
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SessionMsg:
		m.statuses[msg.Status.Mode] = msg.Status
		m.clampSelection()
		return m, waitForEvent(m.deps.Events)

	case VideoMsg:
		m.video = msg.State
		return m, waitForEvent(m.deps.Events)

	case SpeechMsg:
		m.speaking = msg.Playing
		return m, waitForEvent(m.deps.Events)

	case ToastMsg:
		return m, tea.Batch(m.setToast(msg.Toast), waitForEvent(m.deps.Events))

	case PageErrorMsg:
		m.deps.Log.Warn("page hook failed", logging.Err(msg.Err))
		return m, m.showToast(domain.ToastError, "Camera unavailable")

	case actionErrMsg:
		m.deps.Log.Warn("action failed", logging.Err(msg.Err))
		return m, m.showToast(domain.ToastError, msg.Err.Error())

	case DownloadedMsg:
		if msg.Err != nil {
			m.deps.Log.Warn("download failed", logging.Err(msg.Err))
			return m, m.showToast(domain.ToastError, "Download failed")
		}
		return m, m.showToast(domain.ToastSuccess, "Downloaded "+msg.Path)

	case ClearToastMsg:
		if msg.Seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case ShutdownMsg:
		return m, tea.Quit
	}

	return m, nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.quitting {
		return m, nil
	}
	if key == KeyCtrlC || ((key == KeyQuit || key == KeyQuitUpper) && !m.confirmClear) {
		m.quitting = true
		return m, m.shutdownCmd()
	}

	switch m.page {
	case PageHome:
		return m.handleHomeKey(key)
	case PageLipReading, PageGestures:
		return m.handleModeKey(key)
	case PageHistory:
		return m.handleHistoryKey(key)
	default:
		if key == KeyEsc {
			return m.navigate(PageHome)
		}
	}
	return m, nil
}

func (m Model) handleHomeKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case KeyJ, KeyDown:
		if m.homeItem < len(homeMenu)-1 {
			m.homeItem++
		}
	case KeyK, KeyUp:
		if m.homeItem > 0 {
			m.homeItem--
		}
	case KeyEnter:
		return m.navigate(homeMenu[m.homeItem])
	case KeyLipReading:
		return m.navigate(PageLipReading)
	case KeyGestures:
		return m.navigate(PageGestures)
	case KeyHistory:
		return m.navigate(PageHistory)
	case KeyAbout:
		return m.navigate(PageAbout)
	}
	return m, nil
}

func (m Model) handleModeKey(key string) (tea.Model, tea.Cmd) {
	t, _ := m.page.mode()
	status := m.statuses[t]

	switch key {
	case KeyEsc:
		return m.navigate(PageHome)

	case KeyTab:
		if t == domain.EntryLipReading {
			return m.navigate(PageGestures)
		}
		return m.navigate(PageLipReading)

	case KeySpace:
		return m, m.background(func(ctx context.Context) error {
			// Start failures are toasted by the controller.
			_ = m.deps.Sessions.Toggle(ctx, t)
			return nil
		})

	case KeySave:
		return m, m.background(func(context.Context) error {
			_ = m.deps.Sessions.SaveCurrentText(t)
			return nil
		})

	case KeyClear:
		return m, m.background(func(context.Context) error {
			m.deps.Speech.Stop()
			return m.deps.Sessions.ClearText(t)
		})

	case KeySpeak:
		text := status.Text
		if text == "" && !m.speaking {
			return m, m.showToast(domain.ToastInfo, "Nothing to read yet")
		}
		return m, m.background(func(context.Context) error {
			return m.deps.Speech.Toggle(text)
		})

	case KeyRateDown, KeyRateUp, KeyPitchDown, KeyPitchUp, KeyVolumeDown, KeyVolumeUp:
		return m, m.adjustSpeech(key)

	case KeyDownload:
		if status.Text == "" {
			return m, m.showToast(domain.ToastInfo, "Nothing to download yet")
		}
		return m, m.downloadCmd(history.DownloadCurrent(t, status.Text, m.deps.Now()))
	}
	return m, nil
}

func (m Model) adjustSpeech(key string) tea.Cmd {
	p := m.deps.Speech.Params()
	var apply func() error
	switch key {
	case KeyRateDown:
		apply = func() error { return m.deps.Speech.SetRate(p.Rate - speechStep) }
	case KeyRateUp:
		apply = func() error { return m.deps.Speech.SetRate(p.Rate + speechStep) }
	case KeyPitchDown:
		apply = func() error { return m.deps.Speech.SetPitch(p.Pitch - speechStep) }
	case KeyPitchUp:
		apply = func() error { return m.deps.Speech.SetPitch(p.Pitch + speechStep) }
	case KeyVolumeDown:
		apply = func() error { return m.deps.Speech.SetVolume(p.Volume - speechStep) }
	case KeyVolumeUp:
		apply = func() error { return m.deps.Speech.SetVolume(p.Volume + speechStep) }
	}
	return m.background(func(context.Context) error { return apply() })
}

func (m Model) handleHistoryKey(key string) (tea.Model, tea.Cmd) {
	if m.confirmClear {
		switch key {
		case KeyConfirm:
			m.confirmClear = false
			m.deps.History.ClearAll()
			m.selected = 0
			return m, m.showToast(domain.ToastSuccess, "History cleared")
		case KeyCancel, KeyEsc:
			m.confirmClear = false
		}
		return m, nil
	}

	entries := m.deps.History.List(m.filter)
	var current *domain.HistoryEntry
	if m.selected < len(entries) {
		current = &entries[m.selected]
	}

	switch key {
	case KeyEsc:
		return m.navigate(PageHome)

	case KeyJ, KeyDown:
		if m.selected < len(entries)-1 {
			m.selected++
		}

	case KeyK, KeyUp:
		if m.selected > 0 {
			m.selected--
		}

	case KeyEnter:
		if current == nil {
			return m, nil
		}
		saved, err := m.deps.History.ToggleSaved(current.ID)
		if err != nil {
			return m, m.showToast(domain.ToastError, "Entry no longer exists")
		}
		if saved {
			return m, m.showToast(domain.ToastSuccess, "Saved to Recent Saves")
		}
		return m, m.showToast(domain.ToastInfo, "Removed from Recent Saves")

	case KeyDelete:
		if current == nil {
			return m, nil
		}
		if err := m.deps.History.Delete(current.ID); err != nil {
			return m, m.showToast(domain.ToastError, "Entry no longer exists")
		}
		m.clampSelection()
		return m, m.showToast(domain.ToastSuccess, "Deleted from history")

	case KeyDownload:
		if current == nil {
			return m, nil
		}
		return m, m.downloadCmd(history.DownloadAsText(*current))

	case KeyDownloadAll:
		if m.deps.History.Len() == 0 {
			return m, m.showToast(domain.ToastInfo, "History is empty")
		}
		return m, m.downloadCmd(m.deps.History.DownloadAll())

	case KeyClearAll:
		if m.deps.History.Len() > 0 {
			m.confirmClear = true
		}

	case KeyFilter:
		m.filter.Type = nextFilter(m.filter.Type)
		m.selected = 0

	case KeySavedOnly:
		m.filter.SavedOnly = !m.filter.SavedOnly
		m.selected = 0

	case KeyUnsaveAll:
		n := 0
		for _, t := range filterTypes(m.filter.Type) {
			n += m.deps.History.UnmarkAll(t)
		}
		if n == 0 {
			return m, m.showToast(domain.ToastInfo, "No saved entries")
		}
		m.clampSelection()
		return m, m.showToast(domain.ToastSuccess, fmt.Sprintf("Unsaved %d entries", n))
	}
	return m, nil
}

func nextFilter(cur domain.EntryType) domain.EntryType {
	for i, t := range filterCycle {
		if t == cur {
			return filterCycle[(i+1)%len(filterCycle)]
		}
	}
	return ""
}

func filterTypes(t domain.EntryType) []domain.EntryType {
	if t != "" {
		return []domain.EntryType{t}
	}
	return []domain.EntryType{domain.EntryLipReading, domain.EntryGesture}
}

// navigate switches pages and runs the session hooks in the background.
func (m Model) navigate(to Page) (tea.Model, tea.Cmd) {
	from := m.page
	if from == to {
		return m, nil
	}
	m.page = to
	m.confirmClear = false
	m.selected = 0
	if idx := indexOf(homeMenu, to); idx >= 0 {
		m.homeItem = idx
	}

	sessions := m.deps.Sessions
	speaker := m.deps.Speech
	_, fromMode := from.mode()
	toMode, entering := to.mode()

	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if fromMode {
			speaker.Stop()
		}
		var err error
		switch {
		case entering:
			err = sessions.EnterPage(ctx, toMode)
		case fromMode:
			err = sessions.LeavePage(ctx)
		}
		if err != nil {
			return PageErrorMsg{Err: err}
		}
		return nil
	}
}

func indexOf(pages []Page, p Page) int {
	for i, q := range pages {
		if q == p {
			return i
		}
	}
	return -1
}

// background runs fn off the UI goroutine. Controllers report through the
// sink, which must not be called from Update.
func (m Model) background(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return actionErrMsg{Err: err}
		}
		return nil
	}
}

func (m Model) downloadCmd(d history.Download) tea.Cmd {
	dir := m.deps.DownloadsDir
	return func() tea.Msg {
		path, err := history.WriteFile(dir, d)
		return DownloadedMsg{Path: path, Err: err}
	}
}

// shutdownCmd stops every session and releases the camera before quitting.
func (m Model) shutdownCmd() tea.Cmd {
	sessions := m.deps.Sessions
	speaker := m.deps.Speech
	log := m.deps.Log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		speaker.Stop()
		if err := sessions.StopAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("shutdown incomplete", logging.Err(err))
		}
		return ShutdownMsg{}
	}
}

func (m *Model) showToast(level domain.ToastLevel, message string) tea.Cmd {
	t := domain.Toast{Level: level, Message: message}
	if m.deps.Notifier != nil {
		m.deps.Notifier.Dispatch(t)
	}
	return m.setToast(t)
}

// setToast displays t and schedules its removal.
func (m *Model) setToast(t domain.Toast) tea.Cmd {
	m.toastSeq++
	m.toast = &t
	seq := m.toastSeq
	return tea.Tick(toastTimeout, func(time.Time) tea.Msg {
		return ClearToastMsg{Seq: seq}
	})
}

func (m *Model) clampSelection() {
	if m.page != PageHistory {
		return
	}
	n := len(m.deps.History.List(m.filter))
	if m.selected >= n {
		m.selected = max(0, n-1)
	}
}
