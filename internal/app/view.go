package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/ui"
	"github.com/jwulff/bolt/internal/video"
)

const recentSavesShown = 5

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	if m.quitting {
		return ui.DimStyle.Render("Stopping sessions...") + "\n"
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	switch m.page {
	case PageLipReading, PageGestures:
		sections = append(sections, m.renderModePage())
	case PageHistory:
		sections = append(sections, m.renderHistoryPage())
	case PageAbout:
		sections = append(sections, renderAboutPage(m.contentWidth()))
	default:
		sections = append(sections, m.renderHomePage())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	if m.toast != nil {
		sections = append(sections, renderToast(*m.toast))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) contentWidth() int {
	return max(20, m.width-4)
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("BOLT")
	page := ui.DimStyle.Render(" · " + m.page.String())

	var live string
	for _, mode := range domain.Modes() {
		if st := m.statuses[mode.Type]; st.State != domain.SessionIdle && st.State != "" {
			live = "  " + renderStateBadge(st)
		}
	}
	return title + page + live
}

func renderStateBadge(st domain.SessionStatus) string {
	switch {
	case st.State == domain.SessionLive && st.WarmingUp:
		return ui.BusyBadgeStyle.Render("⟳ WARMING UP")
	case st.State == domain.SessionLive:
		return ui.LiveBadgeStyle.Render("● LIVE")
	case st.State == domain.SessionStarting:
		return ui.BusyBadgeStyle.Render("⟳ STARTING")
	case st.State == domain.SessionStopping:
		return ui.BusyBadgeStyle.Render("⟳ STOPPING")
	default:
		return ui.IdleBadgeStyle.Render("○ IDLE")
	}
}

func (m Model) renderHomePage() string {
	lines := []string{
		"",
		ui.PageTitleStyle.Render("  Assistive communication with lip reading and hand gestures"),
		"",
	}
	for i, p := range homeMenu {
		label := fmt.Sprintf("%d. %s", i+1, p)
		if i == m.homeItem {
			lines = append(lines, ui.SelectedStyle.Render("> "+label))
		} else {
			lines = append(lines, "  "+label)
		}
	}

	c := m.deps.History.Counts()
	lines = append(lines, "", ui.DimStyle.Render(fmt.Sprintf("  %d history entries, %d saved", c.Total, c.Saved)))
	return strings.Join(lines, "\n")
}

func (m Model) renderModePage() string {
	t, _ := m.page.mode()
	st := m.statuses[t]
	width := m.contentWidth()

	lines := []string{
		ui.PageTitleStyle.Render(m.page.String()) + "  " + renderStateBadge(st),
		renderVideo(m.video),
		"",
	}

	switch {
	case st.Text != "":
		for _, wl := range wrapText(st.Text, width) {
			lines = append(lines, "  "+ui.RecognizedTextStyle.Render(wl))
		}
		lines = append(lines, "  "+ui.ConfidenceStyle.Render(fmt.Sprintf("Confidence: %.1f%%", st.Confidence)))
		if t == domain.EntryGesture {
			if meaning, ok := domain.GestureMeaning(st.Text); ok {
				lines = append(lines, "  "+ui.MeaningStyle.Render("Meaning: "+meaning))
			}
		}
	case st.State == domain.SessionLive:
		lines = append(lines, ui.DimStyle.Render("  Waiting for results..."))
	case st.State == domain.SessionIdle || st.State == "":
		lines = append(lines, ui.DimStyle.Render("  Press Space to start "+strings.ToLower(m.page.String())))
	}

	lines = append(lines, "", m.renderVoice())

	saved := m.deps.History.Saved(t)
	lines = append(lines, "", ui.PageTitleStyle.Render(fmt.Sprintf("Recent Saves (%d)", len(saved))))
	if len(saved) == 0 {
		lines = append(lines, ui.DimStyle.Render("  Nothing saved yet. Press s to save the current text."))
	}
	for i, e := range saved {
		if i == recentSavesShown {
			lines = append(lines, ui.DimStyle.Render(fmt.Sprintf("  … %d more in History", len(saved)-i)))
			break
		}
		ts := ui.TimestampStyle.Render("[" + e.Timestamp() + "]")
		lines = append(lines, truncateToWidth("  "+ts+" "+firstLine(e.Text), width))
	}
	return strings.Join(lines, "\n")
}

func renderVideo(v video.State) string {
	switch v.Source {
	case domain.VideoLocal:
		return ui.DimStyle.Render("Camera: local preview")
	case domain.VideoBackend:
		if v.Frames == 0 {
			return ui.DimStyle.Render("Camera: waiting for backend feed")
		}
		return ui.DimStyle.Render(fmt.Sprintf("Camera: backend feed (%d frames)", v.Frames))
	default:
		return ui.DimStyle.Render("Camera: off")
	}
}

func (m Model) renderVoice() string {
	p := m.deps.Speech.Params()
	voice := fmt.Sprintf("Voice: rate %.1f  pitch %.1f  volume %.1f", p.Rate, p.Pitch, p.Volume)
	if m.speaking {
		return ui.LiveBadgeStyle.Render("♪ ") + voice
	}
	return ui.DimStyle.Render(voice)
}

func (m Model) renderHistoryPage() string {
	width := m.contentWidth()
	c := m.deps.History.Counts()

	filter := "all"
	if m.filter.Type != "" {
		filter = string(m.filter.Type)
	}
	if m.filter.SavedOnly {
		filter += ", saved only"
	}
	lines := []string{
		ui.PageTitleStyle.Render(fmt.Sprintf("History (%d)", c.Total)) +
			ui.DimStyle.Render(fmt.Sprintf("  lip reading %d · gestures %d · saved %d · filter: %s",
				c.LipReading, c.Gesture, c.Saved, filter)),
	}

	if m.confirmClear {
		lines = append(lines, "", ui.ConfirmStyle.Render("  Clear all history? This cannot be undone. (y/n)"))
	}

	entries := m.deps.History.List(m.filter)
	if len(entries) == 0 {
		lines = append(lines, "", ui.DimStyle.Render("  No entries yet. Results appear here while a session is live."))
		return strings.Join(lines, "\n")
	}

	visible := m.historyVisibleLines()
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}
	end := min(len(entries), start+visible)

	for i := start; i < end; i++ {
		e := entries[i]
		mark := "  "
		if e.IsSaved {
			mark = ui.SavedMarkStyle.Render("★ ")
		}
		label := ui.LipReadingLabelStyle.Render("[LIP] ")
		if e.Type == domain.EntryGesture {
			label = ui.GestureLabelStyle.Render("[GST] ")
		}
		ts := ui.TimestampStyle.Render("[" + e.Timestamp() + "]")
		row := mark + ts + " " + label + firstLine(e.Text)
		if i == m.selected {
			lines = append(lines, ui.SelectedStyle.Render("> ")+truncateToWidth(row, width-2))
		} else {
			lines = append(lines, "  "+truncateToWidth(row, width-2))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) historyVisibleLines() int {
	if m.height == 0 {
		return 15
	}
	// Reserve: header(1) + dividers(2) + title(1) + confirm(2) + toast(1) + footer(1)
	return max(3, m.height-8)
}

func renderAboutPage(width int) string {
	text := "BOLT turns a camera into a communication aid. Lip Reading transcribes " +
		"silent speech and Hand Gestures recognizes common signs, both through a local " +
		"inference backend. Recognized text can be read aloud, saved to Recent Saves " +
		"and downloaded as plain text."
	lines := []string{ui.PageTitleStyle.Render("About BOLT"), ""}
	for _, wl := range wrapText(text, width) {
		lines = append(lines, "  "+wl)
	}
	return strings.Join(lines, "\n")
}

func renderToast(t domain.Toast) string {
	switch t.Level {
	case domain.ToastError:
		return ui.ToastErrorStyle.Render("✗ " + t.Message)
	case domain.ToastInfo:
		return ui.ToastInfoStyle.Render("ℹ " + t.Message)
	default:
		return ui.ToastSuccessStyle.Render("✓ " + t.Message)
	}
}

func (m Model) renderFooter() string {
	var parts []string
	key := func(k, desc string) {
		parts = append(parts, ui.FooterKeyStyle.Render(k)+ui.FooterDescStyle.Render(" "+desc))
	}

	switch m.page {
	case PageHome:
		key("j/k", "Nav")
		key("Enter", "Open")
		key("1-4", "Jump")
	case PageLipReading, PageGestures:
		t, _ := m.page.mode()
		if m.statuses[t].State == domain.SessionIdle || m.statuses[t].State == "" {
			key("Space", "Start")
		} else {
			key("Space", "Stop")
		}
		key("s", "Save")
		key("x", "Clear")
		if m.speaking {
			key("p", "Stop voice")
		} else {
			key("p", "Speak")
		}
		key("r/t/v", "Voice")
		key("d", "Download")
		key("Tab", "Switch")
		key("Esc", "Home")
	case PageHistory:
		if m.confirmClear {
			key("y", "Clear all")
			key("n", "Cancel")
			return strings.Join(parts, "  ")
		}
		key("j/k", "Nav")
		key("Enter", "Save/Unsave")
		key("x", "Delete")
		key("d/D", "Download")
		key("f", "Filter")
		key("S", "Saved only")
		key("U", "Unsave all")
		key("C", "Clear all")
		key("Esc", "Home")
	default:
		key("Esc", "Home")
	}
	key("q", "Quit")
	return strings.Join(parts, "  ")
}

// Helpers

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
