// Package domain holds the value types shared by the BOLT client: capture
// modes, session states, history entries and toasts.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntryType identifies which capture mode produced a history entry.
type EntryType string

const (
	EntryLipReading EntryType = "lip-reading"
	EntryGesture    EntryType = "gesture"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return t == EntryLipReading || t == EntryGesture
}

// Label returns the human-readable name of the entry type.
func (t EntryType) Label() string {
	switch t {
	case EntryLipReading:
		return "Lip Reading"
	case EntryGesture:
		return "Gesture"
	default:
		return string(t)
	}
}

// Mode describes one capture mode and the backend endpoints that drive it.
type Mode struct {
	Type              EntryType
	Label             string
	StartPath         string
	StopPath          string
	ResultType        string // value of "type" in /latest_result for this mode
	FeedPath          string
	DefaultConfidence float64
}

var (
	LipReading = Mode{
		Type:              EntryLipReading,
		Label:             "Lip Reading",
		StartPath:         "/start_lip_reading",
		StopPath:          "/stop_lip_reading",
		ResultType:        "lip-reading",
		FeedPath:          "/video_feed_lip",
		DefaultConfidence: 95,
	}

	Gesture = Mode{
		Type:              EntryGesture,
		Label:             "Hand Gestures",
		StartPath:         "/start_hand_gestures",
		StopPath:          "/stop_hand_gestures",
		ResultType:        "hand-gesture",
		FeedPath:          "/video_feed",
		DefaultConfidence: 0,
	}
)

// Modes lists every capture mode in display order.
func Modes() []Mode {
	return []Mode{LipReading, Gesture}
}

// SessionState is the lifecycle of one capture mode.
type SessionState string

const (
	SessionIdle     SessionState = "idle"
	SessionStarting SessionState = "starting"
	SessionLive     SessionState = "live"
	SessionStopping SessionState = "stopping"
)

// VideoSource identifies who currently owns the camera preview.
type VideoSource string

const (
	VideoNone    VideoSource = "none"
	VideoLocal   VideoSource = "local"
	VideoBackend VideoSource = "backend"
)

// SessionStatus is a snapshot of one mode's session.
type SessionStatus struct {
	Mode       EntryType
	State      SessionState
	Text       string
	Confidence float64
	WarmingUp  bool
}

// Live reports whether the session is live.
func (s SessionStatus) Live() bool { return s.State == SessionLive }

// Busy reports whether the session is between idle and live.
func (s SessionStatus) Busy() bool {
	return s.State == SessionStarting || s.State == SessionStopping || s.WarmingUp
}

// HistoryEntry is one recognized-text record.
type HistoryEntry struct {
	ID         string
	Type       EntryType
	Text       string
	CreatedAt  time.Time
	Confidence *float64
	IsSaved    bool
}

// Timestamp returns the display form of the creation time.
func (e HistoryEntry) Timestamp() string {
	return e.CreatedAt.Local().Format("2006-01-02 15:04:05")
}

// ConfidenceLabel formats the confidence with one decimal, or "n/a".
func (e HistoryEntry) ConfidenceLabel() string {
	if e.Confidence == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *e.Confidence)
}

// ToastLevel classifies a user-visible notice.
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastInfo    ToastLevel = "info"
	ToastError   ToastLevel = "error"
)

// Toast is a short-lived user notice.
type Toast struct {
	Level   ToastLevel
	Message string
}

var gestureMeanings = map[string]string{
	"open palm":  "Stop/Wait",
	"thumbs up":  "Good/Yes/Approve",
	"peace sign": "Victory/Two",
	"pointing":   "Attention/Direction",
	"fist":       "Power/Strength",
	"ok sign":    "Okay/Perfect",
	"rock on":    "Cool/Awesome",
	"number 1":   "One/First",
	"number 2":   "Two/Second",
	"number 3":   "Three/Third",
}

// GestureMeaning returns the conventional meaning of a recognized gesture.
func GestureMeaning(gesture string) (string, bool) {
	meaning, ok := gestureMeanings[strings.ToLower(strings.TrimSpace(gesture))]
	return meaning, ok
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }
