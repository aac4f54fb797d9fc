// Package backend provides the client and wire types for the BOLT inference
// backend, an HTTP server that runs lip-reading and hand-gesture recognition
// and exposes the latest result plus MJPEG preview feeds.
package backend

import "strings"

// Result types reported by /latest_result.
const (
	ResultLipReading  = "lip-reading"
	ResultHandGesture = "hand-gesture"
)

const (
	gesturePrefix    = "Recognized Gesture:"
	noOutputSentinel = "No output"
	healthPath       = "/"
	latestResultPath = "/latest_result"
)

// Result is the body of GET /latest_result.
type Result struct {
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// StartResponse is the body returned by the start endpoints. It is only logged.
type StartResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NormalizeText strips the gesture recognizer's label prefix and maps the
// backend's empty-output placeholder to the empty string.
func NormalizeText(text string) string {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, gesturePrefix); ok {
		text = strings.TrimSpace(rest)
	}
	if text == noOutputSentinel {
		return ""
	}
	return text
}
