package app

import (
	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/video"
)

// SessionMsg carries a session status snapshot from a controller.
type SessionMsg struct {
	Status domain.SessionStatus
}

// ToastMsg carries a user notice raised outside the UI goroutine.
type ToastMsg struct {
	Toast domain.Toast
}

// VideoMsg carries a camera preview change.
type VideoMsg struct {
	State video.State
}

// SpeechMsg reports whether text is being read aloud.
type SpeechMsg struct {
	Playing bool
}

// PageErrorMsg reports a navigation hook failure, typically the camera.
type PageErrorMsg struct {
	Err error
}

// DownloadedMsg reports a written download.
type DownloadedMsg struct {
	Path string
	Err  error
}

// ClearToastMsg clears the toast with the given sequence after a timeout.
type ClearToastMsg struct {
	Seq int
}

// ShutdownMsg is sent once every session has stopped on quit.
type ShutdownMsg struct{}

// actionErrMsg carries an error from a background action that produced no
// toast of its own.
type actionErrMsg struct {
	Err error
}
