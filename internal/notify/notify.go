// Package notify mirrors toasts to desktop notifications.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"

	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/logging"
)

const appName = "BOLT"

// SendFunc delivers one desktop notification.
type SendFunc func(title, message string) error

func beeepSend(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Notifier forwards toasts to the desktop when enabled. Success toasts stay
// in the UI only.
type Notifier struct {
	enabled bool
	send    SendFunc
	log     *slog.Logger
}

func New(enabled bool, log *slog.Logger) *Notifier {
	return NewWithSender(enabled, beeepSend, log)
}

func NewWithSender(enabled bool, send SendFunc, log *slog.Logger) *Notifier {
	return &Notifier{
		enabled: enabled,
		send:    send,
		log:     log.With(slog.String("component", "notify")),
	}
}

// Toast delivers t synchronously; callers on a UI goroutine should use Dispatch.
func (n *Notifier) Toast(t domain.Toast) {
	if !n.enabled || t.Level == domain.ToastSuccess {
		return
	}
	if err := n.send(title(t.Level), t.Message); err != nil {
		n.log.Debug("desktop notification failed", logging.Err(err))
	}
}

// Dispatch delivers t in the background.
func (n *Notifier) Dispatch(t domain.Toast) {
	if !n.enabled {
		return
	}
	go n.Toast(t)
}

func title(level domain.ToastLevel) string {
	switch level {
	case domain.ToastError:
		return appName + " error"
	default:
		return appName
	}
}
