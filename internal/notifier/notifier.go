package notifier

import (
	"runtime/debug"

	"github.com/nothingcube/regsync/internal/models"
	"github.com/nothingcube/regsync/pkg/logger"
)

// Notificator fans one user-visible notification out to every configured
// sink. The log sink is always on; Telegram is attached when the operator
// configured a bot.
type Notificator struct {
	logger *logger.Logger

	TelegramNotificator *TelegramNotificator
}

func NewNotificator(logger *logger.Logger, telNotif *TelegramNotificator) *Notificator {
	return &Notificator{logger: logger, TelegramNotificator: telNotif}
}

// safeCall runs a sink with panic recovery so one broken sink cannot take
// the synchronizer down.
func (n *Notificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Notification sink panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Notify delivers one notification. Callers are responsible for calling it
// exactly once per terminal failure.
func (n *Notificator) Notify(level models.NotificationLevel, message string) {
	switch level {
	case models.LevelError:
		n.logger.Error("Notification: ", message)
	default:
		n.logger.Info("Notification: ", message)
	}

	if n.TelegramNotificator != nil {
		n.safeCall(func() { n.TelegramNotificator.Send(level, message) }, "telegramNotification")
	}
}

var _ models.Notifier = (*Notificator)(nil)
