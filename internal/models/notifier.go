package models

// NotificationLevel mirrors the severity levels of the console's
// notification tray.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notifier delivers user-visible notifications. Every terminal failure
// produces exactly one notification; callers must not use it for per-attempt
// progress.
type Notifier interface {
	Notify(level NotificationLevel, message string)
}
