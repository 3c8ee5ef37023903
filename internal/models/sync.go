package models

// SyncState is the connection state of the push channel.
type SyncState string

const (
	SyncDisconnected SyncState = "disconnected"
	SyncConnecting   SyncState = "connecting"
	SyncConnected    SyncState = "connected"
	SyncReconnecting SyncState = "reconnecting"
	SyncFailed       SyncState = "failed"
)

// SyncStatus is a point-in-time snapshot of the push channel.
type SyncStatus struct {
	State    SyncState `json:"state"`
	Attempts int       `json:"attempts"`
}

// SyncSource is the push channel as seen by its consumers.
type SyncSource interface {
	Run() error
	Status() SyncStatus
	Close()
}
