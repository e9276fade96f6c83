package model

import "time"

// Load origins.
const (
	OriginSource   = "source"
	OriginSnapshot = "snapshot"
)

// LoadStats describes one dataset load.
type LoadStats struct {
	LoadID         string        `json:"load_id"`
	Source         string        `json:"source"`
	Origin         string        `json:"origin"`
	RecordsRead    int           `json:"records_read"`
	RecordsValid   int           `json:"records_valid"`
	RecordsInvalid int           `json:"records_invalid"`
	Duration       time.Duration `json:"duration"`
	LoadedAt       time.Time     `json:"loaded_at"`
}

// LoadEntry is one row of the persisted load history.
type LoadEntry struct {
	LoadID         string    `json:"load_id"`
	Source         string    `json:"source"`
	Status         string    `json:"status"`
	RecordsValid   int       `json:"records_valid"`
	RecordsInvalid int       `json:"records_invalid"`
	Error          string    `json:"error,omitempty"`
	LoadedAt       time.Time `json:"loaded_at"`
}
