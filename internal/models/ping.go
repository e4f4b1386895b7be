package models

import "time"

// LocationPing holds the single most recent position for a session.
// Upserts overwrite in place — no history is retained.
type LocationPing struct {
	SessionID string    `json:"session_id" gorm:"primaryKey;size:64"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName matches the table the original tracking page reads.
func (LocationPing) TableName() string {
	return "location_pings"
}
