package models

import "time"

// Contact is one emergency contact attached to a walk.
type Contact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"` // E.164 after normalization
	Relationship string `json:"relationship,omitempty"`
}

// WalkSession identifies one monitored walk. It is created when the user
// starts a walk, read-only for the duration, and discarded when the walk
// ends. Exactly one session is active per user at a time.
type WalkSession struct {
	SessionID   string    `json:"session_id"`
	UserName    string    `json:"user_name"`
	SafeWord    string    `json:"-"` // never serialized
	Destination string    `json:"destination,omitempty"`
	Contacts    []Contact `json:"contacts"`
	StartedAt   time.Time `json:"started_at"`
}

// Position is an observed GPS fix.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// WalkStartRequest is the body of POST /api/walk/start.
type WalkStartRequest struct {
	UserName    string    `json:"userName"`
	SafeWord    string    `json:"safeWord"`
	Destination string    `json:"destination"`
	Contacts    []Contact `json:"contacts"`
}

// WalkEventRequest is the body of the walk activity/transcript/end
// endpoints.
type WalkEventRequest struct {
	SessionID  string `json:"sessionId"`
	Transcript string `json:"transcript,omitempty"`
	Reason     string `json:"reason,omitempty"`
}
