package models

// TriggerType says why an emergency alert fired.
type TriggerType string

const (
	TriggerSafeWord  TriggerType = "safeword"
	TriggerSilence   TriggerType = "silence"
	TriggerDeviation TriggerType = "deviation"
)

// Valid reports whether t is one of the known trigger types.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerSafeWord, TriggerSilence, TriggerDeviation:
		return true
	}
	return false
}

// AlertRequest is the body of POST /api/alert.
type AlertRequest struct {
	UserName    string    `json:"userName"`
	Contacts    []Contact `json:"contacts"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	TriggerType string    `json:"triggerType"`
}

// ClearRequest is the body of POST /api/alert/clear.
type ClearRequest struct {
	UserName string    `json:"userName"`
	Contacts []Contact `json:"contacts"`
}

// PingRequest is the body of POST /api/ping. Timestamp is epoch millis;
// zero means "now".
type PingRequest struct {
	SessionID string   `json:"sessionId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp int64    `json:"timestamp"`
}

// DispatchResult aggregates one alert or all-clear fan-out. Failures are
// counted, never attributed to a specific contact in API responses.
type DispatchResult struct {
	Attempted    int      `json:"attempted"`
	MessagesSent int      `json:"messagesSent"`
	Failed       int      `json:"failed"`
	Errors       []string `json:"errors,omitempty"`
	Mock         bool     `json:"mock,omitempty"`
}
