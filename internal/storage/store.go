package storage

import (
	"errors"
	"time"

	"github.com/patrona-app/patrona-backend/internal/models"
)

// ErrNotFound is returned when no ping exists for a session.
var ErrNotFound = errors.New("session not found")

// RetentionWindow is how long a ping survives before the sweep removes it,
// measured against the stored timestamp rather than arrival time.
const RetentionWindow = 12 * time.Hour

// PingStore holds the single most recent position per session, consumed by
// the public tracking page. Upsert is last-write-wins with no ordering
// check: a ping delayed in transit can overwrite a fresher one. The
// retention sweep runs inline after every write — it is the only cleanup
// mechanism.
type PingStore interface {
	Upsert(sessionID string, lat, lng float64, ts time.Time) error
	Get(sessionID string) (*models.LocationPing, error)
}
