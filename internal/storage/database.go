package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/patrona-app/patrona-backend/internal/models"
)

// DatabasePingStore backs the ping store with the location_pings table so
// the tracking page survives restarts.
type DatabasePingStore struct {
	db *gorm.DB
}

// NewDatabasePingStore creates a Postgres-backed ping store.
func NewDatabasePingStore(db *gorm.DB) *DatabasePingStore {
	return &DatabasePingStore{db: db}
}

// Upsert inserts or overwrites the session's row, then sweeps rows older
// than the retention window.
func (d *DatabasePingStore) Upsert(sessionID string, lat, lng float64, ts time.Time) error {
	ping := models.LocationPing{
		SessionID: sessionID,
		Latitude:  lat,
		Longitude: lng,
		Timestamp: ts,
		UpdatedAt: time.Now(),
	}

	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "timestamp", "updated_at"}),
	}).Create(&ping).Error
	if err != nil {
		return fmt.Errorf("upsert ping: %w", err)
	}

	cutoff := time.Now().Add(-RetentionWindow)
	if err := d.db.Where("timestamp < ?", cutoff).Delete(&models.LocationPing{}).Error; err != nil {
		return fmt.Errorf("sweep pings: %w", err)
	}
	return nil
}

// Get returns the session's current row.
func (d *DatabasePingStore) Get(sessionID string) (*models.LocationPing, error) {
	var ping models.LocationPing
	err := d.db.First(&ping, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch ping: %w", err)
	}
	return &ping, nil
}
