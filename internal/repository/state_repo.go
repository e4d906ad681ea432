package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"building_automation/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	deviceStateRowID = 1

	upsertStateSQL = `
		INSERT INTO device_state (id, mode, lighting, temperature_c, door_lock, last_mode_applied, source, door_unlocked_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			lighting=excluded.lighting,
			temperature_c=excluded.temperature_c,
			door_lock=excluded.door_lock,
			last_mode_applied=excluded.last_mode_applied,
			source=excluded.source,
			door_unlocked_at=excluded.door_unlocked_at,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, mode, lighting, temperature_c, door_lock, last_mode_applied, source, door_unlocked_at, updated_at
		FROM device_state WHERE id=?
	`
)

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// Save upserts the single device_state row.
func (r *StateSQLite) Save(ctx context.Context, s models.PersistedState) error {
	d := s.Device
	updated := d.LastUpdated
	if updated.IsZero() {
		updated = time.Now().UTC()
	} else {
		updated = updated.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertStateSQL,
		deviceStateRowID,
		string(s.Mode),
		int(d.Lighting),
		d.TemperatureC,
		string(d.DoorLock),
		string(d.LastModeApplied),
		d.Source,
		nullableTime(d.DoorUnlockedAt),
		updated,
	)
	return err
}

// Load fetches the device_state row. A zero PersistedState means nothing is stored yet.
func (r *StateSQLite) Load(ctx context.Context) (models.PersistedState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, deviceStateRowID)

	var (
		s        models.PersistedState
		mode     string
		lighting int
		lock     string
		applied  string
		unlocked sql.NullTime
	)
	if err := row.Scan(
		&s.ID,
		&mode,
		&lighting,
		&s.Device.TemperatureC,
		&lock,
		&applied,
		&s.Device.Source,
		&unlocked,
		&s.Device.LastUpdated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PersistedState{}, nil
		}
		return models.PersistedState{}, err
	}

	s.Mode = models.OperatingMode(mode)
	s.Device.Lighting = models.Lighting(lighting)
	s.Device.DoorLock = models.DoorLock(lock)
	s.Device.LastModeApplied = models.OperatingMode(applied)
	if unlocked.Valid {
		s.Device.DoorUnlockedAt = unlocked.Time.UTC()
	}
	s.Device.LastUpdated = s.Device.LastUpdated.UTC()
	return s, nil
}
