package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"building_automation/internal/models"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite { return &ScheduleSQLite{db: db} }

var _ ScheduleRepo = (*ScheduleSQLite)(nil)

const (
	insertRuleSQL = `
		INSERT INTO schedule_rules (id, name, start_min, end_min, lighting, temperature_c, door_lock, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	selectRulesSQL = `
		SELECT id, name, start_min, end_min, lighting, temperature_c, door_lock, created_at
		FROM schedule_rules ORDER BY created_at ASC, id ASC
	`
)

// Insert stores a rule that the schedule table has already accepted.
func (r *ScheduleSQLite) Insert(ctx context.Context, rule models.ScheduleRule) error {
	created := rule.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, insertRuleSQL,
		rule.ID,
		rule.Name,
		int(rule.Window.Start),
		int(rule.Window.End),
		int(rule.Lighting),
		rule.TemperatureC,
		string(rule.DoorLock),
		created.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert schedule rule %q: %w", rule.ID, err)
	}
	return nil
}

// List returns stored rules in insertion order.
func (r *ScheduleSQLite) List(ctx context.Context) ([]models.ScheduleRule, error) {
	rows, err := r.db.QueryContext(ctx, selectRulesSQL)
	if err != nil {
		return nil, fmt.Errorf("select schedule rules: %w", err)
	}
	defer rows.Close()

	var out []models.ScheduleRule
	for rows.Next() {
		var (
			rule              models.ScheduleRule
			start, end, light int
			lock              string
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &start, &end, &light, &rule.TemperatureC, &lock, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rule.Window = models.TimeWindow{Start: models.ClockTime(start), End: models.ClockTime(end)}
		rule.Lighting = models.Lighting(light)
		rule.DoorLock = models.DoorLock(lock)
		rule.CreatedAt = rule.CreatedAt.UTC()
		out = append(out, rule)
	}
	return out, rows.Err()
}
