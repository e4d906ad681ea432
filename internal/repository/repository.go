package repository

import (
	"context"
	"database/sql"
	"time"

	"building_automation/internal/models"
)

// Operators stores panel operator accounts. Usernames are case-insensitive.
type Operators interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// StateRepo persists the controller mode and the last committed DeviceState.
type StateRepo interface {
	Save(ctx context.Context, s models.PersistedState) error
	Load(ctx context.Context) (models.PersistedState, error)
}

// EventRepo is the append-only activity log.
type EventRepo interface {
	Append(ctx context.Context, e models.ControllerEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ControllerEvent, error)
}

// ScheduleRepo stores schedule rules added at runtime.
type ScheduleRepo interface {
	Insert(ctx context.Context, r models.ScheduleRule) error
	List(ctx context.Context) ([]models.ScheduleRule, error)
}

type Repository struct {
	StateRepo    StateRepo
	EventRepo    EventRepo
	ScheduleRepo ScheduleRepo
	Operators    Operators
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:    NewStateSQLite(db),
		EventRepo:    NewEventSQLite(db),
		ScheduleRepo: NewScheduleSQLite(db),
		Operators:    NewOperatorSQLite(db),
	}
}
