package service

import (
	"context"
	"time"

	"building_automation/internal/engine"
	"building_automation/internal/models"
	"building_automation/internal/repository"

	"go.uber.org/zap"
)

// Authorization manages panel operators and their session tokens.
type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Control exposes the operator commands. Every call is persisted and logged; rejected
// commands are logged as REJECTED and the engine error is returned unchanged.
type Control interface {
	SetMode(ctx context.Context, mode models.OperatingMode) error
	Override(ctx context.Context, cmd models.ManualOverrideCommand) (models.DeviceState, error)
	InvokeMacro(ctx context.Context, name string) (models.DeviceState, error)
	AddScheduleRule(ctx context.Context, p ScheduleRuleParams) (models.ScheduleRule, error)
}

// Monitoring exposes read-only controller state.
type Monitoring interface {
	GetState(ctx context.Context) (StateView, error)
	ListMacros(ctx context.Context) []models.Macro
	ListRules(ctx context.Context) []models.ScheduleRule
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ControllerEvent, error)
}

// Driver runs the decision loop. Stop via context cancellation in main() for graceful shutdown.
type Driver interface {
	Run(ctx context.Context, tick time.Duration)
}

// StatePublisher pushes committed device state to the actuators.
type StatePublisher interface {
	PublishState(ctx context.Context, mode models.OperatingMode, st models.DeviceState) error
}

type nopPublisher struct{}

func (nopPublisher) PublishState(context.Context, models.OperatingMode, models.DeviceState) error {
	return nil
}

// Deps are the non-repository collaborators of the services.
type Deps struct {
	Controller *engine.Controller
	Sensors    SensorSource
	Publisher  StatePublisher
	Log        *zap.SugaredLogger
	Auth       AuthConfig
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Control
	Monitoring
	EventLog
	Driver
	Authorization
}

// NewService wires the repository layer and the controller into concrete services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	rec := newRecorder(repos.StateRepo, repos.EventRepo, deps.Publisher, deps.Log)
	return &Service{
		Control:       NewControlService(deps.Controller, repos.ScheduleRepo, rec),
		Monitoring:    NewMonitoringService(deps.Controller),
		EventLog:      NewEventLogService(repos.EventRepo),
		Driver:        NewDriverService(deps.Controller, deps.Sensors, rec),
		Authorization: NewAuthService(repos.Operators, deps.Auth),
	}
}
