package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"building_automation/internal/models"
	"building_automation/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockControl struct {
	setModeErr  error
	overrideErr error
	macroErr    error
	ruleErr     error

	state models.DeviceState

	lastMode     models.OperatingMode
	lastOverride models.ManualOverrideCommand
	lastMacro    string
	lastRule     service.ScheduleRuleParams
	setModeCalls int
}

func (m *mockControl) SetMode(ctx context.Context, mode models.OperatingMode) error {
	m.setModeCalls++
	m.lastMode = mode
	return m.setModeErr
}
func (m *mockControl) Override(ctx context.Context, cmd models.ManualOverrideCommand) (models.DeviceState, error) {
	m.lastOverride = cmd
	return m.state, m.overrideErr
}
func (m *mockControl) InvokeMacro(ctx context.Context, name string) (models.DeviceState, error) {
	m.lastMacro = name
	return m.state, m.macroErr
}
func (m *mockControl) AddScheduleRule(ctx context.Context, p service.ScheduleRuleParams) (models.ScheduleRule, error) {
	m.lastRule = p
	if m.ruleErr != nil {
		return models.ScheduleRule{}, m.ruleErr
	}
	start, _ := models.ParseClock(p.Start)
	end, _ := models.ParseClock(p.End)
	return models.ScheduleRule{
		ID:      p.ID,
		Name:    p.Name,
		Window:  models.TimeWindow{Start: start, End: end},
		Targets: models.Targets{Lighting: p.Lighting, TemperatureC: p.TemperatureC, DoorLock: models.DoorLocked},
	}, nil
}

// mockMonitoring is read from the websocket writer goroutine, so access is locked.
type mockMonitoring struct {
	mu     sync.Mutex
	view   service.StateView
	err    error
	macros []models.Macro
	rules  []models.ScheduleRule
}

func (m *mockMonitoring) GetState(ctx context.Context) (service.StateView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view, m.err
}
func (m *mockMonitoring) ListMacros(ctx context.Context) []models.Macro {
	return m.macros
}
func (m *mockMonitoring) ListRules(ctx context.Context) []models.ScheduleRule {
	return m.rules
}
func (m *mockMonitoring) setView(v service.StateView) {
	m.mu.Lock()
	m.view = v
	m.mu.Unlock()
}

type mockEventLog struct {
	resp     []models.ControllerEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ControllerEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
