package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"building_automation/internal/engine"
	"building_automation/internal/models"
	"building_automation/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK        = "ok"
	statusModeSet   = "mode_set"
	statusApplied   = "applied"
	statusRuleAdded = "rule_added"

	errGetState        = "failed to load state"
	errInvalidBodyPref = "invalid body: "

	codeBadRequest = "BAD_REQUEST"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error string `json:"error" example:"override: rejected, mode is not MANUAL (mode AUTO)"`
	Code  string `json:"code" example:"REJECTED_OVERRIDE"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownMacro):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrRejectedOverride),
		errors.Is(err, engine.ErrOverlappingWindow),
		errors.Is(err, engine.ErrDuplicateRule):
		return http.StatusConflict
	case engine.ErrorCode(err) != engine.CodeInternal:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, errorResponse{Error: userMsg, Code: engine.ErrorCode(err)})
}

// commandError writes a rejected command. Engine rejections are expected and logged at info.
func (h *Handler) commandError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logAndJSONError(c, status, "internal error", logKey, err, kv...)
		return
	}
	h.log.Infow(logKey, append([]interface{}{"err", err, "user_id", operatorID(c)}, kv...)...)
	c.JSON(status, errorResponse{Error: err.Error(), Code: engine.ErrorCode(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: errInvalidBodyPref + err.Error(), Code: codeBadRequest})
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	if view, err := h.services.Monitoring.GetState(c.Request.Context()); err == nil {
		resp["mode"] = view.Mode
		resp["state"] = view.State
	}
	c.JSON(http.StatusOK, resp)
}

// SetModeRequest is the payload of POST /api/v1/bas/mode.
type SetModeRequest struct {
	// Mode to set. Allowed: MANUAL, AUTO, SCHEDULE, ENERGY_SAVING (case-insensitive)
	Mode string `json:"mode" binding:"required" example:"AUTO"`
}

// OverrideRequest is the payload of POST /api/v1/bas/override. Omitted fields keep their value.
type OverrideRequest struct {
	Lighting     *int     `json:"lighting,omitempty" example:"60"`
	TemperatureC *float64 `json:"temperature_c,omitempty" example:"21.5"`
	DoorLock     *string  `json:"door_lock,omitempty" example:"UNLOCKED"`
}

func (r OverrideRequest) command() (models.ManualOverrideCommand, error) {
	var cmd models.ManualOverrideCommand
	if r.Lighting != nil {
		l := models.Lighting(*r.Lighting)
		cmd.Lighting = &l
	}
	cmd.TemperatureC = r.TemperatureC
	if r.DoorLock != nil {
		d, err := models.ParseDoorLock(*r.DoorLock)
		if err != nil {
			return cmd, fmt.Errorf("%w: %v", engine.ErrInvalidTarget, err)
		}
		cmd.DoorLock = &d
	}
	return cmd, nil
}

// ScheduleRuleRequest is the payload of POST /api/v1/bas/schedule.
type ScheduleRuleRequest struct {
	ID           string  `json:"id,omitempty" example:"night"`
	Name         string  `json:"name" example:"Night"`
	Start        string  `json:"start" binding:"required" example:"22:00"`
	End          string  `json:"end" binding:"required" example:"06:00"`
	Lighting     int     `json:"lighting" example:"0"`
	TemperatureC float64 `json:"temperature_c" example:"19"`
	DoorLock     string  `json:"door_lock,omitempty" example:"LOCKED"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get controller state
// @Description  Active mode, committed device state and the last sensor snapshot
// @Tags         bas
// @Produce      json
// @Success      200  {object}  service.StateView
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/bas/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	view, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "bas_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary      Set operating mode
// @Description  Every mode is reachable from every other. The device state follows on the next cycle.
// @Tags         bas
// @Accept       json
// @Produce      json
// @Param        body  body      SetModeRequest  true  "Mode payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/v1/bas/mode [post]
// @Security     BearerAuth
func (h *Handler) setMode(c *gin.Context) {
	var req SetModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	mode := models.ParseMode(req.Mode)
	if err := h.services.Control.SetMode(c.Request.Context(), mode); err != nil {
		h.commandError(c, "bas_set_mode_failed", err, "mode", req.Mode)
		return
	}
	h.respondWithStatusAndState(c, statusModeSet, gin.H{})
}

// @Summary      Manual override
// @Description  Sets any subset of lighting, temperature_c and door_lock. Accepted only in MANUAL mode.
// @Tags         bas
// @Accept       json
// @Produce      json
// @Param        body  body      OverrideRequest  true  "Override payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse  "not in MANUAL mode"
// @Router       /api/v1/bas/override [post]
// @Security     BearerAuth
func (h *Handler) override(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd, err := req.command()
	if err != nil {
		h.commandError(c, "bas_override_failed", err)
		return
	}
	st, err := h.services.Control.Override(c.Request.Context(), cmd)
	if err != nil {
		h.commandError(c, "bas_override_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusApplied, "state": st})
}

// @Summary      List macros
// @Tags         bas
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, macros"
// @Failure      401  {object}  errorResponse
// @Router       /api/v1/bas/macros [get]
// @Security     BearerAuth
func (h *Handler) listMacros(c *gin.Context) {
	macros := h.services.Monitoring.ListMacros(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"count": len(macros), "macros": macros})
}

// @Summary      Invoke macro
// @Description  Applies the macro's targets in any mode. Names are case-insensitive.
// @Tags         bas
// @Produce      json
// @Param        name  path      string  true  "Macro name"  example(Night)
// @Success      200   {object}  map[string]interface{}
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/v1/bas/macros/{name} [post]
// @Security     BearerAuth
func (h *Handler) invokeMacro(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	st, err := h.services.Control.InvokeMacro(c.Request.Context(), name)
	if err != nil {
		h.commandError(c, "bas_macro_failed", err, "macro", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusApplied, "macro": name, "state": st})
}

// @Summary      List schedule rules
// @Tags         bas
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, rules"
// @Failure      401  {object}  errorResponse
// @Router       /api/v1/bas/schedule [get]
// @Security     BearerAuth
func (h *Handler) listSchedule(c *gin.Context) {
	rules := h.services.Monitoring.ListRules(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"count": len(rules), "rules": rules})
}

// @Summary      Add schedule rule
// @Description  Windows are [start, end) in HH:MM; start > end crosses midnight. Overlapping windows are rejected.
// @Tags         bas
// @Accept       json
// @Produce      json
// @Param        body  body      ScheduleRuleRequest  true  "Rule payload"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse  "overlapping window"
// @Router       /api/v1/bas/schedule [post]
// @Security     BearerAuth
func (h *Handler) addScheduleRule(c *gin.Context) {
	var req ScheduleRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rule, err := h.services.Control.AddScheduleRule(c.Request.Context(), service.ScheduleRuleParams{
		ID:           req.ID,
		Name:         req.Name,
		Start:        req.Start,
		End:          req.End,
		Lighting:     models.Lighting(req.Lighting),
		TemperatureC: req.TemperatureC,
		DoorLock:     req.DoorLock,
	})
	if err != nil {
		h.commandError(c, "bas_schedule_add_failed", err, "start", req.Start, "end", req.End)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": statusRuleAdded, "rule": rule})
}
