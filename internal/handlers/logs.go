package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"building_automation/internal/models"
	"building_automation/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errRange       = "'from' must be <= 'to'"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

var queryLayouts = []string{time.RFC3339, layoutDateTime, layoutDate}

type logsResponse struct {
	Count  int                      `json:"count"`
	Events []models.ControllerEvent `json:"events"`
}

// @Summary      List logs
// @Description  Activity log: mode changes, overrides, macros, state changes, rejected commands and sensor clamps. A date-only 'to' covers the whole day.
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to    query   string  false  "End of range, inclusive. Date-only means end of that day."  example(2025-08-31)
// @Param        type  query   string  false  "Event type"  Enums(START,STOP,MODE_CHANGE,OVERRIDE,MACRO,STATE_CHANGE,SCHEDULE_RULE,SENSOR_CLAMPED,REJECTED)
// @Success      200   {object}  logsResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	filter, msg := parseLogFilter(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: codeBadRequest})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), filter)
	switch {
	case errors.Is(err, service.ErrUnknownEventType):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: codeBadRequest})
		return
	case err != nil:
		h.log.Errorw("logs_list_failed", "err", err, "from", filter.From, "to", filter.To, "type", filter.Type)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load logs", Code: codeInternal})
		return
	}
	if events == nil {
		events = []models.ControllerEvent{}
	}
	c.JSON(http.StatusOK, logsResponse{Count: len(events), Events: events})
}

// parseLogFilter reads from/to/type. The second result is a 400 message.
func parseLogFilter(c *gin.Context) (service.LogFilter, string) {
	var f service.LogFilter
	f.Type = strings.ToUpper(strings.TrimSpace(c.Query("type")))

	if qs := c.Query("from"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, errFromInvalid
		}
		f.From = t
	}
	if qs := c.Query("to"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, errToInvalid
		}
		if isDateOnly(qs) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errRange
	}
	return f, ""
}

func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// parseQueryTime accepts the queryLayouts and returns UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range queryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format %q", s)
}
