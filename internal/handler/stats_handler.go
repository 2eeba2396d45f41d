package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "flowtimer/internal/errors"
	"flowtimer/internal/service"
)

type StatsHandler struct {
	statsService *service.StatsService
	clock        func() time.Time
}

type rateRequest struct {
	Rating int `json:"rating"`
}

type preferencesRequest struct {
	DailyFocusGoalMinutes int `json:"dailyFocusGoalMinutes"`
}

func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService, clock: time.Now}
}

func (h *StatsHandler) Dashboard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	days, ok := queryInt(c, "days", service.DefaultRangeDays)
	if !ok {
		return
	}
	loc, ok := location(c)
	if !ok {
		return
	}

	dashboard, apiErr := h.statsService.Dashboard(c.Request.Context(), userID, days, loc)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dashboard": dashboard})
}

// Calendar defaults to the current month in the requested zone.
func (h *StatsHandler) Calendar(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	loc, ok := location(c)
	if !ok {
		return
	}
	now := h.clock().In(loc)
	year, ok := queryInt(c, "year", now.Year())
	if !ok {
		return
	}
	month, ok := queryInt(c, "month", int(now.Month()))
	if !ok {
		return
	}

	calendar, apiErr := h.statsService.Calendar(c.Request.Context(), userID, year, time.Month(month), loc)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendar": calendar})
}

func (h *StatsHandler) Report(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	days, ok := queryInt(c, "days", 30)
	if !ok {
		return
	}
	loc, ok := location(c)
	if !ok {
		return
	}

	pdf, apiErr := h.statsService.Report(c.Request.Context(), userID, days, loc)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	filename := fmt.Sprintf("focus-report-%s.pdf", h.clock().In(loc).Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *StatsHandler) ListSessions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}

	sessions, apiErr := h.statsService.ListSessions(c.Request.Context(), userID, limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *StatsHandler) RateSession(c *gin.Context) {
	var req rateRequest
	if !bindJSON(c, &req, false) {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	session, apiErr := h.statsService.RateSession(c.Request.Context(), userID, c.Param("id"), req.Rating)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *StatsHandler) GetPreferences(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	prefs, apiErr := h.statsService.GetPreferences(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func (h *StatsHandler) UpdatePreferences(c *gin.Context) {
	var req preferencesRequest
	if !bindJSON(c, &req, false) {
		return
	}
	if req.DailyFocusGoalMinutes == 0 {
		writeError(c, apperrors.BadRequest("invalid_goal", "dailyFocusGoalMinutes is required"))
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	prefs, apiErr := h.statsService.UpdateDailyGoal(c.Request.Context(), userID, req.DailyFocusGoalMinutes)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}
