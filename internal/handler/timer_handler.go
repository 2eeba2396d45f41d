package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "flowtimer/internal/errors"
	"flowtimer/internal/model"
	"flowtimer/internal/service"
	"flowtimer/internal/timer"
)

// keepAliveInterval keeps proxies from closing idle event streams.
const keepAliveInterval = 25 * time.Second

type TimerHandler struct {
	timerService *service.TimerService
}

type versionRequest struct {
	BaseVersion int `json:"baseVersion"`
}

type switchModeRequest struct {
	BaseVersion int    `json:"baseVersion"`
	Mode        string `json:"mode"`
}

type updateDurationsRequest struct {
	BaseVersion int `json:"baseVersion"`
	Pomodoro    int `json:"pomodoro"`
	ShortBreak  int `json:"shortBreak"`
	LongBreak   int `json:"longBreak"`
}

type intentionRequest struct {
	BaseVersion int    `json:"baseVersion"`
	Intention   string `json:"intention"`
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	state, apiErr := h.timerService.GetState(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Start(c *gin.Context) {
	h.transition(c, h.timerService.Start)
}

func (h *TimerHandler) Pause(c *gin.Context) {
	h.transition(c, h.timerService.Pause)
}

func (h *TimerHandler) Reset(c *gin.Context) {
	h.transition(c, h.timerService.Reset)
}

func (h *TimerHandler) Wake(c *gin.Context) {
	h.transition(c, h.timerService.Wake)
}

func (h *TimerHandler) SwitchMode(c *gin.Context) {
	var req switchModeRequest
	if !bindJSON(c, &req, false) {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	state, apiErr := h.timerService.SwitchMode(c.Request.Context(), userID, req.Mode, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) UpdateDurations(c *gin.Context) {
	var req updateDurationsRequest
	if !bindJSON(c, &req, false) {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	state, apiErr := h.timerService.UpdateDurations(c.Request.Context(), userID, model.DurationConfig{
		Pomodoro:   req.Pomodoro,
		ShortBreak: req.ShortBreak,
		LongBreak:  req.LongBreak,
	}, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) SetIntention(c *gin.Context) {
	var req intentionRequest
	if !bindJSON(c, &req, false) {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	state, apiErr := h.timerService.SetIntention(c.Request.Context(), userID, req.Intention, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// Events streams the timer as server-sent events: one "state" event with
// the current snapshot, then one per change until the client disconnects.
func (h *TimerHandler) Events(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	events, cancel, apiErr := h.timerService.Subscribe(ctx, userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	defer cancel()

	current, apiErr := h.timerService.GetState(ctx, userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("state", timer.Event{Snapshot: *current})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("state", event)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"serverTime": time.Now().UTC()})
			return true
		}
	})
}

func (h *TimerHandler) transition(
	c *gin.Context,
	apply func(ctx context.Context, userID string, baseVersion int) (*timer.Snapshot, *apperrors.APIError),
) {
	var req versionRequest
	if !bindJSON(c, &req, true) {
		return
	}
	if req.BaseVersion < 0 {
		writeError(c, apperrors.BadRequest("invalid_base_version", "baseVersion must not be negative"))
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	state, apiErr := apply(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}
