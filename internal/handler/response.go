package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "flowtimer/internal/errors"
	"flowtimer/internal/middleware"
)

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	if apiErr == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "internal_error",
				"message": "internal server error",
			},
		})
		return
	}
	if apiErr.Cause != nil {
		log.Printf("%s %s: %s: %v", c.Request.Method, c.FullPath(), apiErr.Message, apiErr.Cause)
	}

	errorBody := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Details != nil {
		errorBody["details"] = apiErr.Details
	}

	c.JSON(apiErr.Status, gin.H{
		"error": errorBody,
	})
}

func writeInvalidJSON(c *gin.Context) {
	writeError(c, apperrors.BadRequest("invalid_json", "invalid request body"))
}

// bindJSON binds the request body into req and answers 400 on failure.
// An empty body is accepted when optional is set.
func bindJSON(c *gin.Context, req interface{}, optional bool) bool {
	if optional && (c.Request.Body == nil || c.Request.ContentLength == 0) {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeInvalidJSON(c)
		return false
	}
	return true
}

func requireUser(c *gin.Context) (string, bool) {
	userID := middleware.UserID(c)
	if userID == "" {
		writeError(c, apperrors.Unauthorized(""))
		return "", false
	}
	return userID, true
}

// location reads the optional IANA "tz" query parameter used to decide
// calendar days.
func location(c *gin.Context) (*time.Location, bool) {
	name := c.Query("tz")
	if name == "" {
		return time.Local, true
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_timezone", "tz must be an IANA time zone name"))
		return nil, false
	}
	return loc, true
}

// queryInt parses an integer query parameter, answering 400 when it is
// present but malformed.
func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_"+key, key+" must be an integer"))
		return 0, false
	}
	return parsed, true
}
