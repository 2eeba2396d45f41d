package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "flowtimer/internal/errors"
)

const UserIDContextKey = "userID"

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	ParseToken(token string) (string, *apperrors.APIError)
}

// AccessTokenParam carries the token for clients that cannot set headers.
const AccessTokenParam = "access_token"

// Auth requires a bearer token. GET requests to queryTokenRoutes (EventSource
// streams, which cannot set headers) may pass it as access_token instead.
func Auth(parser TokenParser, queryTokenRoutes ...string) gin.HandlerFunc {
	queryRoutes := make(map[string]struct{}, len(queryTokenRoutes))
	for _, route := range queryTokenRoutes {
		queryRoutes[route] = struct{}{}
	}

	return func(c *gin.Context) {
		_, allowQuery := queryRoutes[c.FullPath()]
		token, apiErr := bearerToken(c, allowQuery && c.Request.Method == http.MethodGet)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		userID, apiErr := parser.ParseToken(token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(UserIDContextKey, userID)
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, *apperrors.APIError) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if allowQuery {
			if token := c.Query(AccessTokenParam); token != "" {
				return token, nil
			}
		}
		return "", apperrors.Unauthorized("missing authorization header")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", apperrors.Unauthorized("invalid authorization format")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	return token, nil
}

func UserID(c *gin.Context) string {
	return c.GetString(UserIDContextKey)
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}
