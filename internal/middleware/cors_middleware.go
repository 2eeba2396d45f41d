package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// originMatcher holds exact origins plus "scheme://host:*" patterns that
// accept any port, which covers dev servers that hop between ports.
type originMatcher struct {
	any     bool
	exact   map[string]struct{}
	anyPort []string
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch {
		case origin == "":
		case origin == "*":
			m.any = true
		case strings.HasSuffix(origin, ":*"):
			m.anyPort = append(m.anyPort, strings.TrimSuffix(origin, "*"))
		default:
			m.exact[origin] = struct{}{}
		}
	}
	return m
}

func (m originMatcher) allows(origin string) bool {
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, prefix := range m.anyPort {
		port := strings.TrimPrefix(origin, prefix)
		if port != origin && port != "" && strings.Trim(port, "0123456789") == "" {
			return true
		}
	}
	return false
}

// CORS answers preflight requests for the API and the event stream.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	matcher := newOriginMatcher(allowedOrigins)

	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			switch {
			case matcher.any:
				c.Header("Access-Control-Allow-Origin", "*")
			case matcher.allows(origin):
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		// Last-Event-ID is sent by EventSource on reconnect.
		c.Header("Access-Control-Allow-Headers", "Authorization,Content-Type,Last-Event-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
