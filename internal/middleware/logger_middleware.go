package middleware

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Logger is gin's request logger with the access token masked in logged
// query strings.
func Logger(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: out,
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
				param.TimeStamp.Format("2006/01/02 - 15:04:05"),
				param.StatusCode,
				param.Latency,
				param.ClientIP,
				param.Method,
				redactQuery(param.Path),
				param.ErrorMessage,
			)
		},
	})
}

func redactQuery(path string) string {
	base, rawQuery, found := strings.Cut(path, "?")
	if !found || !strings.Contains(rawQuery, AccessTokenParam) {
		return path
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return base + "?[unparsed query]"
	}
	if query.Has(AccessTokenParam) {
		query.Set(AccessTokenParam, "REDACTED")
	}
	return base + "?" + query.Encode()
}
