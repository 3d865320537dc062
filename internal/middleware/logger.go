package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs every request except those for the given paths
func Logger(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if _, ok := skip[path]; ok {
			return
		}
		if raw != "" {
			path = path + "?" + raw
		}

		line := "[HTTP] %s %s %s %d %v"
		args := []interface{}{c.Request.Method, path, c.ClientIP(), c.Writer.Status(), time.Since(start)}
		if subject, ok := c.Get(SubjectKey); ok {
			line += " sub=%v"
			args = append(args, subject)
		}
		if len(c.Errors) > 0 {
			line += " %s"
			args = append(args, c.Errors.String())
		}
		log.Printf(line, args...)
	}
}
