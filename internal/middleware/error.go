package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-console/internal/handler"
)

// ErrorHandler logs every error attached to the context and, unless the
// handler already wrote a body, answers with the last one.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			status := handler.StatusOf(e.Err)
			var evt *zerolog.Event
			if status >= 500 {
				evt = log.Error()
			} else {
				evt = log.Warn()
			}
			evt.Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Int("status", status).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last().Err
		c.JSON(handler.StatusOf(lastErr), handler.NewErrorResponse(handler.MessageOf(lastErr)))
	}
}
