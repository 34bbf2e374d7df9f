package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/evidence-x/pkg/errors"
	"github.com/kart-io/evidence-x/pkg/utils/response"
)

// RecoveryConfig defines the config for Recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace includes the stack trace in the error message (development only).
	EnableStackTrace bool
}

// Recovery returns a middleware that converts panics into ErrPanic responses.
func Recovery(config RecoveryConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()
			logger.Errorw("panic recovered",
				"path", c.Request.URL.Path,
				"request_id", GetRequestID(c),
				"panic", r,
				"stack", string(stack),
			)

			msg := fmt.Sprintf("panic: %v", r)
			if config.EnableStackTrace {
				msg += "\n" + string(stack)
			}
			resp := response.Err(errors.ErrPanic.WithMessage(msg)).WithRequestID(GetRequestID(c))
			defer response.Release(resp)
			c.AbortWithStatusJSON(resp.HTTPStatus(), resp)
		}()
		c.Next()
	}
}
