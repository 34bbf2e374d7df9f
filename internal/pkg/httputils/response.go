// Package httputils provides HTTP utility functions.
package httputils

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/evidence-x/pkg/errors"
	"github.com/kart-io/evidence-x/pkg/infra/middleware"
	"github.com/kart-io/evidence-x/pkg/utils/response"
	"github.com/kart-io/evidence-x/pkg/validator"
)

// WriteResponse writes the response to the client.
// It handles both success and error cases, ensuring consistent response format.
// Errors are converted with errors.FromError, so context deadlines surface as
// ErrRequestTimeout; the message language follows Accept-Language.
func WriteResponse(c *gin.Context, err error, data any) {
	requestID := middleware.GetRequestID(c)

	if err != nil {
		errno := errors.FromError(err)
		if errno.HTTPStatus() >= 500 {
			logger.Errorw("request failed",
				"request_id", requestID,
				"path", c.FullPath(),
				"code", errno.Code,
				"error", err.Error(),
			)
		}

		lang := validator.LangFromAcceptLanguage(c.GetHeader("Accept-Language"))
		resp := response.ErrWithLang(errno, lang).WithRequestID(requestID)
		defer response.Release(resp)
		c.JSON(resp.HTTPStatus(), resp)
		return
	}

	resp := response.Success(data).WithRequestID(requestID)
	defer response.Release(resp)
	c.JSON(resp.HTTPStatus(), resp)
}

// Abort writes an error response and stops the handler chain.
func Abort(c *gin.Context, err error) {
	WriteResponse(c, err, nil)
	c.Abort()
}
