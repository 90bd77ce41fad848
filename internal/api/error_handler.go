package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/pulse-analytics/internal/analysis"
	"github.com/mautops/pulse-analytics/internal/source"
	"github.com/mautops/pulse-analytics/internal/utils"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 将处理器通过 c.Error 记录的错误转换为错误响应
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			return
		}
		code, message := StatusFor(err)
		Error(c, code, message, err.Error())
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// StatusFor 将领域错误映射为 HTTP 状态码和消息
func StatusFor(err error) (int, string) {
	var verr *utils.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, analysis.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "insufficient data"
	case errors.Is(err, analysis.ErrModelNotTrained):
		return http.StatusConflict, "model not trained"
	case errors.Is(err, analysis.ErrEmptyScope):
		return http.StatusNotFound, "no tasks found"
	case errors.Is(err, analysis.ErrInvalidFeature):
		return http.StatusBadRequest, "invalid feature value"
	case errors.Is(err, source.ErrSourceUnavailable):
		return http.StatusServiceUnavailable, "record store unavailable"
	}
	return http.StatusInternalServerError, "internal server error"
}
