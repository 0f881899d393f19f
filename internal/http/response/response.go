// Package response renders the JSON envelope shared by every endpoint.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-identity/internal/service"
)

const statusSuccess = "success"

// Envelope is the success body.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorEnvelope is the failure body.
type ErrorEnvelope struct {
	Status     string            `json:"status"`
	Message    string            `json:"message"`
	StatusCode int               `json:"statusCode"`
	Errors     map[string]string `json:"errors,omitempty"`
	Data       any               `json:"data,omitempty"`
}

// Success writes a success envelope. data may be nil.
func Success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Status: statusSuccess, Message: message, Data: data})
}

// Error writes err as an error envelope. Errors that are not *service.Error
// are logged and reported as 500.
func Error(c *gin.Context, err error) {
	status, body := render(c, err)
	c.JSON(status, body)
}

// Abort is Error followed by aborting the handler chain.
func Abort(c *gin.Context, err error) {
	status, body := render(c, err)
	c.AbortWithStatusJSON(status, body)
}

func render(c *gin.Context, err error) (int, ErrorEnvelope) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		_ = c.Error(err)
		zap.L().Error("unhandled request error",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		return http.StatusInternalServerError, ErrorEnvelope{
			Status:     "error",
			Message:    "Internal server error",
			StatusCode: http.StatusInternalServerError,
		}
	}

	status := svcErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, ErrorEnvelope{
		Status:     label(svcErr.Kind),
		Message:    svcErr.Message,
		StatusCode: status,
		Errors:     svcErr.Fields,
	}
}

func label(kind service.Kind) string {
	switch kind {
	case service.KindValidation, service.KindDuplicate, service.KindAuthentication, service.KindBadRequest:
		return "Bad request"
	}
	return "error"
}
