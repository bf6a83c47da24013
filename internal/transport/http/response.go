package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	platformerrors "grant-store/internal/platform/errors"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}
	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondFailure maps a domain error onto a status code and aborts the chain.
func RespondFailure(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	if platformerrors.IsKind(err, platformerrors.KindValidation) {
		status = http.StatusBadRequest
		message = err.Error()
	}
	_ = c.Error(err)
	RespondError(c, status, message, nil)
	c.Abort()
}
