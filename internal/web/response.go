package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sales-predictor/internal/common/errors"
)

// GenericResponse is the JSON envelope of every API reply.
type GenericResponse struct {
	Error   bool        `json:"error"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Status  int         `json:"status"`
}

func SuccessResponse(message string, data interface{}, status ...int) GenericResponse {
	code := http.StatusOK
	if len(status) > 0 {
		code = status[0]
	}
	return GenericResponse{Message: message, Data: data, Status: code}
}

func ErrorResponse(status int, message string, data interface{}) GenericResponse {
	return GenericResponse{Error: true, Message: message, Data: data, Status: status}
}

// respondError writes err as an envelope with the status its code maps to.
func respondError(c *gin.Context, err error) {
	stdErr := errors.AsStandardError(err)
	status := errors.HTTPStatus(stdErr.Code)
	c.JSON(status, ErrorResponse(status, stdErr.UserMessage(), gin.H{
		"code":    stdErr.Code,
		"message": stdErr.Message,
	}))
}
