package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/xerrors"

	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

// Response is the error envelope
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON sends data as the response body with status 200
func JSON(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error sends an error response
func Error(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound sends a 404 not found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// FromError maps err onto the error taxonomy. Not found and invalid input
// carry their message; anything else is logged through the context and
// answered with a generic 500.
func FromError(c *gin.Context, err error) {
	switch {
	case xerrors.Is(err, models.ErrNotFound):
		NotFound(c, err.Error())
	case xerrors.Is(err, models.ErrInvalidInput):
		BadRequest(c, err.Error())
	default:
		_ = c.Error(err)
		InternalError(c, "internal error")
	}
}
