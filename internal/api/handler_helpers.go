package api

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/yourname/skilltracker/internal"
	"github.com/yourname/skilltracker/internal/auth"
	"github.com/yourname/skilltracker/internal/response"
	"github.com/yourname/skilltracker/internal/service"
)

// statusFor maps the error taxonomy onto HTTP status codes. The three failure
// kinds of the storage contract stay distinguishable to clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, internal.ErrValidation):
		return 400
	case errors.Is(err, service.ErrInvalidCredentials):
		return 401
	case errors.Is(err, internal.ErrNotFound):
		return 404
	case errors.Is(err, internal.ErrConflict):
		return 409
	case errors.Is(err, internal.ErrUnavailable):
		return 503
	default:
		return 500
	}
}

func HandleError(c *gin.Context, logger internal.Logger, err error, msg string) {
	requestID := c.GetString("request_id")
	status := statusFor(err)
	logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	var resp response.APIResponse
	switch status {
	case 400:
		resp = response.BadRequest(msg + ": " + err.Error())
	case 404:
		resp = response.NotFound(msg + ": " + err.Error())
	case 409:
		resp = response.Conflict(msg + ": " + err.Error())
	case 503:
		resp = response.Unavailable(msg)
	case 500:
		resp = response.InternalError(msg)
	default:
		resp = response.NewAppError(status, msg)
	}
	c.JSON(status, resp)
}

func HandleSuccess(c *gin.Context, logger internal.Logger, status int, data interface{}, meta map[string]any) {
	requestID := c.GetString("request_id")
	logger.Infof("[request_id=%s] Success", requestID)
	c.JSON(status, response.Success(data, meta))
}

func ownerID(c *gin.Context) string {
	return c.GetString(auth.OwnerIDKey)
}

// wrapBindErr marks malformed request bodies as validation failures.
func wrapBindErr(err error) error {
	return fmt.Errorf("%w: %v", internal.ErrValidation, err)
}
