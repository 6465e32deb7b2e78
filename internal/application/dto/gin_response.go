package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/credence/pkg/errors"
)

// SendError writes the client-safe form of err and aborts the chain.
// A rate limit error also sets Retry-After.
func SendError(c *gin.Context, err error) {
	if ce, ok := errors.AsCredenceError(err); ok {
		if v, ok := ce.Metadata()["retry_after"].(int64); ok && v > 0 {
			c.Header("Retry-After", strconv.FormatInt(v, 10))
		}
	}
	status, body := errors.ToErrorResponse(err)
	c.AbortWithStatusJSON(status, body)
}

// SendSuccess writes data with status.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
