package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AbortWithError writes the JSON error body and stops the chain. Server
// errors only expose the leading segment of the message so wrapped causes
// (paths, driver errors) stay in the logs.
func AbortWithError(ctx *gin.Context, status int, code string, err error) {
	ctx.Abort()
	ctx.Error(err)
	ctx.PureJSON(status, APIError{
		Code:    code,
		Message: publicMessage(status, err),
	})
}

func publicMessage(status int, err error) string {
	msg := err.Error()
	if status < http.StatusInternalServerError {
		return msg
	}
	if i := strings.Index(msg, ": "); i > 0 {
		msg = msg[:i]
	}
	return msg
}
