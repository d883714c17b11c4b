package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/devjourney-backend/internal/platform/apierr"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

// RespondServiceError maps a service error onto the envelope. Unexpected
// errors are logged and answered with a generic 500.
func RespondServiceError(c *gin.Context, log *logger.Logger, err error) {
	status := apierr.StatusOf(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	RespondError(c, status, apierr.CodeOf(err, http.StatusText(status)), err)
}

// Abort writes the envelope and stops the handler chain.
func Abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: msg, Code: code})
}
