package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"github.com/yungbote/devjourney-backend/internal/http/response"
	"github.com/yungbote/devjourney-backend/internal/platform/ctxutil"
)

const ownerKey = "owner"

const maxSubjectIDLen = 128

// RequireOwner pairs the authenticated user with the subjectId path param.
// It must run after RequireAuth.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil || rd.UserID == uuid.Nil {
			response.Abort(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		subjectID := strings.TrimSpace(c.Param("subjectId"))
		if subjectID == "" || len(subjectID) > maxSubjectIDLen {
			response.Abort(c, http.StatusBadRequest, "invalid_subject_id", "subjectId is required")
			return
		}
		c.Set(ownerKey, types.Owner{UserID: rd.UserID, SubjectID: subjectID})
		c.Next()
	}
}

// OwnerFrom returns the owner set by RequireOwner.
func OwnerFrom(c *gin.Context) (types.Owner, bool) {
	v, ok := c.Get(ownerKey)
	if !ok {
		return types.Owner{}, false
	}
	owner, ok := v.(types.Owner)
	return owner, ok
}
