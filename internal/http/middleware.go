package http

import (
	"net/http"
	"strings"

	"github.com/convoflow/convoflow-server/internal/guest"
	"github.com/convoflow/convoflow-server/internal/security"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	// ContextUserIDKey holds the authenticated or guest user ID.
	ContextUserIDKey = "user_id"
	// ContextAnonymousKey holds whether the caller is a guest.
	ContextAnonymousKey = "anonymous"
)

// GuestIDHeader carries the guest identifier for anonymous callers.
const GuestIDHeader = "X-Guest-Id"

// AuthMiddleware authenticates a request either by session JWT (registered
// users) or by guest identifier header (anonymous users, checked by the
// guest validator).
func AuthMiddleware(jwtSecret string, validator *guest.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(authHeader, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			claims, errParse := security.ParseSessionToken(jwtSecret, token)
			if errParse != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
				return
			}
			c.Set(ContextUserIDKey, claims.UserID)
			c.Set(ContextAnonymousKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader(GuestIDHeader))
		if guestID != "" {
			if !validator.Validate(c.Request.Context(), guestID) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid guest identifier"})
				return
			}
			c.Set(ContextUserIDKey, guestID)
			c.Set(ContextAnonymousKey, true)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

// callerID returns the authenticated user ID set by the middleware.
func callerID(c *gin.Context) string {
	value, ok := c.Get(ContextUserIDKey)
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}
