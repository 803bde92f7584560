package http

import (
	"net/http"
	"time"

	"github.com/convoflow/convoflow-server/internal/credentials"
	"github.com/convoflow/convoflow-server/internal/guest"
	"github.com/convoflow/convoflow-server/internal/quota"
	"github.com/convoflow/convoflow-server/internal/users"
	"github.com/gin-gonic/gin"
)

// RouterDeps bundles the components the HTTP surface exposes.
type RouterDeps struct {
	Registry      *users.Registry
	Validator     *guest.Validator
	Store         *credentials.Store
	Counter       *quota.Counter
	JWTSecret     string
	SessionExpiry time.Duration
}

// RegisterRoutes mounts all API routes on the engine.
func RegisterRoutes(engine *gin.Engine, deps RouterDeps) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := NewAuthHandler(deps.Registry, deps.JWTSecret, deps.SessionExpiry)
	authGroup := engine.Group("/v1/auth")
	{
		authGroup.POST("/guest", authHandler.Guest)
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	keyHandler := NewProviderKeyHandler(deps.Store)
	quotaHandler := NewQuotaHandler(deps.Counter)

	protected := engine.Group("/v1")
	protected.Use(AuthMiddleware(deps.JWTSecret, deps.Validator))
	{
		protected.GET("/provider-keys", keyHandler.List)
		protected.PUT("/provider-keys/:provider", keyHandler.Save)
		protected.DELETE("/provider-keys/:provider", keyHandler.Delete)

		protected.GET("/quota", quotaHandler.Usage)
		protected.POST("/messages/admit", quotaHandler.Admit)
	}
}
