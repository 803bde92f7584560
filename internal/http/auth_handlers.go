package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/convoflow/convoflow-server/internal/db"
	"github.com/convoflow/convoflow-server/internal/security"
	"github.com/convoflow/convoflow-server/internal/users"
	"github.com/gin-gonic/gin"
)

// AuthHandler serves guest bootstrap and account endpoints.
type AuthHandler struct {
	registry      *users.Registry
	jwtSecret     string
	sessionExpiry time.Duration
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(registry *users.Registry, jwtSecret string, sessionExpiry time.Duration) *AuthHandler {
	return &AuthHandler{registry: registry, jwtSecret: jwtSecret, sessionExpiry: sessionExpiry}
}

// Guest creates an anonymous user and returns its identifier. The client
// presents it on subsequent requests via the guest header.
func (h *AuthHandler) Guest(c *gin.Context) {
	user, errCreate := h.registry.CreateGuest(c.Request.Context())
	if errCreate != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user_id":   user.ID,
		"anonymous": true,
	})
}

// registerRequest defines the request body for account registration.
type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// Register creates a registered account and returns a session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	user, errRegister := h.registry.Register(c.Request.Context(), body.Email, body.DisplayName, body.Password)
	switch {
	case errors.Is(errRegister, users.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email or password"})
		return
	case errors.Is(errRegister, users.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	case errRegister != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		return
	}

	h.respondWithSession(c, http.StatusCreated, user.ID, body.Email)
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	user, errAuth := h.registry.Authenticate(c.Request.Context(), body.Email, body.Password)
	switch {
	case errors.Is(errAuth, users.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	case errors.Is(errAuth, db.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		return
	case errAuth != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		return
	}

	h.registry.TouchLastActive(c.Request.Context(), user.ID)

	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	h.respondWithSession(c, http.StatusOK, user.ID, email)
}

func (h *AuthHandler) respondWithSession(c *gin.Context, status int, userID, email string) {
	token, errToken := security.GenerateSessionToken(h.jwtSecret, userID, email, h.sessionExpiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue session"})
		return
	}
	c.JSON(status, gin.H{
		"user_id": userID,
		"token":   token,
	})
}
