package http

import (
	"errors"
	"net/http"

	"github.com/convoflow/convoflow-server/internal/audit"
	"github.com/convoflow/convoflow-server/internal/credentials"
	"github.com/convoflow/convoflow-server/internal/db"
	"github.com/convoflow/convoflow-server/internal/secrets"
	"github.com/gin-gonic/gin"
)

// ProviderKeyHandler serves per-user provider API key endpoints.
type ProviderKeyHandler struct {
	store *credentials.Store
}

// NewProviderKeyHandler constructs a ProviderKeyHandler.
func NewProviderKeyHandler(store *credentials.Store) *ProviderKeyHandler {
	return &ProviderKeyHandler{store: store}
}

// requestMeta captures caller attribution for audit entries.
func requestMeta(c *gin.Context) *audit.RequestMeta {
	return &audit.RequestMeta{
		OriginAddr:  c.ClientIP(),
		ClientAgent: c.Request.UserAgent(),
	}
}

// List returns the caller's provider keys without secret material.
func (h *ProviderKeyHandler) List(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	list, errList := h.store.List(c.Request.Context(), userID)
	if errList != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider_keys": list})
}

// saveProviderKeyRequest defines the request body for saving a key.
type saveProviderKeyRequest struct {
	APIKey string `json:"api_key"`
}

// Save upserts the caller's key for the provider and echoes a masked form.
// The full key value never appears in a response after submission.
func (h *ProviderKeyHandler) Save(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body saveProviderKeyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	provider := c.Param("provider")
	errUpsert := h.store.Upsert(c.Request.Context(), userID, provider, body.APIKey, requestMeta(c))
	switch {
	case errors.Is(errUpsert, credentials.ErrUnknownProvider):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	case errors.Is(errUpsert, credentials.ErrEmptySecret):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing api_key"})
		return
	case errUpsert != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider":   provider,
		"masked_key": secrets.Mask(body.APIKey),
	})
}

// Delete deactivates the caller's key for the provider.
func (h *ProviderKeyHandler) Delete(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	provider := c.Param("provider")
	errDeactivate := h.store.Deactivate(c.Request.Context(), userID, provider, requestMeta(c))
	switch {
	case errors.Is(errDeactivate, credentials.ErrUnknownProvider):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	case errors.Is(errDeactivate, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no key saved for provider"})
		return
	case errDeactivate != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		return
	}

	c.Status(http.StatusNoContent)
}
