package http

import (
	"errors"
	"net/http"

	"github.com/convoflow/convoflow-server/internal/db"
	"github.com/convoflow/convoflow-server/internal/quota"
	"github.com/gin-gonic/gin"
)

// QuotaHandler serves quota readout and the message-admission gate.
type QuotaHandler struct {
	counter *quota.Counter
}

// NewQuotaHandler constructs a QuotaHandler.
func NewQuotaHandler(counter *quota.Counter) *QuotaHandler {
	return &QuotaHandler{counter: counter}
}

// Usage returns the caller's current daily counters and limits. The read is
// the degraded one: an unreachable store reports zero counts rather than an
// error so the client keeps working.
func (h *QuotaHandler) Usage(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	counts := h.counter.Get(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{
		"standard_count": counts.Standard,
		"pro_count":      counts.Pro,
		"standard_limit": quota.DailyLimit(quota.TierStandard),
		"pro_limit":      quota.DailyLimit(quota.TierPro),
	})
}

// admitRequest defines the request body for message admission.
type admitRequest struct {
	Tier string `json:"tier"`
}

// Admit gates one outgoing chat message: it checks the daily limit for the
// requested tier and, when allowed, consumes one unit with an atomic
// increment. The chat transport itself lives elsewhere; it calls this gate
// before dispatching to a model provider.
func (h *QuotaHandler) Admit(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body admitRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	tier := quota.Tier(body.Tier)
	if tier == "" {
		tier = quota.TierStandard
	}
	if tier != quota.TierStandard && tier != quota.TierPro {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tier"})
		return
	}

	counts := h.counter.Get(c.Request.Context(), userID)
	if !counts.Allows(tier) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "daily message limit reached",
			"tier":  string(tier),
			"limit": quota.DailyLimit(tier),
		})
		return
	}

	errIncrement := h.counter.Increment(c.Request.Context(), userID, tier)
	switch {
	case errors.Is(errIncrement, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	case errIncrement != nil:
		// Write failures are never swallowed: the message must not go out
		// if its quota consumption could not be recorded.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		return
	}

	remaining := quota.DailyLimit(tier) - counts.For(tier) - 1
	if remaining < 0 {
		remaining = 0
	}
	c.JSON(http.StatusOK, gin.H{
		"admitted":  true,
		"tier":      string(tier),
		"remaining": remaining,
	})
}
