package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// handleVerifyCard is the public, unauthenticated Court Card verification
// read. A mismatched or missing hash query parameter is reported, not
// rejected — the point of this endpoint is to tell a reader whether the
// card in front of them matches what the engine minted, not to gate
// access to it.
func (h *APIHandler) handleVerifyCard(c *gin.Context) {
	cardID := c.Param("cardId")
	suppliedHash := c.Query("hash")

	result, err := h.minter.Verify(c.Request.Context(), cardID, suppliedHash, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"card":           result.Card,
		"isTampered":     result.IsTampered,
		"hashMatch":      result.HashMatch,
		"hasSignatures":  result.HasSignatures,
		"signatureCount": result.SignatureCount,
	})
}

// handleRecentAudit surfaces the in-memory verification-access ring
// buffer for operator tooling. It is public like the rest of the
// verification surface, per §4.9: there is no session to gate it with.
func (h *APIHandler) handleRecentAudit(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": h.minter.RecentAccess(limit),
	})
}

// handleChainOfTrust walks the participant's full FINALIZED chain and
// verifies every block links to and signs correctly from the previous
// one, reporting the first break found if any.
func (h *APIHandler) handleChainOfTrust(c *gin.Context) {
	cardID := c.Param("cardId")

	cardModel, err := h.minter.GetCard(c.Request.Context(), cardID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	rec := h.manager.Get(cardModel.AttendanceRecordID)
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attendance record not found"})
		return
	}

	chain := h.manager.ListParticipantChain(rec.ParticipantID, false)
	verifyErr := h.ledger.VerifyChain(chain)

	c.JSON(http.StatusOK, gin.H{
		"participantId": rec.ParticipantID,
		"chainLength":   len(chain),
		"intact":        verifyErr == nil,
		"brokenAt": func() string {
			if verifyErr != nil {
				return verifyErr.Error()
			}
			return ""
		}(),
	})
}
