package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/proofmeet/attendance-engine/internal/signing"
	"github.com/proofmeet/attendance-engine/pkg/models"
)

// signParticipant produces a ed25519 participant signature over a card.
// Password re-verification against the court roster's identity store
// happens upstream of this engine (it owns no password store of its own);
// by the time a request reaches here, the bearer session already proves
// the caller is who they claim to be.
func (h *APIHandler) signParticipant(cardID, signerID, signerName string, at time.Time) (models.Signature, error) {
	return h.sign(cardID, signerID, signerName, models.SignerRoleParticipant, models.SignatureMethodPassword, at)
}

func (h *APIHandler) sign(cardID, signerID, signerName, role, method string, at time.Time) (models.Signature, error) {
	signed, err := signing.Sign(cardID, signerID, role, at)
	if err != nil {
		return models.Signature{}, err
	}
	return models.Signature{
		SignerID:        signerID,
		SignerName:      signerName,
		SignerRole:      role,
		Timestamp:       at,
		SignatureHex:    signed.SignatureHex,
		PublicKeyHex:    signed.PublicKeyHex,
		SignatureMethod: method,
	}, nil
}

// handleHostSignatureChallenge issues a one-use verification code bound to
// an existing attendance record, emailed out-of-band to the meeting host.
// It does not check that the record is finalized or already has a card. The email delivery itself is outside the engine's scope;
// this endpoint only mints and persists the code.
func (h *APIHandler) handleHostSignatureChallenge(c *gin.Context) {
	recordID := c.Param("recordId")
	hostEmail := c.Query("email")

	rec := h.manager.Get(recordID)
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}

	code := uuid.NewString()
	req := models.HostSignatureRequest{
		AttendanceRecordID: recordID,
		VerificationCode:   code,
		HostEmail:          hostEmail,
		CreatedAt:          time.Now(),
	}
	if h.dbStore != nil {
		if err := h.dbStore.SaveHostSignatureRequest(c.Request.Context(), req); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"verificationCode": code})
}

// handleHostSignature consumes a one-use verification code and appends a
// MEETING_HOST signature to the bound record's card.
func (h *APIHandler) handleHostSignature(c *gin.Context) {
	var req struct {
		VerificationCode string `json:"verificationCode" binding:"required"`
		HostName         string `json:"hostName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}

	ctx := c.Request.Context()
	recordID, err := h.dbStore.ConsumeHostSignatureRequest(ctx, req.VerificationCode)
	if err != nil {
		c.JSON(errorStatus(models.ErrCodeInvalidOrUsed), gin.H{"error": models.ErrCodeInvalidOrUsed.Error()})
		return
	}

	rec := h.manager.Get(recordID)
	if rec == nil || rec.CardID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	sig, err := h.sign(rec.CardID, req.VerificationCode, req.HostName, models.SignerRoleHost, models.SignatureMethodEmailLink, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.minter.AppendSignature(ctx, rec.CardID, sig); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signed": true})
}
