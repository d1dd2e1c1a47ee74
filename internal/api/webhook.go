package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/proofmeet/attendance-engine/internal/attendance"
)

type videoWebhookPayload struct {
	Event          string `json:"event"`
	ParticipantEmail string `json:"participantEmail"`
	MeetingID      string `json:"meetingId"`
	Timestamp      time.Time `json:"timestamp"`
}

// handleVideoWebhook verifies the HMAC signature on the raw body before
// parsing anything, then applies the event through the reconciler. A bad
// signature is dropped silently — webhooks from a provider are not a
// channel where revealing "wrong secret" vs "wrong shape" to a caller is
// useful, and a generic 401 would tell an attacker their guess was close.
func (h *APIHandler) handleVideoWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if h.webhookSecret != "" {
		signature := c.GetHeader("X-Webhook-Signature")
		if !validHMAC(body, signature, h.webhookSecret) {
			c.Status(http.StatusNoContent)
			return
		}
	}

	var payload videoWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	ev := attendance.WebhookEvent{
		Type:      payload.Event,
		Email:     payload.ParticipantEmail,
		MeetingID: payload.MeetingID,
		Timestamp: payload.Timestamp,
	}
	if err := h.reconciler.ApplyWebhookEvent(c.Request.Context(), ev); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func validHMAC(body []byte, signatureHex, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signatureHex)) == 1
}
