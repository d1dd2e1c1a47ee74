package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/proofmeet/attendance-engine/internal/attendance"
	"github.com/proofmeet/attendance-engine/pkg/models"
)

// errorStatus maps the stable resource-state error codes to their HTTP
// status, per the error handling design: validation/auth errors aside,
// every resource-state error here is a 400 except MEETING_NOT_FOUND and
// NO_COURT_REP, which read more naturally as 404.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrMeetingNotFound), errors.Is(err, models.ErrNoCourtRep):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyAttending), errors.Is(err, models.ErrMeetingEnded),
		errors.Is(err, models.ErrNotInProgress), errors.Is(err, models.ErrNotOwner),
		errors.Is(err, models.ErrAlreadySigned), errors.Is(err, models.ErrCodeInvalidOrUsed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) handleJoinMeeting(c *gin.Context) {
	var req struct {
		ParticipantID string `json:"participantId" binding:"required"`
		MeetingID     string `json:"meetingId" binding:"required"`
		JoinMethod    string `json:"joinMethod"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reconciler.JoinMeeting(c.Request.Context(), req.ParticipantID, req.MeetingID, req.JoinMethod, time.Now())
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attendanceId":   result.AttendanceID,
		"joinTime":       result.JoinTime,
		"rejoinDetected": result.RejoinDetected,
		"absenceMinutes": result.AbsenceMinutes,
	})
}

func (h *APIHandler) handleLeaveMeeting(c *gin.Context) {
	var req struct {
		AttendanceID string `json:"attendanceId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reconciler.LeaveMeeting(c.Request.Context(), req.AttendanceID, time.Now())
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alreadyProcessed":   result.AlreadyProcessed,
		"totalDurationMin":   result.TotalDurationMin,
		"absenceMinutes":     result.AbsenceMinutes,
		"attendancePercent":  result.AttendancePercent,
		"windowClosed":       result.WindowClosed,
		"courtCardGenerated": result.CourtCardGenerated,
	})
}

func (h *APIHandler) handleActivityHeartbeat(c *gin.Context) {
	var req struct {
		AttendanceID     string `json:"attendanceId" binding:"required"`
		TabFocused       bool   `json:"tabFocused"`
		MouseMovement    bool   `json:"mouseMovement"`
		KeyboardActivity bool   `json:"keyboardActivity"`
		AudioActive      bool   `json:"audioActive"`
		VideoActive      bool   `json:"videoActive"`
		DeviceID         string `json:"deviceId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.manager.ApplyHeartbeat(req.AttendanceID, attendance.HeartbeatData{
		TabFocused:       req.TabFocused,
		MouseMovement:    req.MouseMovement,
		KeyboardActivity: req.KeyboardActivity,
		AudioActive:      req.AudioActive,
		VideoActive:      req.VideoActive,
		DeviceID:         req.DeviceID,
	}, time.Now())
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activeDurationMin": rec.ActiveDurationMin,
		"idleDurationMin":   rec.IdleDurationMin,
	})
}

func (h *APIHandler) handleSignCourtCard(c *gin.Context) {
	cardID := c.Param("cardId")

	var req struct {
		SignerID    string `json:"signerId" binding:"required"`
		SignerName  string `json:"signerName" binding:"required"`
		Password    string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	cardModel, err := h.minter.GetCard(ctx, cardID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	rec := h.manager.Get(cardModel.AttendanceRecordID)
	if rec == nil || rec.ParticipantID != req.SignerID {
		c.JSON(errorStatus(models.ErrNotOwner), gin.H{"error": models.ErrNotOwner.Error()})
		return
	}
	for _, sig := range cardModel.Signatures {
		if sig.SignerRole == models.SignerRoleParticipant {
			c.JSON(errorStatus(models.ErrAlreadySigned), gin.H{"error": models.ErrAlreadySigned.Error()})
			return
		}
	}

	sig, err := h.signParticipant(cardID, req.SignerID, req.SignerName, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.minter.AppendSignature(ctx, cardID, sig); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signed": true})
}
