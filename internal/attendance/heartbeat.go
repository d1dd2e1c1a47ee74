package attendance

import (
	"time"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

// HeartbeatData is the screen-activity sample carried by one
// activity-heartbeat call, recorded roughly every 30 seconds.
type HeartbeatData struct {
	TabFocused      bool
	MouseMovement   bool
	KeyboardActivity bool
	AudioActive     bool
	VideoActive     bool
	DeviceID        string
}

// ApplyHeartbeat appends an ACTIVE or IDLE event for an IN_PROGRESS record
// and recomputes activeDurationMin/idleDurationMin from the full timeline.
// A heartbeat counts as ACTIVE when the tab is focused and either mouse or
// keyboard activity was observed in the interval; anything else is IDLE.
func (m *Manager) ApplyHeartbeat(attendanceID string, data HeartbeatData, now time.Time) (*models.AttendanceRecord, error) {
	eventType := models.EventIdle
	if data.TabFocused && (data.MouseMovement || data.KeyboardActivity) {
		eventType = models.EventActive
	}

	return m.WithLock(attendanceID, func(rec *models.AttendanceRecord) error {
		if rec.Status != models.StatusInProgress {
			return models.ErrNotInProgress
		}

		rec.ActivityTimeline = append(rec.ActivityTimeline, models.TimelineEvent{
			Type:      eventType,
			Timestamp: now,
			Source:    models.SourceFrontendMonitor,
			Data: map[string]interface{}{
				"tabFocused":       data.TabFocused,
				"mouseMovement":    data.MouseMovement,
				"keyboardActivity": data.KeyboardActivity,
				"audioActive":      data.AudioActive,
				"videoActive":      data.VideoActive,
				"deviceId":         data.DeviceID,
			},
		})

		active, idle := countActivityMinutes(rec.ActivityTimeline)
		rec.ActiveDurationMin = active
		rec.IdleDurationMin = idle

		if rec.VerificationMethod == models.VerificationZoomWebhook {
			rec.VerificationMethod = models.VerificationBoth
		} else if rec.VerificationMethod == models.VerificationNone {
			rec.VerificationMethod = models.VerificationScreenActivity
		}
		return nil
	})
}

// countActivityMinutes derives activeDurationMin as floor(#ACTIVE events *
// heartbeatInterval / 60s) and idleDurationMin the same way over #IDLE
// events, per the fixed heartbeat cadence.
func countActivityMinutes(timeline []models.TimelineEvent) (active, idle float64) {
	var activeCount, idleCount int
	for _, ev := range timeline {
		if ev.Source != models.SourceFrontendMonitor {
			continue
		}
		switch ev.Type {
		case models.EventActive:
			activeCount++
		case models.EventIdle:
			idleCount++
		}
	}
	secondsPer := heartbeatInterval.Seconds()
	active = float64(int(float64(activeCount) * secondsPer / 60))
	idle = float64(int(float64(idleCount) * secondsPer / 60))
	return active, idle
}
