package scoring

import (
	"testing"
	"time"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

func frontendEvent(eventType string, at time.Time, data map[string]interface{}) models.TimelineEvent {
	return models.TimelineEvent{Type: eventType, Timestamp: at, Source: models.SourceFrontendMonitor, Data: data}
}

func TestScore_FullEngagementIsHigh(t *testing.T) {
	now := time.Now()
	rec := &models.AttendanceRecord{
		ActivityTimeline: []models.TimelineEvent{
			frontendEvent(models.EventActive, now, map[string]interface{}{
				"videoActive": true, "audioActive": true, "mouseMovement": true,
			}),
		},
	}

	got := Score(rec, 60)
	if got.Level != LevelHigh {
		t.Errorf("expected HIGH level for full engagement, got %s (score %d)", got.Level, got.Score)
	}
}

func TestScore_NoVideoFlagsButStillScores(t *testing.T) {
	now := time.Now()
	rec := &models.AttendanceRecord{
		ActivityTimeline: []models.TimelineEvent{
			frontendEvent(models.EventActive, now, map[string]interface{}{
				"audioActive": true, "mouseMovement": true,
			}),
		},
	}

	got := Score(rec, 60)
	found := false
	for _, f := range got.Flags {
		if f == FlagNoVideo {
			found = true
		}
	}
	if !found {
		t.Errorf("expected NO_VIDEO flag, got flags %v", got.Flags)
	}
}

func TestScore_ZeroActivityLongMeetingFlagged(t *testing.T) {
	rec := &models.AttendanceRecord{ActivityTimeline: nil}

	got := Score(rec, 45)
	found := false
	for _, f := range got.Flags {
		if f == FlagZeroActivity {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ZERO_ACTIVITY flag for a long silent meeting, got flags %v", got.Flags)
	}
	if got.Level != LevelSuspicious {
		t.Errorf("expected ZERO_ACTIVITY to classify as SUSPICIOUS, got %s", got.Level)
	}
}

func TestScore_HighEventRateIsLikelyAutomated(t *testing.T) {
	now := time.Now()
	var timeline []models.TimelineEvent
	for i := 0; i < 600; i++ {
		timeline = append(timeline, frontendEvent(models.EventActive, now.Add(time.Duration(i)*time.Second),
			map[string]interface{}{"mouseMovement": true}))
	}
	rec := &models.AttendanceRecord{ActivityTimeline: timeline}

	got := Score(rec, 10) // 60 events/min
	if got.Level != LevelSuspicious {
		t.Errorf("expected SUSPICIOUS level for an automated-looking rate, got %s", got.Level)
	}
}
