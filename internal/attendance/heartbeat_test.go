package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

func TestApplyHeartbeat_RecomputesDurations(t *testing.T) {
	r, _ := newTestReconciler()
	now := time.Now()

	joined, err := r.JoinMeeting(context.Background(), "p1", "m1", "ZOOM", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 4; i++ {
		_, err := r.store.ApplyHeartbeat(joined.AttendanceID, HeartbeatData{
			TabFocused:    true,
			MouseMovement: true,
		}, now.Add(time.Duration(i)*heartbeatInterval))
		if err != nil {
			t.Fatalf("heartbeat %d failed: %v", i, err)
		}
	}

	rec := r.store.Get(joined.AttendanceID)
	if rec.ActiveDurationMin <= 0 {
		t.Errorf("expected positive active duration after four ACTIVE heartbeats, got %f", rec.ActiveDurationMin)
	}
	if rec.VerificationMethod != models.VerificationScreenActivity {
		t.Errorf("expected SCREEN_ACTIVITY verification method, got %s", rec.VerificationMethod)
	}
}

func TestApplyHeartbeat_RejectsWhenNotInProgress(t *testing.T) {
	r, _ := newTestReconciler()
	now := time.Now()

	joined, _ := r.JoinMeeting(context.Background(), "p1", "m1", "ZOOM", now)
	_, _ = r.LeaveMeeting(context.Background(), joined.AttendanceID, now.Add(5*time.Minute))

	_, err := r.store.ApplyHeartbeat(joined.AttendanceID, HeartbeatData{TabFocused: true}, now.Add(6*time.Minute))
	if err != models.ErrNotInProgress {
		t.Errorf("expected ErrNotInProgress after leaving, got %v", err)
	}
}
