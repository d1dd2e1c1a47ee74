package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

type fakeMeetings struct {
	meetings map[string]*models.Meeting
}

func (f *fakeMeetings) GetMeeting(id string) (*models.Meeting, bool) {
	m, ok := f.meetings[id]
	return m, ok
}

type fakeParticipants struct {
	emails    map[string]string
	courtReps map[string]string
}

func (f *fakeParticipants) FindByEmail(email string) (string, bool) {
	id, ok := f.emails[email]
	return id, ok
}

func (f *fakeParticipants) CourtRepFor(participantID string) (string, bool) {
	id, ok := f.courtReps[participantID]
	return id, ok
}

type fakeFinalizer struct {
	calls []string
}

func (f *fakeFinalizer) Finalize(ctx context.Context, recordID string) error {
	f.calls = append(f.calls, recordID)
	return nil
}

func newTestReconciler() (*Reconciler, *fakeFinalizer) {
	now := time.Now()
	meetings := &fakeMeetings{meetings: map[string]*models.Meeting{
		"m1": {ID: "m1", ScheduledStart: now.Add(-30 * time.Minute), DurationMinutes: 60, Program: "Anger Management"},
	}}
	participants := &fakeParticipants{
		emails:    map[string]string{"p@example.org": "p1"},
		courtReps: map[string]string{"p1": "rep1"},
	}
	finalizer := &fakeFinalizer{}
	manager := NewManager(nil)
	reconciler := NewReconciler(manager, meetings, participants, finalizer)
	return reconciler, finalizer
}

func TestJoinMeeting_CreatesNewRecord(t *testing.T) {
	r, _ := newTestReconciler()

	result, err := r.JoinMeeting(context.Background(), "p1", "m1", "ZOOM", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AttendanceID == "" {
		t.Errorf("expected a generated attendance id")
	}

	rec := r.store.Get(result.AttendanceID)
	if rec.Status != models.StatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", rec.Status)
	}
}

func TestJoinMeeting_UnknownMeetingFails(t *testing.T) {
	r, _ := newTestReconciler()

	_, err := r.JoinMeeting(context.Background(), "p1", "does-not-exist", "ZOOM", time.Now())
	if err != models.ErrMeetingNotFound {
		t.Errorf("expected ErrMeetingNotFound, got %v", err)
	}
}

func TestJoinMeeting_FreshInProgressRejectsAsAlreadyAttending(t *testing.T) {
	r, _ := newTestReconciler()
	now := time.Now()

	first, err := r.JoinMeeting(context.Background(), "p1", "m1", "ZOOM", now)
	if err != nil {
		t.Fatalf("unexpected error on first join: %v", err)
	}
	_ = first

	_, err = r.JoinMeeting(context.Background(), "p1", "m1", "ZOOM", now.Add(10*time.Second))
	if err != models.ErrAlreadyAttending {
		t.Errorf("expected ErrAlreadyAttending for a fresh session, got %v", err)
	}
}

func TestJoinMeeting_StaleSessionDetectedAsRejoin(t *testing.T) {
	r, _ := newTestReconciler()
	now := time.Now()

	first, err := r.JoinMeeting(context.Background(), "p1", "m1", "ZOOM", now)
	if err != nil {
		t.Fatalf("unexpected error on first join: %v", err)
	}

	lastSeen := now.Add(2 * time.Minute)
	_, err = r.store.WithLock(first.AttendanceID, func(rec *models.AttendanceRecord) error {
		rec.ActivityTimeline = append(rec.ActivityTimeline,
			models.TimelineEvent{Type: models.EventActive, Timestamp: lastSeen.Add(-30 * time.Second), Source: models.SourceFrontendMonitor},
			models.TimelineEvent{Type: models.EventActive, Timestamp: lastSeen, Source: models.SourceFrontendMonitor},
		)
		return nil
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	rejoinTime := lastSeen.Add(5 * time.Minute)
	result, err := r.JoinMeeting(context.Background(), "p1", "m1", "ZOOM", rejoinTime)
	if err != nil {
		t.Fatalf("expected stale-session rejoin to succeed, got: %v", err)
	}
	if !result.RejoinDetected {
		t.Errorf("expected RejoinDetected=true")
	}
	if result.AbsenceMinutes <= 0 {
		t.Errorf("expected positive absence minutes, got %f", result.AbsenceMinutes)
	}
}

func TestLeaveMeeting_BeforeWindowCloseIsProvisional(t *testing.T) {
	r, finalizer := newTestReconciler()
	now := time.Now()

	joined, _ := r.JoinMeeting(context.Background(), "p1", "m1", "ZOOM", now)

	result, err := r.LeaveMeeting(context.Background(), joined.AttendanceID, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WindowClosed {
		t.Errorf("expected window still open")
	}
	rec := r.store.Get(joined.AttendanceID)
	if rec.Status != models.StatusCompleted {
		t.Errorf("expected provisional COMPLETED, got %s", rec.Status)
	}
	if len(finalizer.calls) != 0 {
		t.Errorf("finalizer should not run before window close")
	}
}

func TestLeaveMeeting_AfterWindowCloseTriggersFinalization(t *testing.T) {
	r, finalizer := newTestReconciler()
	now := time.Now()

	joined, _ := r.JoinMeeting(context.Background(), "p1", "m1", "ZOOM", now)

	// meeting window closes 30 minutes from "now" (started 30 min ago, 60 min long)
	result, err := r.LeaveMeeting(context.Background(), joined.AttendanceID, now.Add(45*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.WindowClosed {
		t.Errorf("expected window to be reported closed")
	}
	if len(finalizer.calls) != 1 {
		t.Errorf("expected exactly one finalization call, got %d", len(finalizer.calls))
	}
}

func TestLeaveMeeting_SecondCallIsNoOp(t *testing.T) {
	r, _ := newTestReconciler()
	now := time.Now()

	joined, _ := r.JoinMeeting(context.Background(), "p1", "m1", "ZOOM", now)
	_, err := r.LeaveMeeting(context.Background(), joined.AttendanceID, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := r.LeaveMeeting(context.Background(), joined.AttendanceID, now.Add(11*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error on second leave: %v", err)
	}
	if !result.AlreadyProcessed {
		t.Errorf("expected the second leave-meeting call to be a no-op")
	}
}
