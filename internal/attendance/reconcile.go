package attendance

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

const (
	heartbeatInterval = 30 * time.Second
	staleThreshold    = 1 * time.Minute
)

// Reconciler is the hard core: it fuses webhook, heartbeat, and explicit
// join/leave events into one authoritative AttendanceRecord, running
// inline on every join/rejoin write as spec'd rather than as a separate
// background pass.
type Reconciler struct {
	store        *Manager
	meetings     MeetingLookup
	participants ParticipantLookup
	finalizer    Finalizer
}

func NewReconciler(store *Manager, meetings MeetingLookup, participants ParticipantLookup, finalizer Finalizer) *Reconciler {
	return &Reconciler{store: store, meetings: meetings, participants: participants, finalizer: finalizer}
}

// JoinResult is the outcome of JoinMeeting.
type JoinResult struct {
	AttendanceID    string
	JoinTime        time.Time
	RejoinDetected  bool
	AbsenceMinutes  float64
}

// JoinMeeting implements spec §4.3's join-meeting state machine.
func (r *Reconciler) JoinMeeting(ctx context.Context, participantID, meetingID, joinMethod string, now time.Time) (*JoinResult, error) {
	meeting, ok := r.meetings.GetMeeting(meetingID)
	if !ok {
		return nil, models.ErrMeetingNotFound
	}
	courtRepID, ok := r.participants.CourtRepFor(participantID)
	if !ok {
		return nil, models.ErrNoCourtRep
	}

	if existing := r.store.findInProgress(participantID, meetingID); existing != nil {
		return r.handleStaleOrActive(existing, now)
	}

	if completed := r.store.findMostRecentCompletedToday(participantID, meetingID, now); completed != nil {
		return r.reopenOrReject(completed, meeting, now)
	}

	rec := &models.AttendanceRecord{
		ID:                 newRecordID(),
		ParticipantID:      participantID,
		CourtRepID:         courtRepID,
		MeetingID:          meetingID,
		MeetingName:        meeting.Program,
		MeetingProgram:     meeting.Program,
		MeetingDate:        meeting.ScheduledStart,
		JoinTime:           now,
		Status:             models.StatusInProgress,
		VerificationMethod: models.VerificationNone,
	}
	rec.ActivityTimeline = append(rec.ActivityTimeline, models.TimelineEvent{
		Type:      models.EventJoined,
		Timestamp: now,
		Source:    models.SourceSystem,
	})
	created := r.store.create(rec)

	return &JoinResult{AttendanceID: created.ID, JoinTime: created.JoinTime}, nil
}

// handleStaleOrActive implements the stale-session-detection branch of
// step 2: a real gap (>= 1 minute, >= 2 prior FRONTEND_MONITOR events)
// is treated as a dropped-session rejoin; anything fresher is rejected
// as ALREADY_ATTENDING.
func (r *Reconciler) handleStaleOrActive(existing *models.AttendanceRecord, now time.Time) (*JoinResult, error) {
	last, count := lastFrontendMonitorEvent(existing.ActivityTimeline)
	if count >= 2 && !last.IsZero() && now.Sub(last) >= staleThreshold {
		leaveMoment := last.Add(heartbeatInterval)
		absenceMinutes := math.Max(0, now.Sub(leaveMoment).Minutes())

		updated, err := r.store.WithLock(existing.ID, func(rec *models.AttendanceRecord) error {
			rec.Metadata.AbsencePeriods = append(rec.Metadata.AbsencePeriods, models.AbsencePeriod{
				LeftAt:         leaveMoment,
				RejoinedAt:     now,
				AbsenceMinutes: absenceMinutes,
				DetectedFrom:   "STALE_IN_PROGRESS",
			})
			rec.Metadata.RejoinCount++
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &JoinResult{AttendanceID: updated.ID, JoinTime: updated.JoinTime, RejoinDetected: true, AbsenceMinutes: absenceMinutes}, nil
	}
	return nil, models.ErrAlreadyAttending
}

// reopenOrReject implements step 3: reopen a same-day provisional
// COMPLETED record if the window hasn't closed, else MEETING_ENDED.
func (r *Reconciler) reopenOrReject(completed *models.AttendanceRecord, meeting *models.Meeting, now time.Time) (*JoinResult, error) {
	if now.After(meeting.EndTime()) {
		return nil, models.ErrMeetingEnded
	}

	updated, err := r.store.WithLock(completed.ID, func(rec *models.AttendanceRecord) error {
		rec.Metadata.AbsencePeriods = append(rec.Metadata.AbsencePeriods, models.AbsencePeriod{
			LeftAt:         rec.LeaveTime,
			RejoinedAt:     now,
			AbsenceMinutes: math.Max(0, now.Sub(rec.LeaveTime).Minutes()),
			DetectedFrom:   "EXPLICIT_REJOIN",
		})
		rec.Metadata.RejoinCount++
		rec.Status = models.StatusInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &JoinResult{AttendanceID: updated.ID, JoinTime: updated.JoinTime, RejoinDetected: true}, nil
}

// LeaveResult is the outcome of LeaveMeeting.
type LeaveResult struct {
	AlreadyProcessed     bool
	TotalDurationMin     float64
	AbsenceMinutes       float64
	AttendancePercent    float64
	WindowClosed         bool
	CourtCardGenerated   bool
}

// LeaveMeeting implements spec §4.3's leave-meeting / webhook participant_left
// path, including the tie-break: whichever of a webhook-left and an explicit
// leave-meeting call applies first wins; the second observes a record that
// is no longer IN_PROGRESS and is a no-op.
func (r *Reconciler) LeaveMeeting(ctx context.Context, attendanceID string, leaveTime time.Time) (*LeaveResult, error) {
	rec := r.store.Get(attendanceID)
	if rec == nil {
		return nil, models.ErrNotInProgress
	}
	meeting, ok := r.meetings.GetMeeting(rec.MeetingID)
	if !ok {
		return nil, models.ErrMeetingNotFound
	}

	if rec.Status != models.StatusInProgress {
		return &LeaveResult{AlreadyProcessed: true}, nil
	}

	windowClosed := leaveTime.After(meeting.EndTime())

	var computedAbsence, netDuration, pct float64
	_, err := r.store.WithLock(attendanceID, func(rec *models.AttendanceRecord) error {
		if rec.Status != models.StatusInProgress {
			return nil
		}
		rawDuration := leaveTime.Sub(rec.JoinTime).Minutes()
		for _, a := range rec.Metadata.AbsencePeriods {
			computedAbsence += a.AbsenceMinutes
		}
		netDuration = math.Max(0, rawDuration-computedAbsence)

		if meeting.DurationMinutes <= 0 {
			pct = 0
		} else {
			pct = math.Min(100, netDuration/float64(meeting.DurationMinutes)*100)
		}

		rec.LeaveTime = leaveTime
		rec.TotalDurationMin = netDuration
		rec.AttendancePercent = pct

		if windowClosed {
			// Finalization pipeline takes it from here; status transitions
			// to FINALIZED or REJECTED inside it.
			rec.Status = models.StatusCompleted
		} else {
			rec.Status = models.StatusCompleted
			rec.IdleDurationMin = computedAbsence
			rec.Metadata.TemporaryLeave = true
			rec.Metadata.MeetingStillActive = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &LeaveResult{
		TotalDurationMin:  netDuration,
		AbsenceMinutes:    computedAbsence,
		AttendancePercent: pct,
		WindowClosed:      windowClosed,
	}

	if windowClosed {
		if err := r.finalizer.Finalize(ctx, attendanceID); err != nil {
			// Finalization failures are logged here and retried on the
			// next sweeper pass; the participant is not blocked.
			log.Printf("[Reconcile] finalize %s failed, will retry next sweep: %v", attendanceID, err)
			return result, nil
		}
		final := r.store.Get(attendanceID)
		result.CourtCardGenerated = final != nil && final.CardID != ""
	}

	return result, nil
}

// lastFrontendMonitorEvent returns the most recent FRONTEND_MONITOR event
// timestamp and the total count of such events in the timeline.
func lastFrontendMonitorEvent(timeline []models.TimelineEvent) (time.Time, int) {
	var last time.Time
	count := 0
	for _, ev := range timeline {
		if ev.Source != models.SourceFrontendMonitor {
			continue
		}
		count++
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
	}
	return last, count
}
