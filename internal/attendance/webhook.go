package attendance

import (
	"context"
	"time"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

// WebhookEventType enumerates the event types carried by the video
// provider's webhook.
const (
	WebhookParticipantJoined = "participant_joined"
	WebhookParticipantLeft   = "participant_left"
	WebhookMeetingStarted    = "meeting_started"
	WebhookMeetingEnded      = "meeting_ended"
)

// WebhookEvent is the normalized shape of an inbound video-provider event,
// already past HMAC verification by the time it reaches the reconciler.
type WebhookEvent struct {
	Type      string
	Email     string
	MeetingID string
	Timestamp time.Time
}

// ApplyWebhookEvent implements spec §4.2(a). Events for an email with no
// matching participant are dropped silently — the provider's roster and
// the court roster are not guaranteed to agree, and a hard error here
// would make the webhook endpoint a denial-of-service vector against
// itself.
func (r *Reconciler) ApplyWebhookEvent(ctx context.Context, ev WebhookEvent) error {
	participantID, ok := r.participants.FindByEmail(ev.Email)
	if !ok {
		return nil
	}

	switch ev.Type {
	case WebhookParticipantJoined:
		return r.applyWebhookJoin(participantID, ev)
	case WebhookParticipantLeft:
		return r.applyWebhookLeave(ctx, participantID, ev)
	case WebhookMeetingStarted, WebhookMeetingEnded:
		// Meeting-lifecycle events carry no participant-level state to
		// reconcile; the scheduler's window-close check already derives
		// the same fact from the meeting's own schedule.
		return nil
	default:
		return nil
	}
}

// applyWebhookJoin only ever updates an AttendanceRecord that already
// exists. A webhook join with no matching IN_PROGRESS record is dropped:
// a record is only ever minted by the join-meeting API, never
// synthesized from provider webhook evidence alone.
func (r *Reconciler) applyWebhookJoin(participantID string, ev WebhookEvent) error {
	existing := r.store.findInProgress(participantID, ev.MeetingID)
	if existing == nil {
		return nil
	}

	_, err := r.store.WithLock(existing.ID, func(rec *models.AttendanceRecord) error {
		rec.ActivityTimeline = append(rec.ActivityTimeline, models.TimelineEvent{
			Type:      models.EventJoined,
			Timestamp: ev.Timestamp,
			Source:    models.SourceWebhook,
		})
		// Earlier evidence of join wins: a webhook confirming a join
		// that predates what screen-activity already recorded moves
		// joinTime back; it never moves it forward.
		if ev.Timestamp.Before(rec.JoinTime) {
			rec.JoinTime = ev.Timestamp
		}
		if rec.VerificationMethod == models.VerificationScreenActivity {
			rec.VerificationMethod = models.VerificationBoth
		} else if rec.VerificationMethod == models.VerificationNone {
			rec.VerificationMethod = models.VerificationZoomWebhook
		}
		return nil
	})
	return err
}

func (r *Reconciler) applyWebhookLeave(ctx context.Context, participantID string, ev WebhookEvent) error {
	existing := r.store.findInProgress(participantID, ev.MeetingID)
	if existing == nil {
		return nil
	}
	_, err := r.LeaveMeeting(ctx, existing.ID, ev.Timestamp)
	return err
}
