package attendance

import (
	"context"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

// MeetingLookup resolves a meeting by ID. Meetings are read-only to the
// attendance engine — discovery/sync from a third-party directory is an
// external collaborator.
type MeetingLookup interface {
	GetMeeting(meetingID string) (*models.Meeting, bool)
}

// ParticipantLookup resolves a webhook-supplied email to a participant
// account and that participant's assigned Court Representative.
// Registration/login lives outside the engine; this is the narrow seam
// the engine needs to avoid synthesizing phantom records.
type ParticipantLookup interface {
	FindByEmail(email string) (participantID string, ok bool)
	CourtRepFor(participantID string) (courtRepID string, ok bool)
}

// Finalizer runs the finalization pipeline (engagement scoring, fraud
// evaluation, ledger sealing, Court Card mint, outcome gating) against a
// COMPLETED record whose meeting window has closed. The scheduler owns the
// concrete implementation; the reconciler calls it on the "leave after
// window close" path so both entry points share one pipeline.
type Finalizer interface {
	Finalize(ctx context.Context, recordID string) error
}
