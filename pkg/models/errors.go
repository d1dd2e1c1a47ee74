package models

import "errors"

// Resource-state errors surfaced to API callers with a stable code. These
// map 1:1 to the conditions the reconciler and ingestion handlers check
// before mutating an AttendanceRecord, except ErrRecordFinalized, which is
// declared but returned by no code path.
var (
	ErrMeetingNotFound   = errors.New("MEETING_NOT_FOUND")
	ErrNoCourtRep        = errors.New("NO_COURT_REP")
	ErrAlreadyAttending  = errors.New("ALREADY_ATTENDING")
	ErrMeetingEnded      = errors.New("MEETING_ENDED")
	ErrNotInProgress     = errors.New("NOT_IN_PROGRESS")
	ErrNotOwner          = errors.New("NOT_OWNER")
	ErrAlreadySigned     = errors.New("ALREADY_SIGNED")
	ErrCodeInvalidOrUsed = errors.New("CODE_INVALID_OR_USED")
	ErrRecordFinalized   = errors.New("RECORD_FINALIZED")
)
