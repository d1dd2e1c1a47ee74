package models

import "time"

// Attendance status values. COMPLETED is provisional — the meeting window
// is still open and the participant may rejoin. FINALIZED and REJECTED
// are terminal.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusFinalized  = "FINALIZED"
	StatusRejected   = "REJECTED"
)

// Verification method recorded on a record, reflecting which ingress
// channels actually contributed timeline events.
const (
	VerificationZoomWebhook    = "ZOOM_WEBHOOK"
	VerificationScreenActivity = "SCREEN_ACTIVITY"
	VerificationBoth           = "BOTH"
	VerificationNone           = "NONE"
)

// Timeline event sources and types.
const (
	SourceWebhook         = "WEBHOOK"
	SourceFrontendMonitor = "FRONTEND_MONITOR"
	SourceSystem          = "SYSTEM"

	EventJoined   = "JOINED"
	EventLeft     = "LEFT"
	EventActive   = "ACTIVE"
	EventIdle     = "IDLE"
	EventReaction = "REACTION"
	EventSystem   = "SYSTEM"
)

// TimelineEvent is an append-only datum recording one observation against
// an AttendanceRecord. Never edited after append; the source timestamp is
// preserved even though acceptance order (not event-time order) governs
// the slice position.
type TimelineEvent struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// AbsencePeriod is an interval subtracted from raw duration to yield net
// duration, recorded whenever the reconciler detects a dropped or
// explicitly re-opened session.
type AbsencePeriod struct {
	LeftAt         time.Time `json:"leftAt"`
	RejoinedAt     time.Time `json:"rejoinedAt"`
	AbsenceMinutes float64   `json:"absenceMinutes"`
	DetectedFrom   string    `json:"detectedFrom"` // STALE_IN_PROGRESS / EXPLICIT_REJOIN
}

// RecordMetadata holds derived and audit fields that do not belong on the
// record's primary attributes — absence tracking, scoring output, fraud
// output, ledger linkage, and finalization bookkeeping.
type RecordMetadata struct {
	AbsencePeriods  []AbsencePeriod `json:"absencePeriods,omitempty"`
	RejoinCount     int             `json:"rejoinCount"`
	TemporaryLeave  bool            `json:"temporaryLeave,omitempty"`
	MeetingStillActive bool         `json:"meetingStillActive,omitempty"`

	EngagementScore int      `json:"engagementScore,omitempty"`
	EngagementLevel string   `json:"engagementLevel,omitempty"`
	EngagementFlags []string `json:"engagementFlags,omitempty"`

	FraudRiskScore      int      `json:"fraudRiskScore,omitempty"`
	FraudRecommendation string   `json:"fraudRecommendation,omitempty"`
	Violations          []string `json:"violations,omitempty"`

	BlockHash      string `json:"blockHash,omitempty"`
	BlockSignature string `json:"blockSignature,omitempty"`
	PreviousHash   string `json:"previousHash,omitempty"`

	RejectionReason string     `json:"rejectionReason,omitempty"`
	FinalizedAt     *time.Time `json:"finalizedAt,omitempty"`
	FinalizedBy     string     `json:"finalizedBy,omitempty"`
}

// AttendanceRecord is the authoritative per-meeting-per-participant
// object mutated by ingestion, reconciliation, and finalization.
type AttendanceRecord struct {
	ID             string `json:"id"`
	ParticipantID  string `json:"participantId"`
	CourtRepID     string `json:"courtRepId"`
	MeetingID      string `json:"meetingId"`
	MeetingName    string `json:"meetingName"`
	MeetingProgram string `json:"meetingProgram"`
	MeetingDate    time.Time `json:"meetingDate"`

	JoinTime  time.Time `json:"joinTime"`
	LeaveTime time.Time `json:"leaveTime"`

	TotalDurationMin  float64 `json:"totalDurationMin"`
	ActiveDurationMin float64 `json:"activeDurationMin"`
	IdleDurationMin   float64 `json:"idleDurationMin"`
	AttendancePercent float64 `json:"attendancePercent"`

	Status             string `json:"status"`
	IsValid            bool   `json:"isValid"`
	VerificationMethod string `json:"verificationMethod"`

	ActivityTimeline []TimelineEvent `json:"activityTimeline"`
	Metadata         RecordMetadata  `json:"metadata"`

	CardID string `json:"cardId,omitempty"`
}

// Meeting is read-only to the attendance engine; it is looked up, never
// mutated, from an external meeting directory.
type Meeting struct {
	ID                string    `json:"id"`
	ScheduledStart    time.Time `json:"scheduledStart"`
	DurationMinutes   int       `json:"durationMinutes"`
	ExpectedJoinEmail string    `json:"expectedJoinEmail,omitempty"`
	Program           string    `json:"program"`
}

// EndTime returns the scheduled close of the meeting window.
func (m Meeting) EndTime() time.Time {
	return m.ScheduledStart.Add(time.Duration(m.DurationMinutes) * time.Minute)
}

// HostSignatureRequest is the transient single-use code binding a
// requested host-attestation link to one AttendanceRecord.
type HostSignatureRequest struct {
	AttendanceRecordID string    `json:"attendanceRecordId"`
	VerificationCode   string    `json:"verificationCode"`
	HostEmail          string    `json:"hostEmail,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	Used               bool      `json:"used"`
}
