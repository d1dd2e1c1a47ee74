// Package scheduler runs the Finalization Scheduler: a periodic sweep that
// seals COMPLETED attendance records once their meeting window has closed,
// and the Finalizer implementation the attendance reconciler calls
// directly when a leave arrives after the window is already closed.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/proofmeet/attendance-engine/internal/attendance"
	"github.com/proofmeet/attendance-engine/internal/card"
	"github.com/proofmeet/attendance-engine/internal/fraud"
	"github.com/proofmeet/attendance-engine/internal/ledger"
	"github.com/proofmeet/attendance-engine/internal/notify"
	"github.com/proofmeet/attendance-engine/internal/scoring"
	"github.com/proofmeet/attendance-engine/pkg/models"
)

const (
	sweepInterval      = 5 * time.Minute
	retentionWindow    = 24 * time.Hour
	maxCandidatesPerRun = 200

	riskRejectThreshold = 80
	riskFlagThreshold   = 40
)

// Scheduler owns the finalization pipeline: scoring, fraud evaluation,
// ledger sealing, outcome gating, and card minting, run against every
// COMPLETED record whose meeting window has closed.
type Scheduler struct {
	manager  *attendance.Manager
	meetings attendance.MeetingLookup
	ledger   *ledger.Ledger
	minter   *card.Minter
	notifier notify.Notifier
}

func New(manager *attendance.Manager, meetings attendance.MeetingLookup, ledger *ledger.Ledger, minter *card.Minter, notifier notify.Notifier) *Scheduler {
	return &Scheduler{manager: manager, meetings: meetings, ledger: ledger, minter: minter, notifier: notifier}
}

// Run starts the periodic sweep. It runs once immediately, then on every
// tick, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	since := time.Now().Add(-retentionWindow)
	candidates := s.manager.ListFinalizationCandidates(since)

	processed := 0
	for _, rec := range candidates {
		if processed >= maxCandidatesPerRun {
			log.Printf("[Scheduler] candidate cap reached (%d), remaining deferred to next sweep", maxCandidatesPerRun)
			break
		}
		meeting, ok := s.meetings.GetMeeting(rec.MeetingID)
		if !ok {
			continue
		}
		if time.Now().Before(meeting.EndTime()) || time.Now().Equal(meeting.EndTime()) {
			continue
		}
		processed++
		if err := s.Finalize(ctx, rec.ID); err != nil {
			log.Printf("[Scheduler] finalize %s failed, will retry next sweep: %v", rec.ID, err)
		}
	}
}

// Finalize implements attendance.Finalizer. It is idempotent: records
// already FINALIZED or REJECTED return immediately, and each sub-step
// (scoring, fraud, ledger, mint) only runs once per record.
func (s *Scheduler) Finalize(ctx context.Context, recordID string) error {
	rec := s.manager.Get(recordID)
	if rec == nil {
		return nil
	}
	if rec.Status == models.StatusFinalized || rec.Status == models.StatusRejected {
		return nil
	}

	meeting, ok := s.meetings.GetMeeting(rec.MeetingID)
	if !ok {
		return models.ErrMeetingNotFound
	}

	engagement := scoring.Score(rec, meeting.DurationMinutes)
	fraudResult := fraud.Evaluate(rec, meeting.DurationMinutes, engagement)

	reject := fraudResult.RiskScore >= riskRejectThreshold ||
		fraudResult.Recommendation == fraud.RecommendationReject ||
		engagement.Level == scoring.LevelSuspicious

	flag := !reject && (fraudResult.RiskScore >= riskFlagThreshold || engagement.Level == scoring.LevelLow)

	now := time.Now()

	if reject {
		_, err := s.manager.WithLock(recordID, func(r *models.AttendanceRecord) error {
			r.Status = models.StatusRejected
			r.IsValid = false
			r.Metadata.EngagementScore = engagement.Score
			r.Metadata.EngagementLevel = engagement.Level
			r.Metadata.EngagementFlags = engagement.Flags
			r.Metadata.FraudRiskScore = fraudResult.RiskScore
			r.Metadata.FraudRecommendation = fraudResult.Recommendation
			r.Metadata.RejectionReason = rejectionReason(fraudResult, engagement)
			finalizedAt := now
			r.Metadata.FinalizedAt = &finalizedAt
			r.Metadata.FinalizedBy = "AUTO_FINALIZATION"
			return nil
		})
		if err != nil {
			return err
		}
		if s.notifier != nil {
			s.notifier.Notify(notify.Event{Kind: notify.KindRejected, RecordID: recordID, Detail: rejectionReason(fraudResult, engagement)})
		}
		return nil
	}

	previousHash := s.previousHashFor(rec.ParticipantID)
	// The block is sealed over the record as it will be stored (FINALIZED),
	// so verification against the live record recomputes the same hash.
	sealView := *rec
	sealView.Status = models.StatusFinalized
	block, err := s.ledger.Seal(&sealView, previousHash)
	if err != nil {
		return err
	}

	validationStatus := models.ValidationPassed
	if flag {
		validationStatus = models.ValidationFlaggedReview
	} else if !fraudResult.PassesThresholds {
		validationStatus = models.ValidationFailed
	}

	violations := make([]models.Violation, 0, len(fraudResult.Violations))
	for _, v := range fraudResult.Violations {
		violations = append(violations, models.Violation{
			Type:      v.Rule,
			Message:   v.Message,
			Severity:  v.Severity,
			Timestamp: now,
		})
	}

	sealed, err := s.manager.WithLock(recordID, func(r *models.AttendanceRecord) error {
		r.Status = models.StatusFinalized
		r.IsValid = validationStatus == models.ValidationPassed || validationStatus == models.ValidationFlaggedReview
		r.Metadata.EngagementScore = engagement.Score
		r.Metadata.EngagementLevel = engagement.Level
		r.Metadata.EngagementFlags = engagement.Flags
		r.Metadata.FraudRiskScore = fraudResult.RiskScore
		r.Metadata.FraudRecommendation = fraudResult.Recommendation
		r.Metadata.Violations = ruleNames(fraudResult)
		r.Metadata.BlockHash = block.BlockHash
		r.Metadata.BlockSignature = block.Signature
		r.Metadata.PreviousHash = block.PreviousHash
		finalizedAt := now
		r.Metadata.FinalizedAt = &finalizedAt
		r.Metadata.FinalizedBy = "AUTO_FINALIZATION"
		return nil
	})
	if err != nil {
		return err
	}

	confidence := confidenceFor(fraudResult.RiskScore)
	c, err := s.minter.Mint(ctx, sealed, validationStatus, violations, confidence, now)
	if err != nil {
		return err
	}

	if _, err := s.manager.WithLock(recordID, func(r *models.AttendanceRecord) error {
		r.CardID = c.ID
		return nil
	}); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.Notify(notify.Event{Kind: notify.KindFinalized, RecordID: recordID, Detail: validationStatus})
	}
	return nil
}

func (s *Scheduler) previousHashFor(participantID string) string {
	chain := s.manager.ListParticipantChain(participantID, true)
	if len(chain) == 0 {
		return ""
	}
	return chain[0].Metadata.BlockHash
}

func confidenceFor(riskScore int) string {
	switch {
	case riskScore < 20:
		return models.ConfidenceHigh
	case riskScore < 50:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func rejectionReason(fr fraud.Result, eng scoring.Assessment) string {
	if eng.Level == scoring.LevelSuspicious {
		return "engagement pattern flagged as suspicious"
	}
	return "fraud risk score " + fraud.RecommendationReject
}

func ruleNames(fr fraud.Result) []string {
	out := make([]string, 0, len(fr.Violations))
	for _, v := range fr.Violations {
		out = append(out, v.Rule)
	}
	return out
}
