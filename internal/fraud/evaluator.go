// Package fraud implements the Fraud Evaluator: an ordered rule set that
// accumulates a risk score from the signals an attendance record and its
// engagement assessment expose, then maps the total to a recommendation.
package fraud

import (
	"math"

	"github.com/proofmeet/attendance-engine/internal/scoring"
	"github.com/proofmeet/attendance-engine/pkg/models"
)

const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"

	weightCritical = 40
	weightHigh     = 25
	weightMedium   = 15
	weightLow      = 5

	RecommendationReject = "REJECT"
	RecommendationFlag   = "FLAG_FOR_REVIEW"
	RecommendationApprove = "APPROVE"
)

// Rule names, in evaluation order.
const (
	RuleImpossibleDuration      = "IMPOSSIBLE_DURATION"
	RuleZeroDuration            = "ZERO_DURATION"
	RuleNegativeDuration        = "NEGATIVE_DURATION"
	RuleNoEngagementSignals     = "NO_ENGAGEMENT_SIGNALS"
	RuleInsufficientDuration    = "INSUFFICIENT_DURATION"
	RuleLowEngagementScore      = "LOW_ENGAGEMENT_SCORE"
	RuleSuspiciousActivityPattern = "SUSPICIOUS_ACTIVITY_PATTERN"
	RuleDurationDataMismatch    = "DURATION_DATA_MISMATCH"
	RuleAttendanceBelowThreshold = "ATTENDANCE_BELOW_THRESHOLD"
	RuleRapidJoinLeaveCycles    = "RAPID_JOIN_LEAVE_CYCLES"
	RuleMissingVerificationData = "MISSING_VERIFICATION_DATA"
	RuleExtremelyHighIdleTime   = "EXTREMELY_HIGH_IDLE_TIME"
)

// minimumAttendancePercent and friends are the pass/fail thresholds
// applied independently of the accumulated risk score.
const (
	minimumAttendancePercent = 80.0
	minimumEngagementScore   = 40
	maximumRejoinCount       = 5
)

// Violation is one fired rule.
type Violation struct {
	Rule     string
	Severity string
	Message  string
}

// Result is the outcome of Evaluate.
type Result struct {
	RiskScore      int
	Recommendation string
	Violations     []Violation
	PassesThresholds bool
}

// Evaluate implements spec §4.6's ordered rule list plus the independent
// threshold gate used for PASSED/FAILED card validation status.
func Evaluate(rec *models.AttendanceRecord, meetingDurationMin int, engagement scoring.Assessment) Result {
	var violations []Violation
	score := 0

	add := func(rule, severity, message string, weight int) {
		violations = append(violations, Violation{Rule: rule, Severity: severity, Message: message})
		score += weight
	}

	netDuration := rec.TotalDurationMin
	switch {
	case meetingDurationMin > 0 && netDuration > float64(meetingDurationMin)+15:
		add(RuleImpossibleDuration, SeverityCritical, "recorded duration exceeds the scheduled meeting length by more than 15 minutes", weightCritical)
	case netDuration < 0:
		add(RuleNegativeDuration, SeverityCritical, "recorded duration is negative", weightCritical)
	case netDuration == 0:
		add(RuleZeroDuration, SeverityCritical, "recorded duration is zero", weightCritical)
	}

	if countActiveEvents(rec.ActivityTimeline) == 0 && meetingDurationMin > 10 {
		add(RuleNoEngagementSignals, SeverityCritical, "no active engagement signal across a meeting over 10 minutes long", weightCritical)
	}

	if netDuration < 5 {
		add(RuleInsufficientDuration, SeverityHigh, "net attended duration under 5 minutes", weightHigh)
	}

	if engagement.Score < 30 {
		add(RuleLowEngagementScore, SeverityHigh, "engagement score below 30", weightHigh)
	}
	for _, f := range engagement.Flags {
		if f == scoring.FlagLikelyAutomated {
			add(RuleSuspiciousActivityPattern, SeverityHigh, "activity pattern consistent with automation", weightHigh)
			break
		}
	}

	if webhookMin, ok := webhookSpanMinutes(rec.ActivityTimeline); ok {
		trackedMin := rec.ActiveDurationMin + rec.IdleDurationMin
		if math.Abs(webhookMin-trackedMin) > 10 {
			add(RuleDurationDataMismatch, SeverityHigh, "webhook-reported duration and screen-tracked duration disagree by more than 10 minutes", weightHigh)
		}
	}

	if rec.AttendancePercent < minimumAttendancePercent {
		add(RuleAttendanceBelowThreshold, SeverityHigh, "attendance percent below minimum threshold", weightHigh)
	}

	if rec.Metadata.RejoinCount > maximumRejoinCount {
		add(RuleRapidJoinLeaveCycles, SeverityMedium, "excessive rejoin count suggests connection gaming", weightMedium)
	}

	if !hasWebhookEvent(rec.ActivityTimeline) {
		add(RuleMissingVerificationData, SeverityMedium, "no corroborating webhook events on the timeline", weightMedium)
	}

	if rec.TotalDurationMin > 0 && rec.IdleDurationMin/rec.TotalDurationMin > 0.5 {
		add(RuleExtremelyHighIdleTime, SeverityMedium, "idle time exceeds 50 percent of attended duration", weightMedium)
	}

	if score > 100 {
		score = 100
	}

	recommendation := recommend(score)
	passes := rec.AttendancePercent >= minimumAttendancePercent &&
		engagement.Score >= minimumEngagementScore &&
		rec.Metadata.RejoinCount <= maximumRejoinCount

	return Result{
		RiskScore:        score,
		Recommendation:   recommendation,
		Violations:       violations,
		PassesThresholds: passes,
	}
}

// countActiveEvents counts ACTIVE events on the timeline, whatever their
// source, the signal NO_ENGAGEMENT_SIGNALS checks for.
func countActiveEvents(timeline []models.TimelineEvent) int {
	count := 0
	for _, ev := range timeline {
		if ev.Type == models.EventActive {
			count++
		}
	}
	return count
}

// hasWebhookEvent reports whether any event on the timeline was sourced
// from the video provider's webhook, as opposed to frontend monitoring or
// system bookkeeping.
func hasWebhookEvent(timeline []models.TimelineEvent) bool {
	for _, ev := range timeline {
		if ev.Source == models.SourceWebhook {
			return true
		}
	}
	return false
}

// webhookSpanMinutes returns the minutes between the earliest and latest
// webhook-sourced event, the provider's own account of session length. ok
// is false when no webhook events are present to compare against.
func webhookSpanMinutes(timeline []models.TimelineEvent) (minutes float64, ok bool) {
	var first, last models.TimelineEvent
	seen := false
	for _, ev := range timeline {
		if ev.Source != models.SourceWebhook {
			continue
		}
		if !seen {
			first, last = ev, ev
			seen = true
			continue
		}
		if ev.Timestamp.Before(first.Timestamp) {
			first = ev
		}
		if ev.Timestamp.After(last.Timestamp) {
			last = ev
		}
	}
	if !seen {
		return 0, false
	}
	return last.Timestamp.Sub(first.Timestamp).Minutes(), true
}

func recommend(score int) string {
	switch {
	case score >= 80:
		return RecommendationReject
	case score >= 40:
		return RecommendationFlag
	default:
		return RecommendationApprove
	}
}
