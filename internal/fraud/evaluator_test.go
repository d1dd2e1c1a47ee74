package fraud

import (
	"testing"
	"time"

	"github.com/proofmeet/attendance-engine/internal/scoring"
	"github.com/proofmeet/attendance-engine/pkg/models"
)

func TestEvaluate_CleanRecordApproves(t *testing.T) {
	rec := &models.AttendanceRecord{
		TotalDurationMin:   55,
		ActiveDurationMin:  50,
		IdleDurationMin:    5,
		AttendancePercent:  92,
		VerificationMethod: models.VerificationBoth,
		ActivityTimeline: []models.TimelineEvent{
			{Type: models.EventJoined, Timestamp: time.Now()},
			{Type: models.EventActive, Timestamp: time.Now()},
		},
	}
	engagement := scoring.Assessment{Score: 90, Level: scoring.LevelHigh}

	result := Evaluate(rec, 60, engagement)
	if result.Recommendation != RecommendationApprove {
		t.Errorf("expected APPROVE, got %s (score %d, violations %v)", result.Recommendation, result.RiskScore, result.Violations)
	}
	if !result.PassesThresholds {
		t.Errorf("expected clean record to pass thresholds")
	}
}

func TestEvaluate_ZeroDurationRejects(t *testing.T) {
	rec := &models.AttendanceRecord{
		TotalDurationMin:   0,
		AttendancePercent:  0,
		VerificationMethod: models.VerificationNone,
	}
	engagement := scoring.Assessment{Score: 0, Level: scoring.LevelLow}

	result := Evaluate(rec, 60, engagement)
	if result.Recommendation == RecommendationApprove {
		t.Errorf("expected a zero-duration record not to be approved, got risk score %d", result.RiskScore)
	}
	foundRule := false
	for _, v := range result.Violations {
		if v.Rule == RuleZeroDuration {
			foundRule = true
		}
	}
	if !foundRule {
		t.Errorf("expected ZERO_DURATION rule to fire, got %v", result.Violations)
	}
}

func TestEvaluate_ZeroHeartbeatsOverTenMinutesRejects(t *testing.T) {
	rec := &models.AttendanceRecord{
		TotalDurationMin:  38,
		AttendancePercent: 95,
		ActivityTimeline: []models.TimelineEvent{
			{Type: models.EventJoined, Timestamp: time.Now()},
		},
	}
	engagement := scoring.Assessment{Score: 0, Level: scoring.LevelSuspicious, Flags: []string{scoring.FlagZeroActivity}}

	result := Evaluate(rec, 40, engagement)
	if result.Recommendation != RecommendationReject {
		t.Errorf("expected REJECT for a 40-minute meeting with zero heartbeats, got %s (score %d)", result.Recommendation, result.RiskScore)
	}
	foundRule := false
	for _, v := range result.Violations {
		if v.Rule == RuleNoEngagementSignals {
			foundRule = true
		}
	}
	if !foundRule {
		t.Errorf("expected NO_ENGAGEMENT_SIGNALS to fire, got %v", result.Violations)
	}
}

func TestEvaluate_ImpossibleDurationIsCritical(t *testing.T) {
	rec := &models.AttendanceRecord{
		TotalDurationMin:  500,
		AttendancePercent: 100,
	}
	engagement := scoring.Assessment{Score: 90, Level: scoring.LevelHigh}

	result := Evaluate(rec, 60, engagement)
	if result.RiskScore < weightCritical {
		t.Errorf("expected at least the critical weight applied, got %d", result.RiskScore)
	}
}
