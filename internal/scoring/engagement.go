// Package scoring implements the Engagement Scorer: a weighted additive
// score over audio/video presence, input activity, and event-rate
// consistency, derived from an attendance record's activity timeline.
package scoring

import (
	"github.com/proofmeet/attendance-engine/pkg/models"
)

// Engagement levels and recommendations gate the finalization outcome
// alongside the fraud evaluator's verdict.
const (
	LevelHigh       = "HIGH"
	LevelMedium     = "MEDIUM"
	LevelLow        = "LOW"
	LevelSuspicious = "SUSPICIOUS"

	RecommendationNone      = "NONE"
	RecommendationReview    = "REVIEW"
	RecommendationSuspicious = "SUSPICIOUS"

	FlagNoVideo                  = "NO_VIDEO"
	FlagZeroActivity             = "ZERO_ACTIVITY"
	FlagSuspiciouslyHighActivity = "SUSPICIOUSLY_HIGH_ACTIVITY"
	FlagLikelyAutomated          = "LIKELY_AUTOMATED"
)

// Assessment is the output of Score: an overall score in [0,100], a
// descriptive level, a recommendation for the finalization pipeline to
// act on, and the flags that contributed.
type Assessment struct {
	Score          int
	Level          string
	Recommendation string
	Flags          []string
}

// Score implements spec §4.5. meetingDurationMin is the scheduled meeting
// length, used to decide whether a record with zero activity is actually
// suspicious (short meetings can legitimately show none).
func Score(rec *models.AttendanceRecord, meetingDurationMin int) Assessment {
	var flags []string

	avScore, avFlags := scoreAudioVideo(rec.ActivityTimeline)
	flags = append(flags, avFlags...)

	activityScore, activityFlags := scoreActivity(rec.ActivityTimeline, meetingDurationMin)
	flags = append(flags, activityFlags...)

	consistencyScore, consistencyFlags := scoreConsistency(rec.ActivityTimeline, meetingDurationMin)
	flags = append(flags, consistencyFlags...)

	overall := avScore*50/100 + activityScore*30/100 + consistencyScore*20/100
	overall = clamp(overall, 0, 100)

	level, recommendation := classify(overall, flags)

	return Assessment{
		Score:          overall,
		Level:          level,
		Recommendation: recommendation,
		Flags:          flags,
	}
}

// scoreAudioVideo credits video presence (+70) and audio presence (+30),
// capped at 100, flagging NO_VIDEO when no frontend-monitor sample ever
// reported an active camera.
func scoreAudioVideo(timeline []models.TimelineEvent) (int, []string) {
	var sawVideo, sawAudio bool
	for _, ev := range timeline {
		if ev.Source != models.SourceFrontendMonitor {
			continue
		}
		if v, ok := ev.Data["videoActive"].(bool); ok && v {
			sawVideo = true
		}
		if a, ok := ev.Data["audioActive"].(bool); ok && a {
			sawAudio = true
		}
	}

	score := 0
	if sawVideo {
		score += 70
	}
	if sawAudio {
		score += 30
	}
	if score > 100 {
		score = 100
	}

	var flags []string
	if !sawVideo {
		flags = append(flags, FlagNoVideo)
	}
	return score, flags
}

// scoreActivity credits 100 when any mouse, keyboard, or ACTIVE event is
// present, flagging ZERO_ACTIVITY for meetings over 10 minutes that show
// none at all.
func scoreActivity(timeline []models.TimelineEvent, meetingDurationMin int) (int, []string) {
	var sawActivity bool
	for _, ev := range timeline {
		if ev.Source != models.SourceFrontendMonitor {
			continue
		}
		if ev.Type == models.EventActive {
			sawActivity = true
			break
		}
		if m, ok := ev.Data["mouseMovement"].(bool); ok && m {
			sawActivity = true
			break
		}
		if k, ok := ev.Data["keyboardActivity"].(bool); ok && k {
			sawActivity = true
			break
		}
	}

	if sawActivity {
		return 100, nil
	}
	if meetingDurationMin > 10 {
		return 0, []string{FlagZeroActivity}
	}
	return 0, nil
}

// scoreConsistency penalizes an event rate too high to be a human
// clicking around: above 30 events/minute loses 50 points and is flagged
// suspicious; above 50 events/minute is treated as certainly automated.
func scoreConsistency(timeline []models.TimelineEvent, meetingDurationMin int) (int, []string) {
	if meetingDurationMin <= 0 {
		return 100, nil
	}

	count := 0
	for _, ev := range timeline {
		if ev.Source == models.SourceFrontendMonitor {
			count++
		}
	}
	rate := float64(count) / float64(meetingDurationMin)

	score := 100
	var flags []string
	switch {
	case rate > 50:
		score = 0
		flags = append(flags, FlagLikelyAutomated)
	case rate > 30:
		score -= 50
		flags = append(flags, FlagSuspiciouslyHighActivity)
	}
	return score, flags
}

func classify(score int, flags []string) (level, recommendation string) {
	for _, f := range flags {
		if f == FlagLikelyAutomated || f == FlagZeroActivity {
			return LevelSuspicious, RecommendationSuspicious
		}
	}

	switch {
	case score >= 80:
		return LevelHigh, RecommendationNone
	case score >= 50:
		return LevelMedium, RecommendationReview
	default:
		return LevelLow, RecommendationReview
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
