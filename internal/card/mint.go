// Package card mints Court Cards from a finalized attendance record and
// serves the public, unauthenticated verification read path.
package card

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/proofmeet/attendance-engine/internal/audit"
	"github.com/proofmeet/attendance-engine/internal/store"
	"github.com/proofmeet/attendance-engine/pkg/models"
)

// Minter mints and serves Court Cards. baseURL is the public origin used
// to build each card's verificationUrl, e.g. "https://proofmeet.example.org".
type Minter struct {
	db        *store.PostgresStore
	baseURL   string
	accessLog *audit.Log
}

func NewMinter(db *store.PostgresStore, baseURL string, accessLog *audit.Log) *Minter {
	return &Minter{db: db, baseURL: baseURL, accessLog: accessLog}
}

// Mint builds and persists a Court Card for a finalized record. The
// validation status, violations, and confidence level are decided
// upstream by the finalization pipeline; Mint's job is the artifact
// itself — card number, hash, QR payload — not the fraud/engagement
// verdict.
func (m *Minter) Mint(ctx context.Context, rec *models.AttendanceRecord, validationStatus string, violations []models.Violation, confidenceLevel string, now time.Time) (*models.CourtCard, error) {
	cardNumber, err := m.nextCardNumber(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("allocate card number: %w", err)
	}

	card := &models.CourtCard{
		ID:                 "card_" + uuid.NewString(),
		AttendanceRecordID: rec.ID,
		CardNumber:         cardNumber,
		ValidationStatus:   validationStatus,
		Violations:         violations,
		ConfidenceLevel:    confidenceLevel,
		Signatures:         []models.Signature{},
		GeneratedAt:        now,
		ParticipantID:      rec.ParticipantID,
		MeetingID:          rec.MeetingID,
		JoinTime:           rec.JoinTime,
		LeaveTime:          rec.LeaveTime,
		TotalDurationMin:   rec.TotalDurationMin,
		ActiveDurationMin:  rec.ActiveDurationMin,
		IdleDurationMin:    rec.IdleDurationMin,
		AttendancePercent:  rec.AttendancePercent,
	}
	card.VerificationURL = fmt.Sprintf("%s/verify/%s", m.baseURL, card.ID)
	card.CardHash = cardHash(card)

	payload := models.NewQRPayload(card.VerificationURL, card.CardNumber, card.CardHash, now)
	qrBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal qr payload: %w", err)
	}
	card.QRCodeData = string(qrBytes)

	if m.db != nil {
		if err := m.db.SaveCard(ctx, card); err != nil {
			return nil, fmt.Errorf("save card: %w", err)
		}
	}
	return card, nil
}

// nextCardNumber builds CC-<year>-<5 random digits>-<3-digit sequence>.
func (m *Minter) nextCardNumber(ctx context.Context, now time.Time) (string, error) {
	year := now.Year()

	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", err
	}

	seq := 1
	if m.db != nil {
		seq, err = m.db.NextCardSequence(ctx, year)
		if err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("CC-%d-%05d-%03d", year, n.Int64(), seq%1000), nil
}

// cardHash hashes the fixed-order projection of the card's immutable
// fields, excluding signatures: signatures are appended after minting and
// must not invalidate the card's own hash. Covers participant identity,
// meeting identity, the attended time window, durations, validation
// status, violations, and generatedAt, so tampering with any of the
// attendance facts a reader relies on flips the hash.
func cardHash(c *models.CourtCard) string {
	violationKey, err := json.Marshal(c.Violations)
	if err != nil {
		violationKey = []byte("[]")
	}

	s := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%f|%f|%f|%f|%s|%s|%s",
		c.CardNumber, c.AttendanceRecordID, c.ParticipantID, c.MeetingID,
		c.JoinTime.UTC().Format(time.RFC3339), c.LeaveTime.UTC().Format(time.RFC3339),
		c.TotalDurationMin, c.ActiveDurationMin, c.IdleDurationMin, c.AttendancePercent,
		c.ValidationStatus, violationKey, c.GeneratedAt.UTC().Format(time.RFC3339))
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
