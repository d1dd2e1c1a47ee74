package card

import (
	"context"
	"fmt"
	"time"

	"github.com/proofmeet/attendance-engine/internal/audit"
	"github.com/proofmeet/attendance-engine/pkg/models"
)

// VerificationResult is the public, unauthenticated view of a Court Card.
type VerificationResult struct {
	Card           *models.CourtCard
	IsTampered     bool
	HashMatch      bool
	HasSignatures  bool
	SignatureCount int
}

// Verify fetches a card, recomputes its hash to detect tampering, and logs
// the access. A caller-supplied hash (from the QR payload) is compared
// too, but the recomputed hash is authoritative for IsTampered.
func (m *Minter) Verify(ctx context.Context, cardID, suppliedHash, remoteAddr string) (*VerificationResult, error) {
	if m.db == nil {
		return nil, fmt.Errorf("verification store unavailable")
	}
	c, err := m.db.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	recomputed := cardHash(c)
	tampered := recomputed != c.CardHash
	hashMatch := suppliedHash == "" || suppliedHash == c.CardHash
	ok := hashMatch && !tampered

	_ = m.db.LogVerificationAccess(ctx, cardID, ok, remoteAddr)
	if m.accessLog != nil {
		m.accessLog.Record(cardID, ok, remoteAddr, time.Now())
	}

	return &VerificationResult{
		Card:           c,
		IsTampered:     tampered,
		HashMatch:      hashMatch,
		HasSignatures:  len(c.Signatures) > 0,
		SignatureCount: len(c.Signatures),
	}, nil
}

// RecentAccess returns the most recent public verification reads,
// most-recent-first, for the operator-facing audit read endpoint.
func (m *Minter) RecentAccess(limit int) []audit.Entry {
	if m.accessLog == nil {
		return nil
	}
	return m.accessLog.Recent(limit)
}

// GetCard fetches a card without the verification side effects, used by
// authenticated signature-intake flows.
func (m *Minter) GetCard(ctx context.Context, cardID string) (*models.CourtCard, error) {
	return m.db.GetCard(ctx, cardID)
}

// AppendSignature records a signature against an already-minted card.
func (m *Minter) AppendSignature(ctx context.Context, cardID string, sig models.Signature) error {
	return m.db.AppendSignature(ctx, cardID, sig)
}
