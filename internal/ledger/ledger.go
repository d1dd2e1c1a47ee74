// Package ledger implements the hash-chain that links each participant's
// FINALIZED attendance records into a tamper-evident sequence, sealed
// with an RSA-SHA256 block signature.
package ledger

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

const genesisHash = "0"

// Block is the sealed result of chaining one record onto its participant's
// prior history.
type Block struct {
	PreviousHash string
	BlockHash    string
	Signature    string
}

// Ledger seals and verifies attendance blocks. The signing key is a
// process-wide immutable resource loaded once at startup.
type Ledger struct {
	privateKey *rsa.PrivateKey
}

func New(privateKey *rsa.PrivateKey) *Ledger {
	return &Ledger{privateKey: privateKey}
}

// GenerateKey produces a fresh RSA signing key, used when no persisted key
// material is configured for the process.
func GenerateKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}

// canonicalProjection builds the fixed-order field projection that both
// sealing and verification hash over. Field order is part of the format:
// changing it invalidates every previously sealed block.
func canonicalProjection(rec *models.AttendanceRecord, previousHash string) []byte {
	s := fmt.Sprintf(
		"%s|%s|%s|%s|%d|%d|%.4f|%.4f|%s|%s",
		rec.ID,
		rec.ParticipantID,
		rec.MeetingID,
		rec.MeetingDate.UTC().Format("2006-01-02T15:04:05Z"),
		rec.JoinTime.UTC().Unix(),
		rec.LeaveTime.UTC().Unix(),
		rec.TotalDurationMin,
		rec.AttendancePercent,
		rec.Status,
		previousHash,
	)
	return []byte(s)
}

// Seal computes the block hash and RSA-SHA256 signature for rec, chaining
// it onto previousHash (the prior FINALIZED block for this participant, or
// the genesis value).
func (l *Ledger) Seal(rec *models.AttendanceRecord, previousHash string) (Block, error) {
	if previousHash == "" {
		previousHash = genesisHash
	}
	projection := canonicalProjection(rec, previousHash)
	sum := sha256.Sum256(projection)
	blockHash := hex.EncodeToString(sum[:])

	sig, err := rsa.SignPKCS1v15(rand.Reader, l.privateKey, crypto.SHA256, sum[:])
	if err != nil {
		return Block{}, fmt.Errorf("sign block: %w", err)
	}

	return Block{
		PreviousHash: previousHash,
		BlockHash:    blockHash,
		Signature:    hex.EncodeToString(sig),
	}, nil
}

// VerifyBlock recomputes the hash for rec against its recorded
// previousHash and checks the RSA signature, confirming the stored
// blockHash has not been tampered with.
func (l *Ledger) VerifyBlock(rec *models.AttendanceRecord) error {
	previousHash := rec.Metadata.PreviousHash
	if previousHash == "" {
		previousHash = genesisHash
	}
	projection := canonicalProjection(rec, previousHash)
	sum := sha256.Sum256(projection)
	blockHash := hex.EncodeToString(sum[:])

	if blockHash != rec.Metadata.BlockHash {
		return fmt.Errorf("block hash mismatch for record %s", rec.ID)
	}

	sig, err := hex.DecodeString(rec.Metadata.BlockSignature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if err := rsa.VerifyPKCS1v15(&l.privateKey.PublicKey, crypto.SHA256, sum[:], sig); err != nil {
		return fmt.Errorf("signature invalid for record %s: %w", rec.ID, err)
	}
	return nil
}

// VerifyChain walks a participant's FINALIZED records in chronological
// order, checking each block against the previous one's hash and its own
// signature. It returns the first broken link found, if any.
func (l *Ledger) VerifyChain(records []*models.AttendanceRecord) error {
	prev := genesisHash
	for _, rec := range records {
		if rec.Metadata.PreviousHash != prev {
			return fmt.Errorf("chain break at record %s: expected previous hash %s, got %s",
				rec.ID, prev, rec.Metadata.PreviousHash)
		}
		if err := l.VerifyBlock(rec); err != nil {
			return err
		}
		prev = rec.Metadata.BlockHash
	}
	return nil
}
