package ledger

import (
	"testing"
	"time"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

func testRecord(id string, date time.Time) *models.AttendanceRecord {
	return &models.AttendanceRecord{
		ID:                id,
		ParticipantID:     "p1",
		MeetingID:         "m1",
		MeetingDate:       date,
		JoinTime:          date,
		LeaveTime:         date.Add(time.Hour),
		TotalDurationMin:  60,
		AttendancePercent: 100,
		Status:            models.StatusFinalized,
	}
}

func TestSealAndVerifyBlock_RoundTrips(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	l := New(key)

	rec := testRecord("att_1", time.Now())
	block, err := l.Seal(rec, "")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	rec.Metadata.BlockHash = block.BlockHash
	rec.Metadata.BlockSignature = block.Signature
	rec.Metadata.PreviousHash = block.PreviousHash

	if err := l.VerifyBlock(rec); err != nil {
		t.Errorf("expected freshly sealed block to verify, got: %v", err)
	}
}

func TestVerifyBlock_DetectsTamper(t *testing.T) {
	key, _ := GenerateKey()
	l := New(key)

	rec := testRecord("att_1", time.Now())
	block, _ := l.Seal(rec, "")
	rec.Metadata.BlockHash = block.BlockHash
	rec.Metadata.BlockSignature = block.Signature
	rec.Metadata.PreviousHash = block.PreviousHash

	rec.TotalDurationMin = 999 // tamper after sealing

	if err := l.VerifyBlock(rec); err == nil {
		t.Errorf("expected tampering to be detected")
	}
}

func TestVerifyChain_DetectsBrokenLink(t *testing.T) {
	key, _ := GenerateKey()
	l := New(key)

	base := time.Now()
	rec1 := testRecord("att_1", base)
	block1, _ := l.Seal(rec1, "")
	rec1.Metadata.BlockHash = block1.BlockHash
	rec1.Metadata.BlockSignature = block1.Signature
	rec1.Metadata.PreviousHash = block1.PreviousHash

	rec2 := testRecord("att_2", base.Add(24*time.Hour))
	block2, _ := l.Seal(rec2, "not-the-real-previous-hash")
	rec2.Metadata.BlockHash = block2.BlockHash
	rec2.Metadata.BlockSignature = block2.Signature
	rec2.Metadata.PreviousHash = block2.PreviousHash

	if err := l.VerifyChain([]*models.AttendanceRecord{rec1, rec2}); err == nil {
		t.Errorf("expected a chain with a forged previousHash to fail verification")
	}
}
