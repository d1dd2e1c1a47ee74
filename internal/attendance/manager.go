// Package attendance implements the Attendance State Store and the
// reconciliation logic that fuses webhook, heartbeat, and explicit
// join/leave events into one authoritative AttendanceRecord per
// (participant, meeting) join episode.
package attendance

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/proofmeet/attendance-engine/pkg/models"
	"github.com/proofmeet/attendance-engine/internal/store"
)

// lockedRecord pairs a record with the mutex that serializes every
// read-modify-write against it. The timeline is append-only; derived
// fields are recomputed from the full timeline on every heartbeat so
// out-of-order events remain correct.
type lockedRecord struct {
	mu  sync.Mutex
	rec *models.AttendanceRecord
}

// Manager is the in-memory Attendance State Store. It is authoritative
// for the duration of the process; every mutation also persists to the
// backing Postgres store (if connected) inside the same per-record lock,
// so the two views never diverge for longer than one request. No separate
// read-through cache exists anywhere upstream of this type — handlers
// always call through Manager, never hold their own copy across calls.
type Manager struct {
	mu      sync.RWMutex
	records map[string]*lockedRecord
	db      *store.PostgresStore
}

// NewManager creates an empty state store. db may be nil, in which case
// nothing is persisted. With a db, every mutation is written through to
// it, but records are never read back: the map starts empty on each
// process start, so records from an earlier run are not visible to
// lookups, the sweeper, or the chain-of-trust read.
func NewManager(db *store.PostgresStore) *Manager {
	return &Manager{
		records: make(map[string]*lockedRecord),
		db:      db,
	}
}

func (m *Manager) persist(rec *models.AttendanceRecord) {
	if m.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.db.UpsertRecord(ctx, rec); err != nil {
		log.Printf("[AttendanceStore] failed to persist record %s: %v", rec.ID, err)
	}
}

// create inserts a brand-new record and returns a copy of it.
func (m *Manager) create(rec *models.AttendanceRecord) *models.AttendanceRecord {
	lr := &lockedRecord{rec: rec}

	m.mu.Lock()
	m.records[rec.ID] = lr
	m.mu.Unlock()

	lr.mu.Lock()
	m.persist(rec)
	lr.mu.Unlock()

	cp := *rec
	return &cp
}

func (m *Manager) lookup(id string) *lockedRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id]
}

// Get returns a snapshot copy of a record, or nil if it does not exist.
func (m *Manager) Get(id string) *models.AttendanceRecord {
	lr := m.lookup(id)
	if lr == nil {
		return nil
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	cp := *lr.rec
	return &cp
}

// WithLock runs fn against the live record under its per-record lock,
// persists the result, and returns a snapshot copy. fn mutates rec
// in place; returning an error aborts the persist.
func (m *Manager) WithLock(id string, fn func(rec *models.AttendanceRecord) error) (*models.AttendanceRecord, error) {
	lr := m.lookup(id)
	if lr == nil {
		return nil, models.ErrNotInProgress
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if err := fn(lr.rec); err != nil {
		return nil, err
	}
	m.persist(lr.rec)
	cp := *lr.rec
	return &cp, nil
}

// findInProgress returns the live IN_PROGRESS record for (participant,
// meeting), or nil. Callers needing to mutate the result must go back
// through WithLock by ID — this never hands out a pointer usable outside
// the record's own lock.
func (m *Manager) findInProgress(participantID, meetingID string) *models.AttendanceRecord {
	m.mu.RLock()
	candidates := make([]*lockedRecord, 0, len(m.records))
	for _, lr := range m.records {
		candidates = append(candidates, lr)
	}
	m.mu.RUnlock()

	for _, lr := range candidates {
		lr.mu.Lock()
		match := lr.rec.ParticipantID == participantID && lr.rec.MeetingID == meetingID && lr.rec.Status == models.StatusInProgress
		var cp *models.AttendanceRecord
		if match {
			c := *lr.rec
			cp = &c
		}
		lr.mu.Unlock()
		if cp != nil {
			return cp
		}
	}
	return nil
}

// findMostRecentCompletedToday returns the most recent provisional
// COMPLETED record from the same calendar day for (participant, meeting).
func (m *Manager) findMostRecentCompletedToday(participantID, meetingID string, now time.Time) *models.AttendanceRecord {
	m.mu.RLock()
	candidates := make([]*lockedRecord, 0, len(m.records))
	for _, lr := range m.records {
		candidates = append(candidates, lr)
	}
	m.mu.RUnlock()

	y, mo, d := now.Date()
	var best *models.AttendanceRecord
	for _, lr := range candidates {
		lr.mu.Lock()
		ry, rmo, rd := lr.rec.LeaveTime.Date()
		if lr.rec.ParticipantID == participantID && lr.rec.MeetingID == meetingID &&
			lr.rec.Status == models.StatusCompleted && ry == y && rmo == mo && rd == d {
			if best == nil || lr.rec.LeaveTime.After(best.LeaveTime) {
				c := *lr.rec
				best = &c
			}
		}
		lr.mu.Unlock()
	}
	return best
}

// ListFinalizationCandidates returns COMPLETED records with no Court Card
// whose meetingDate is within the retention window.
func (m *Manager) ListFinalizationCandidates(since time.Time) []*models.AttendanceRecord {
	m.mu.RLock()
	candidates := make([]*lockedRecord, 0, len(m.records))
	for _, lr := range m.records {
		candidates = append(candidates, lr)
	}
	m.mu.RUnlock()

	var out []*models.AttendanceRecord
	for _, lr := range candidates {
		lr.mu.Lock()
		if lr.rec.Status == models.StatusCompleted && lr.rec.CardID == "" && lr.rec.MeetingDate.After(since) {
			c := *lr.rec
			out = append(out, &c)
		}
		lr.mu.Unlock()
	}
	return out
}

// ListParticipantChain returns all FINALIZED records for a participant in
// meetingDate order (ascending by default, descending if orderDesc).
func (m *Manager) ListParticipantChain(participantID string, orderDesc bool) []*models.AttendanceRecord {
	m.mu.RLock()
	candidates := make([]*lockedRecord, 0, len(m.records))
	for _, lr := range m.records {
		candidates = append(candidates, lr)
	}
	m.mu.RUnlock()

	var out []*models.AttendanceRecord
	for _, lr := range candidates {
		lr.mu.Lock()
		if lr.rec.ParticipantID == participantID && lr.rec.Status == models.StatusFinalized {
			c := *lr.rec
			out = append(out, &c)
		}
		lr.mu.Unlock()
	}

	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 {
			less := out[j].MeetingDate.Before(out[j-1].MeetingDate)
			if orderDesc {
				less = out[j].MeetingDate.After(out[j-1].MeetingDate)
			}
			if !less {
				break
			}
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
	return out
}

// newRecordID mints an opaque record identifier.
func newRecordID() string {
	return "att_" + uuid.NewString()
}
