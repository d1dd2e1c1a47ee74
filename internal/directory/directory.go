// Package directory provides in-memory stand-ins for the external court
// roster and meeting-scheduling systems the engine depends on but does
// not own. Registration and scheduling are external collaborators; this
// package is the seam the engine reads through, loaded from environment
// configuration or a future sync job rather than owning that data.
package directory

import (
	"sync"

	"github.com/proofmeet/attendance-engine/pkg/models"
)

// Directory is a concurrency-safe in-memory registry of meetings and
// participants, satisfying attendance.MeetingLookup and
// attendance.ParticipantLookup.
type Directory struct {
	mu           sync.RWMutex
	meetings     map[string]*models.Meeting
	emailToID    map[string]string
	courtReps    map[string]string
}

func New() *Directory {
	return &Directory{
		meetings:  make(map[string]*models.Meeting),
		emailToID: make(map[string]string),
		courtReps: make(map[string]string),
	}
}

// RegisterMeeting adds or replaces a meeting's schedule.
func (d *Directory) RegisterMeeting(m *models.Meeting) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meetings[m.ID] = m
}

// RegisterParticipant binds a participant's join email and assigned
// Court Representative.
func (d *Directory) RegisterParticipant(participantID, email, courtRepID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emailToID[email] = participantID
	d.courtReps[participantID] = courtRepID
}

func (d *Directory) GetMeeting(meetingID string) (*models.Meeting, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.meetings[meetingID]
	return m, ok
}

func (d *Directory) FindByEmail(email string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.emailToID[email]
	return id, ok
}

func (d *Directory) CourtRepFor(participantID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.courtReps[participantID]
	return id, ok
}
