package inmemdb

import (
	"context"
	"sync"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

type invitationKey struct {
	patient, therapist string
}

// DB is a process local store. One lock guards every table so multi-table writes are atomic.
type DB struct {
	mu             sync.RWMutex
	patients       map[string]*account.Patient
	therapists     map[string]*account.Therapist
	invitations    map[invitationKey]*pairing.Invitation
	assignments    map[string]*assignment.Assignment
	heartRates     []capture.HeartRate
	bloodPressures []capture.BloodPressure
	speechRates    []capture.SpeechRate
}

var _ core.DB = (*DB)(nil)

func Open() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.patients = make(map[string]*account.Patient)
	db.therapists = make(map[string]*account.Therapist)
	db.invitations = make(map[invitationKey]*pairing.Invitation)
	db.assignments = make(map[string]*assignment.Assignment)
	db.heartRates = nil
	db.bloodPressures = nil
	db.speechRates = nil
}

func (db *DB) PingContext(context.Context) error { return nil }
func (db *DB) Close() error                      { return nil }
