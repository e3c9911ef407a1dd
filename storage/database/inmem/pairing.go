package inmemdb

import (
	"context"
	"sort"

	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

type pairingRepository struct {
	db *DB
}

var _ pairing.Repository = (*pairingRepository)(nil)

func NewPairingRepository(db *DB) pairing.Repository {
	return &pairingRepository{db: db}
}

func (repo *pairingRepository) CreateInvitation(_ context.Context, inv pairing.Invitation) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := invitationKey{inv.PatientEmail, inv.TherapistEmail}
	if _, ok := repo.db.invitations[key]; ok {
		return pairing.ErrInvitationExists
	}
	repo.db.invitations[key] = &inv
	return nil
}

func (repo *pairingRepository) InvitationExists(_ context.Context, patientEmail, therapistEmail string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.invitations[invitationKey{patientEmail, therapistEmail}]
	return ok, nil
}

func (repo *pairingRepository) DeleteInvitation(_ context.Context, patientEmail, therapistEmail string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := invitationKey{patientEmail, therapistEmail}
	if _, ok := repo.db.invitations[key]; !ok {
		return pairing.ErrNoInvitation
	}
	delete(repo.db.invitations, key)
	return nil
}

func (repo *pairingRepository) filterInvitations(keep func(inv *pairing.Invitation) bool) []pairing.Invitation {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	invs := make([]pairing.Invitation, 0)
	for _, inv := range repo.db.invitations {
		if keep(inv) {
			invs = append(invs, *inv)
		}
	}
	sort.Slice(invs, func(i, j int) bool { return invs[i].CreatedAt.After(invs[j].CreatedAt) })
	return invs
}

func (repo *pairingRepository) PatientInvitations(_ context.Context, patientEmail string) ([]pairing.Invitation, error) {
	return repo.filterInvitations(func(inv *pairing.Invitation) bool { return inv.PatientEmail == patientEmail }), nil
}

func (repo *pairingRepository) TherapistInvitations(_ context.Context, therapistEmail string) ([]pairing.Invitation, error) {
	return repo.filterInvitations(func(inv *pairing.Invitation) bool { return inv.TherapistEmail == therapistEmail }), nil
}

// assign must be called with the lock held.
func (repo *pairingRepository) assign(patientEmail, therapistEmail string) error {
	p, ok := repo.db.patients[patientEmail]
	if !ok {
		return account.ErrNotFound
	}
	if p.TherapistEmail != "" {
		return pairing.ErrAlreadyPaired
	}
	p.TherapistEmail = therapistEmail
	return nil
}

func (repo *pairingRepository) AssignTherapist(_ context.Context, patientEmail, therapistEmail string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.assign(patientEmail, therapistEmail)
}

func (repo *pairingRepository) AcceptInvitation(_ context.Context, patientEmail, therapistEmail string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := invitationKey{patientEmail, therapistEmail}
	if _, ok := repo.db.invitations[key]; !ok {
		return pairing.ErrNoInvitation
	}
	if err := repo.assign(patientEmail, therapistEmail); err != nil {
		return err
	}
	delete(repo.db.invitations, key)
	return nil
}

func (repo *pairingRepository) UnassignTherapist(_ context.Context, patientEmail, therapistEmail string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p, ok := repo.db.patients[patientEmail]
	if !ok || p.TherapistEmail == "" || (therapistEmail != "" && p.TherapistEmail != therapistEmail) {
		return pairing.ErrNotPaired
	}
	p.TherapistEmail = ""
	return nil
}

func (repo *pairingRepository) TherapistPatients(_ context.Context, therapistEmail string) ([]account.Patient, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	patients := make([]account.Patient, 0)
	for _, p := range repo.db.patients {
		if p.TherapistEmail == therapistEmail {
			patients = append(patients, *p)
		}
	}
	sort.Slice(patients, func(i, j int) bool {
		if patients[i].Name == patients[j].Name {
			return patients[i].Email < patients[j].Email
		}
		return patients[i].Name < patients[j].Name
	})
	return patients, nil
}
