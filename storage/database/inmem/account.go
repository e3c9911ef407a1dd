package inmemdb

import (
	"context"

	"github.com/borisstroganov/accessible-health-dashboard/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CreatePatient(_ context.Context, p account.Patient) (account.Patient, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.patients[p.Email]; ok {
		return account.Patient{}, account.ErrEmailExists
	}
	repo.db.patients[p.Email] = &p
	return p, nil
}

func (repo *accountRepository) CreateTherapist(_ context.Context, t account.Therapist) (account.Therapist, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.therapists[t.Email]; ok {
		return account.Therapist{}, account.ErrEmailExists
	}
	repo.db.therapists[t.Email] = &t
	return t, nil
}

func (repo *accountRepository) GetPatient(_ context.Context, email string) (account.Patient, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.patients[email]; ok {
		return *p, nil
	}
	return account.Patient{}, account.ErrNotFound
}

func (repo *accountRepository) GetTherapist(_ context.Context, email string) (account.Therapist, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.therapists[email]; ok {
		return *t, nil
	}
	return account.Therapist{}, account.ErrNotFound
}

func (repo *accountRepository) SetPassword(_ context.Context, role account.Role, email string, hash []byte) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	switch role {
	case account.RolePatient:
		if p, ok := repo.db.patients[email]; ok {
			p.PasswordHash = hash
			return nil
		}
	case account.RoleTherapist:
		if t, ok := repo.db.therapists[email]; ok {
			t.PasswordHash = hash
			return nil
		}
	}
	return account.ErrNotFound
}
