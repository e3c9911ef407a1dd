package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/borisstroganov/accessible-health-dashboard/core/account"
)

type accountRepository struct {
	patients   *mongo.Collection
	therapists *mongo.Collection
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(s *Store) account.Repository {
	return &accountRepository{
		patients:   s.db.Collection(patientsColl),
		therapists: s.db.Collection(therapistsColl),
	}
}

func (repo *accountRepository) CreatePatient(ctx context.Context, p account.Patient) (account.Patient, error) {
	p.CreatedAt = p.CreatedAt.UTC()
	if _, err := repo.patients.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Patient{}, account.ErrEmailExists
		}
		return account.Patient{}, errors.Wrap(err, "inserting patient")
	}
	return p, nil
}

func (repo *accountRepository) CreateTherapist(ctx context.Context, t account.Therapist) (account.Therapist, error) {
	t.CreatedAt = t.CreatedAt.UTC()
	if _, err := repo.therapists.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Therapist{}, account.ErrEmailExists
		}
		return account.Therapist{}, errors.Wrap(err, "inserting therapist")
	}
	return t, nil
}

func (repo *accountRepository) GetPatient(ctx context.Context, email string) (account.Patient, error) {
	var p account.Patient
	if err := repo.patients.FindOne(ctx, bson.M{"_id": email}).Decode(&p); err != nil {
		return account.Patient{}, trapNoDocErr(err, account.ErrNotFound, "finding patient")
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (repo *accountRepository) GetTherapist(ctx context.Context, email string) (account.Therapist, error) {
	var t account.Therapist
	if err := repo.therapists.FindOne(ctx, bson.M{"_id": email}).Decode(&t); err != nil {
		return account.Therapist{}, trapNoDocErr(err, account.ErrNotFound, "finding therapist")
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (repo *accountRepository) SetPassword(ctx context.Context, role account.Role, email string, hash []byte) error {
	coll := repo.patients
	if role == account.RoleTherapist {
		coll = repo.therapists
	} else if role != account.RolePatient {
		return account.ErrNotFound
	}

	res, err := coll.UpdateOne(ctx, bson.M{"_id": email}, bson.M{"$set": bson.M{"password_hash": hash}})
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	if res.MatchedCount == 0 {
		return account.ErrNotFound
	}
	return nil
}
