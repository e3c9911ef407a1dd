package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

type pairingRepository struct {
	invitations *mongo.Collection
	patients    *mongo.Collection
}

var _ pairing.Repository = (*pairingRepository)(nil) // interface compliance check

func NewPairingRepository(s *Store) pairing.Repository {
	return &pairingRepository{
		invitations: s.db.Collection(invitationsColl),
		patients:    s.db.Collection(patientsColl),
	}
}

func pairFilter(patientEmail, therapistEmail string) bson.M {
	return bson.M{"patient_email": patientEmail, "therapist_email": therapistEmail}
}

// unassigned matches the patient only while it has no therapist.
func unassigned(patientEmail string) bson.M {
	return bson.M{"_id": patientEmail, "therapist_email": bson.M{"$exists": false}}
}

func (repo *pairingRepository) CreateInvitation(ctx context.Context, inv pairing.Invitation) error {
	inv.CreatedAt = inv.CreatedAt.UTC()
	if _, err := repo.invitations.InsertOne(ctx, inv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pairing.ErrInvitationExists
		}
		return errors.Wrap(err, "inserting invitation")
	}
	return nil
}

func (repo *pairingRepository) InvitationExists(ctx context.Context, patientEmail, therapistEmail string) (bool, error) {
	n, err := repo.invitations.CountDocuments(ctx, pairFilter(patientEmail, therapistEmail), options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "counting invitations")
	}
	return n > 0, nil
}

func (repo *pairingRepository) DeleteInvitation(ctx context.Context, patientEmail, therapistEmail string) error {
	res, err := repo.invitations.DeleteOne(ctx, pairFilter(patientEmail, therapistEmail))
	if err != nil {
		return errors.Wrap(err, "deleting invitation")
	}
	if res.DeletedCount == 0 {
		return pairing.ErrNoInvitation
	}
	return nil
}

func (repo *pairingRepository) findInvitations(ctx context.Context, filter bson.M) ([]pairing.Invitation, error) {
	opts := options.Find().SetSort(sortDesc("created_at"))
	cur, err := repo.invitations.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding invitations")
	}
	invs := make([]pairing.Invitation, 0)
	if err = cur.All(ctx, &invs); err != nil {
		return nil, errors.Wrap(err, "decoding invitations")
	}
	for i := range invs {
		invs[i].CreatedAt = invs[i].CreatedAt.UTC()
	}
	return invs, nil
}

func (repo *pairingRepository) PatientInvitations(ctx context.Context, patientEmail string) ([]pairing.Invitation, error) {
	return repo.findInvitations(ctx, bson.M{"patient_email": patientEmail})
}

func (repo *pairingRepository) TherapistInvitations(ctx context.Context, therapistEmail string) ([]pairing.Invitation, error) {
	return repo.findInvitations(ctx, bson.M{"therapist_email": therapistEmail})
}

func (repo *pairingRepository) AssignTherapist(ctx context.Context, patientEmail, therapistEmail string) error {
	res, err := repo.patients.UpdateOne(ctx,
		unassigned(patientEmail),
		bson.M{"$set": bson.M{"therapist_email": therapistEmail}},
	)
	if err != nil {
		return errors.Wrap(err, "assigning therapist")
	}
	if res.MatchedCount == 0 {
		return pairing.ErrAlreadyPaired
	}
	return nil
}

// AcceptInvitation consumes the invitation first so two accepts cannot both succeed,
// then links the patient. The invitation is restored when the link fails.
func (repo *pairingRepository) AcceptInvitation(ctx context.Context, patientEmail, therapistEmail string) error {
	var inv pairing.Invitation
	err := repo.invitations.FindOneAndDelete(ctx, pairFilter(patientEmail, therapistEmail)).Decode(&inv)
	if err != nil {
		return trapNoDocErr(err, pairing.ErrNoInvitation, "consuming invitation")
	}

	if err = repo.AssignTherapist(ctx, patientEmail, therapistEmail); err != nil {
		if _, rerr := repo.invitations.InsertOne(ctx, inv); rerr != nil && !mongo.IsDuplicateKeyError(rerr) {
			return errors.Wrap(rerr, "restoring invitation")
		}
		return err
	}
	return nil
}

func (repo *pairingRepository) UnassignTherapist(ctx context.Context, patientEmail, therapistEmail string) error {
	filter := bson.M{"_id": patientEmail, "therapist_email": bson.M{"$exists": true}}
	if therapistEmail != "" {
		filter["therapist_email"] = therapistEmail
	}

	res, err := repo.patients.UpdateOne(ctx, filter, bson.M{"$unset": bson.M{"therapist_email": ""}})
	if err != nil {
		return errors.Wrap(err, "unassigning therapist")
	}
	if res.MatchedCount == 0 {
		return pairing.ErrNotPaired
	}
	return nil
}

func (repo *pairingRepository) TherapistPatients(ctx context.Context, therapistEmail string) ([]account.Patient, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := repo.patients.Find(ctx, bson.M{"therapist_email": therapistEmail}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding patients")
	}
	patients := make([]account.Patient, 0)
	if err = cur.All(ctx, &patients); err != nil {
		return nil, errors.Wrap(err, "decoding patients")
	}
	return patients, nil
}
