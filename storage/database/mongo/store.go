package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/borisstroganov/accessible-health-dashboard/core"
)

// collection names
const (
	patientsColl       = "patients"
	therapistsColl     = "therapists"
	invitationsColl    = "invitations"
	assignmentsColl    = "assignments"
	heartRatesColl     = "heart_rates"
	bloodPressuresColl = "blood_pressures"
	speechRatesColl    = "speech_rates"
)

// Store holds the mongo client & the app database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ core.DB = (*Store)(nil)

// Connect opens a client on conf.Database.URI and pings it.
func Connect(ctx context.Context, conf *core.Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongo")
	}
	return &Store{client: client, db: client.Database(conf.Database.Name)}, nil
}

func (s *Store) PingContext(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Drop deletes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	byRecorded := []mongo.IndexModel{{
		Keys:    bson.D{{Key: "patient_email", Value: 1}, {Key: "recorded_at", Value: -1}},
		Options: options.Index().SetName("idx_patient_recorded"),
	}}

	sets := map[string][]mongo.IndexModel{
		patientsColl: {{
			Keys:    bson.D{{Key: "therapist_email", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName("idx_patients_therapist"),
		}},
		invitationsColl: {
			{
				Keys:    bson.D{{Key: "patient_email", Value: 1}, {Key: "therapist_email", Value: 1}},
				Options: options.Index().SetName("uniq_invitations_pair").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "therapist_email", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_invitations_therapist"),
			},
		},
		assignmentsColl: {
			{
				Keys:    bson.D{{Key: "patient_email", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_assignments_patient"),
			},
			{
				Keys:    bson.D{{Key: "therapist_email", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_assignments_therapist"),
			},
		},
		heartRatesColl:     byRecorded,
		bloodPressuresColl: byRecorded,
		speechRatesColl:    byRecorded,
	}

	for coll, models := range sets {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

// trapNoDocErr maps mongo "no documents" err to notFound
func trapNoDocErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == mongo.ErrNoDocuments {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func sortDesc(field string) bson.D {
	return bson.D{{Key: field, Value: -1}, {Key: "_id", Value: 1}}
}
