package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
)

type captureRepository struct {
	heartRates     *mongo.Collection
	bloodPressures *mongo.Collection
	speechRates    *mongo.Collection
}

var _ capture.Repository = (*captureRepository)(nil) // interface compliance check

func NewCaptureRepository(s *Store) capture.Repository {
	return &captureRepository{
		heartRates:     s.db.Collection(heartRatesColl),
		bloodPressures: s.db.Collection(bloodPressuresColl),
		speechRates:    s.db.Collection(speechRatesColl),
	}
}

func (repo *captureRepository) SaveHeartRate(ctx context.Context, hr capture.HeartRate) error {
	hr.RecordedAt = hr.RecordedAt.UTC()
	_, err := repo.heartRates.InsertOne(ctx, hr)
	return errors.Wrap(err, "inserting heart rate")
}

func (repo *captureRepository) SaveBloodPressure(ctx context.Context, bp capture.BloodPressure) error {
	bp.RecordedAt = bp.RecordedAt.UTC()
	_, err := repo.bloodPressures.InsertOne(ctx, bp)
	return errors.Wrap(err, "inserting blood pressure")
}

func (repo *captureRepository) SaveSpeechRate(ctx context.Context, sr capture.SpeechRate) error {
	sr.RecordedAt = sr.RecordedAt.UTC()
	_, err := repo.speechRates.InsertOne(ctx, sr)
	return errors.Wrap(err, "inserting speech rate")
}

// latest decodes up to limit documents of the patient, newest first, into results.
func latest(ctx context.Context, c *mongo.Collection, patientEmail string, limit int, results interface{}) error {
	opts := options.Find().SetSort(sortDesc("recorded_at")).SetLimit(int64(limit))
	cur, err := c.Find(ctx, bson.M{"patient_email": patientEmail}, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, results)
}

func (repo *captureRepository) ListHeartRates(ctx context.Context, patientEmail string, limit int) ([]capture.HeartRate, error) {
	hrs := make([]capture.HeartRate, 0, limit)
	if err := latest(ctx, repo.heartRates, patientEmail, limit, &hrs); err != nil {
		return nil, errors.Wrap(err, "finding heart rates")
	}
	for i := range hrs {
		hrs[i].RecordedAt = hrs[i].RecordedAt.UTC()
	}
	return hrs, nil
}

func (repo *captureRepository) ListBloodPressures(ctx context.Context, patientEmail string, limit int) ([]capture.BloodPressure, error) {
	bps := make([]capture.BloodPressure, 0, limit)
	if err := latest(ctx, repo.bloodPressures, patientEmail, limit, &bps); err != nil {
		return nil, errors.Wrap(err, "finding blood pressures")
	}
	for i := range bps {
		bps[i].RecordedAt = bps[i].RecordedAt.UTC()
	}
	return bps, nil
}

func (repo *captureRepository) ListSpeechRates(ctx context.Context, patientEmail string, limit int) ([]capture.SpeechRate, error) {
	srs := make([]capture.SpeechRate, 0, limit)
	if err := latest(ctx, repo.speechRates, patientEmail, limit, &srs); err != nil {
		return nil, errors.Wrap(err, "finding speech rates")
	}
	for i := range srs {
		srs[i].RecordedAt = srs[i].RecordedAt.UTC()
	}
	return srs, nil
}

func (repo *captureRepository) GetSpeechRate(ctx context.Context, id string) (capture.SpeechRate, error) {
	var sr capture.SpeechRate
	if err := repo.speechRates.FindOne(ctx, bson.M{"_id": id}).Decode(&sr); err != nil {
		return capture.SpeechRate{}, trapNoDocErr(err, capture.ErrNotFound, "finding speech rate")
	}
	sr.RecordedAt = sr.RecordedAt.UTC()
	return sr, nil
}
