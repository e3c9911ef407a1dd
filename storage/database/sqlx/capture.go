package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
)

type captureRepository struct {
	db *sqlx.DB
}

var _ capture.Repository = (*captureRepository)(nil) // interface compliance check

func NewCaptureRepository(db *sqlx.DB) capture.Repository {
	return &captureRepository{db: db}
}

func (repo *captureRepository) SaveHeartRate(ctx context.Context, hr capture.HeartRate) error {
	hr.RecordedAt = hr.RecordedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO heart_rates (id, patient_email, bpm, recorded_at) VALUES (:id, :patient_email, :bpm, :recorded_at)",
		hr)
	return errors.Wrap(err, "inserting heart rate")
}

func (repo *captureRepository) SaveBloodPressure(ctx context.Context, bp capture.BloodPressure) error {
	bp.RecordedAt = bp.RecordedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO blood_pressures (id, patient_email, systolic, diastolic, recorded_at) "+
			"VALUES (:id, :patient_email, :systolic, :diastolic, :recorded_at)",
		bp)
	return errors.Wrap(err, "inserting blood pressure")
}

const insertSpeechRate = "INSERT INTO speech_rates (id, patient_email, wpm, accuracy, recorded_at) " +
	"VALUES (:id, :patient_email, :wpm, :accuracy, :recorded_at)"

func (repo *captureRepository) SaveSpeechRate(ctx context.Context, sr capture.SpeechRate) error {
	sr.RecordedAt = sr.RecordedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx, insertSpeechRate, sr)
	return errors.Wrap(err, "inserting speech rate")
}

func (repo *captureRepository) ListHeartRates(ctx context.Context, patientEmail string, limit int) ([]capture.HeartRate, error) {
	hrs := make([]capture.HeartRate, 0, limit)
	q := repo.db.Rebind("SELECT id, patient_email, bpm, recorded_at FROM heart_rates " +
		"WHERE patient_email = ? ORDER BY recorded_at DESC LIMIT ?")
	if err := repo.db.SelectContext(ctx, &hrs, q, patientEmail, limit); err != nil {
		return nil, errors.Wrap(err, "selecting heart rates")
	}
	for i := range hrs {
		hrs[i].RecordedAt = utc(hrs[i].RecordedAt)
	}
	return hrs, nil
}

func (repo *captureRepository) ListBloodPressures(ctx context.Context, patientEmail string, limit int) ([]capture.BloodPressure, error) {
	bps := make([]capture.BloodPressure, 0, limit)
	q := repo.db.Rebind("SELECT id, patient_email, systolic, diastolic, recorded_at FROM blood_pressures " +
		"WHERE patient_email = ? ORDER BY recorded_at DESC LIMIT ?")
	if err := repo.db.SelectContext(ctx, &bps, q, patientEmail, limit); err != nil {
		return nil, errors.Wrap(err, "selecting blood pressures")
	}
	for i := range bps {
		bps[i].RecordedAt = utc(bps[i].RecordedAt)
	}
	return bps, nil
}

func (repo *captureRepository) ListSpeechRates(ctx context.Context, patientEmail string, limit int) ([]capture.SpeechRate, error) {
	srs := make([]capture.SpeechRate, 0, limit)
	q := repo.db.Rebind("SELECT id, patient_email, wpm, accuracy, recorded_at FROM speech_rates " +
		"WHERE patient_email = ? ORDER BY recorded_at DESC LIMIT ?")
	if err := repo.db.SelectContext(ctx, &srs, q, patientEmail, limit); err != nil {
		return nil, errors.Wrap(err, "selecting speech rates")
	}
	for i := range srs {
		srs[i].RecordedAt = utc(srs[i].RecordedAt)
	}
	return srs, nil
}

func (repo *captureRepository) GetSpeechRate(ctx context.Context, id string) (capture.SpeechRate, error) {
	var sr capture.SpeechRate
	q := repo.db.Rebind("SELECT id, patient_email, wpm, accuracy, recorded_at FROM speech_rates WHERE id = ?")
	if err := repo.db.GetContext(ctx, &sr, q, id); err != nil {
		return capture.SpeechRate{}, trapNoRowsErr(err, capture.ErrNotFound, "selecting speech rate")
	}
	sr.RecordedAt = utc(sr.RecordedAt)
	return sr, nil
}
