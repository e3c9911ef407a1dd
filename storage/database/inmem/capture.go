package inmemdb

import (
	"context"

	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
)

type captureRepository struct {
	db *DB
}

var _ capture.Repository = (*captureRepository)(nil)

func NewCaptureRepository(db *DB) capture.Repository {
	return &captureRepository{db: db}
}

// Captures are appended in time order, so walking a table backwards yields the newest first.

func (repo *captureRepository) SaveHeartRate(_ context.Context, hr capture.HeartRate) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.heartRates = append(repo.db.heartRates, hr)
	return nil
}

func (repo *captureRepository) SaveBloodPressure(_ context.Context, bp capture.BloodPressure) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.bloodPressures = append(repo.db.bloodPressures, bp)
	return nil
}

func (repo *captureRepository) SaveSpeechRate(_ context.Context, sr capture.SpeechRate) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.speechRates = append(repo.db.speechRates, sr)
	return nil
}

func (repo *captureRepository) ListHeartRates(_ context.Context, patientEmail string, limit int) ([]capture.HeartRate, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	hrs := make([]capture.HeartRate, 0, limit)
	for i := len(repo.db.heartRates) - 1; i >= 0 && len(hrs) < limit; i-- {
		if hr := repo.db.heartRates[i]; hr.PatientEmail == patientEmail {
			hrs = append(hrs, hr)
		}
	}
	return hrs, nil
}

func (repo *captureRepository) ListBloodPressures(_ context.Context, patientEmail string, limit int) ([]capture.BloodPressure, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	bps := make([]capture.BloodPressure, 0, limit)
	for i := len(repo.db.bloodPressures) - 1; i >= 0 && len(bps) < limit; i-- {
		if bp := repo.db.bloodPressures[i]; bp.PatientEmail == patientEmail {
			bps = append(bps, bp)
		}
	}
	return bps, nil
}

func (repo *captureRepository) ListSpeechRates(_ context.Context, patientEmail string, limit int) ([]capture.SpeechRate, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	srs := make([]capture.SpeechRate, 0, limit)
	for i := len(repo.db.speechRates) - 1; i >= 0 && len(srs) < limit; i-- {
		if sr := repo.db.speechRates[i]; sr.PatientEmail == patientEmail {
			srs = append(srs, sr)
		}
	}
	return srs, nil
}

func (repo *captureRepository) GetSpeechRate(_ context.Context, id string) (capture.SpeechRate, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sr := range repo.db.speechRates {
		if sr.ID == id {
			return sr, nil
		}
	}
	return capture.SpeechRate{}, capture.ErrNotFound
}
