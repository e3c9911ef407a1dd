package capture

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/borisstroganov/accessible-health-dashboard/core"
)

// RecentLimit is how many captures the "recent" queries return.
const RecentLimit = 15

var (
	ErrNotFound   = errors.New("capture not found")
	ErrNoCaptures = core.NewRejectionError("no captures recorded yet")

	nowFunc = time.Now // mockable
)

type (
	// Repository stores append-only captures. List* return the newest captures first.
	Repository interface {
		SaveHeartRate(ctx context.Context, hr HeartRate) error
		SaveBloodPressure(ctx context.Context, bp BloodPressure) error
		SaveSpeechRate(ctx context.Context, sr SpeechRate) error
		ListHeartRates(ctx context.Context, patientEmail string, limit int) ([]HeartRate, error)
		ListBloodPressures(ctx context.Context, patientEmail string, limit int) ([]BloodPressure, error)
		ListSpeechRates(ctx context.Context, patientEmail string, limit int) ([]SpeechRate, error)
		GetSpeechRate(ctx context.Context, id string) (SpeechRate, error)
	}

	Service struct {
		repo      Repository
		publisher core.EventPublisher
	}
)

func NewService(repo Repository, publisher core.EventPublisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (svc *Service) publish(kind, patientEmail string, record interface{}, at time.Time) {
	svc.publisher.Publish(core.Event{
		Name:       "capture.recorded",
		Key:        patientEmail,
		Data:       Event{Kind: kind, Record: record},
		OccurredAt: at,
	})
}

func (svc *Service) RecordHeartRate(ctx context.Context, patientEmail string, data NewHeartRate) (HeartRate, error) {
	hr := HeartRate{
		ID:           uuid.New().String(),
		PatientEmail: patientEmail,
		BPM:          data.BPM,
		RecordedAt:   nowFunc().UTC(),
	}
	if err := svc.repo.SaveHeartRate(ctx, hr); err != nil {
		return HeartRate{}, pkgerrors.Wrap(err, "saving heart rate")
	}
	svc.publish(KindHeartRate, patientEmail, hr, hr.RecordedAt)
	return hr, nil
}

func (svc *Service) RecordBloodPressure(ctx context.Context, patientEmail string, data NewBloodPressure) (BloodPressure, error) {
	bp := BloodPressure{
		ID:           uuid.New().String(),
		PatientEmail: patientEmail,
		Systolic:     data.Systolic,
		Diastolic:    data.Diastolic,
		RecordedAt:   nowFunc().UTC(),
	}
	if err := svc.repo.SaveBloodPressure(ctx, bp); err != nil {
		return BloodPressure{}, pkgerrors.Wrap(err, "saving blood pressure")
	}
	svc.publish(KindBloodPressure, patientEmail, bp, bp.RecordedAt)
	return bp, nil
}

func (svc *Service) RecordSpeechRate(ctx context.Context, patientEmail string, data NewSpeechRate) (SpeechRate, error) {
	sr := svc.NewSpeechRateRecord(patientEmail, data)
	if err := svc.repo.SaveSpeechRate(ctx, sr); err != nil {
		return SpeechRate{}, pkgerrors.Wrap(err, "saving speech rate")
	}
	svc.PublishSpeechRate(sr)
	return sr, nil
}

// NewSpeechRateRecord builds an unsaved speech capture, for callers storing it in their own write.
func (svc *Service) NewSpeechRateRecord(patientEmail string, data NewSpeechRate) SpeechRate {
	return SpeechRate{
		ID:           uuid.New().String(),
		PatientEmail: patientEmail,
		WPM:          data.WPM,
		Accuracy:     data.Accuracy,
		RecordedAt:   nowFunc().UTC(),
	}
}

// PublishSpeechRate announces a stored speech capture.
func (svc *Service) PublishSpeechRate(sr SpeechRate) {
	svc.publish(KindSpeechRate, sr.PatientEmail, sr, sr.RecordedAt)
}

func (svc *Service) LatestHeartRate(ctx context.Context, patientEmail string) (HeartRate, error) {
	hrs, err := svc.repo.ListHeartRates(ctx, patientEmail, 1)
	if err != nil {
		return HeartRate{}, pkgerrors.Wrap(err, "querying heart rates")
	}
	if len(hrs) == 0 {
		return HeartRate{}, ErrNoCaptures
	}
	return hrs[0], nil
}

func (svc *Service) LatestBloodPressure(ctx context.Context, patientEmail string) (BloodPressure, error) {
	bps, err := svc.repo.ListBloodPressures(ctx, patientEmail, 1)
	if err != nil {
		return BloodPressure{}, pkgerrors.Wrap(err, "querying blood pressures")
	}
	if len(bps) == 0 {
		return BloodPressure{}, ErrNoCaptures
	}
	return bps[0], nil
}

func (svc *Service) LatestSpeechRate(ctx context.Context, patientEmail string) (SpeechRate, error) {
	srs, err := svc.repo.ListSpeechRates(ctx, patientEmail, 1)
	if err != nil {
		return SpeechRate{}, pkgerrors.Wrap(err, "querying speech rates")
	}
	if len(srs) == 0 {
		return SpeechRate{}, ErrNoCaptures
	}
	return srs[0], nil
}

// RecentHeartRates returns up to RecentLimit heart rates, oldest first.
func (svc *Service) RecentHeartRates(ctx context.Context, patientEmail string) ([]HeartRate, error) {
	hrs, err := svc.repo.ListHeartRates(ctx, patientEmail, RecentLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying heart rates")
	}
	for i, j := 0, len(hrs)-1; i < j; i, j = i+1, j-1 {
		hrs[i], hrs[j] = hrs[j], hrs[i]
	}
	return hrs, nil
}

// RecentBloodPressures returns up to RecentLimit blood pressures, oldest first.
func (svc *Service) RecentBloodPressures(ctx context.Context, patientEmail string) ([]BloodPressure, error) {
	bps, err := svc.repo.ListBloodPressures(ctx, patientEmail, RecentLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying blood pressures")
	}
	for i, j := 0, len(bps)-1; i < j; i, j = i+1, j-1 {
		bps[i], bps[j] = bps[j], bps[i]
	}
	return bps, nil
}

// RecentSpeechRates returns up to RecentLimit speech rates, oldest first.
func (svc *Service) RecentSpeechRates(ctx context.Context, patientEmail string) ([]SpeechRate, error) {
	srs, err := svc.repo.ListSpeechRates(ctx, patientEmail, RecentLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying speech rates")
	}
	for i, j := 0, len(srs)-1; i < j; i, j = i+1, j-1 {
		srs[i], srs[j] = srs[j], srs[i]
	}
	return srs, nil
}

func (svc *Service) SpeechRate(ctx context.Context, id string) (SpeechRate, error) {
	return svc.repo.GetSpeechRate(ctx, id)
}
