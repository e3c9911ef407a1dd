package capture

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Kinds
const (
	KindHeartRate     = "heart_rate"
	KindBloodPressure = "blood_pressure"
	KindSpeechRate    = "speech_rate"
)

type HeartRate struct {
	ID           string    `json:"id" db:"id" bson:"_id"`
	PatientEmail string    `json:"-" db:"patient_email" bson:"patient_email"`
	BPM          int       `json:"bpm" db:"bpm" bson:"bpm"`
	RecordedAt   time.Time `json:"recorded_at" db:"recorded_at" bson:"recorded_at"` // UTC
}

type BloodPressure struct {
	ID           string    `json:"id" db:"id" bson:"_id"`
	PatientEmail string    `json:"-" db:"patient_email" bson:"patient_email"`
	Systolic     int       `json:"systolic" db:"systolic" bson:"systolic"`
	Diastolic    int       `json:"diastolic" db:"diastolic" bson:"diastolic"`
	RecordedAt   time.Time `json:"recorded_at" db:"recorded_at" bson:"recorded_at"` // UTC
}

type SpeechRate struct {
	ID           string    `json:"id" db:"id" bson:"_id"`
	PatientEmail string    `json:"-" db:"patient_email" bson:"patient_email"`
	WPM          int       `json:"wpm" db:"wpm" bson:"wpm"`
	Accuracy     float64   `json:"accuracy" db:"accuracy" bson:"accuracy"` // percent
	RecordedAt   time.Time `json:"recorded_at" db:"recorded_at" bson:"recorded_at"` // UTC
}

// Event is the payload published for every new capture.
type Event struct {
	Kind   string      `json:"kind"`
	Record interface{} `json:"record"`
}

type (
	NewHeartRate struct {
		BPM int `json:"bpm" validate:"required,min=1,max=300"`
	}

	NewBloodPressure struct {
		Systolic  int `json:"systolic" validate:"required,min=1,max=300"`
		Diastolic int `json:"diastolic" validate:"required,min=1,max=300,ltfield=Systolic"`
	}

	NewSpeechRate struct {
		WPM      int     `json:"wpm" validate:"min=0,max=1000"`
		Accuracy float64 `json:"accuracy" validate:"min=0,max=100"`
	}
)

func (nhr NewHeartRate) Validate(validate *validator.Validate) error     { return validate.Struct(nhr) }
func (nbp NewBloodPressure) Validate(validate *validator.Validate) error { return validate.Struct(nbp) }
func (nsr NewSpeechRate) Validate(validate *validator.Validate) error    { return validate.Struct(nsr) }
