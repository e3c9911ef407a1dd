package testutil

import (
	"context"
	"net/mail"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/storage/database"
)

// Config returns the configuration tests run with.
func Config() *core.Config {
	return &core.Config{
		Env:                "TEST",
		TestMode:           true,
		AppName:            "Speech Practice",
		Build:              "test",
		SecretKey:          "test-secret",
		JWTExpirationDelta: time.Hour,
		FrontendBaseURL:    "http://localhost:3000",
		DefaultFromEmail:   mail.Address{Name: "Speech Practice", Address: "noreply@localhost"},
		Database:           core.DatabaseConfig{Engine: core.EngineSQLite},
	}
}

// SQLiteConfig returns a test config backed by a fresh sqlite file.
func SQLiteConfig(t *testing.T) *core.Config {
	t.Helper()
	conf := Config()
	conf.Database.Path = filepath.Join(t.TempDir(), "test.db")
	return conf
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// NopLogger discards everything.
func NopLogger() core.Logger { return nopLogger{} }

// OpenSQLite opens & migrates a fresh sqlite database, closed at the end of the test.
func OpenSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Setup(context.Background(), SQLiteConfig(t))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreatePatient(
	t *testing.T,
	repo account.Repository,
	name, email, pwd string,
	createdAt ...time.Time,
) account.Patient {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p := account.Patient{
		Email:     email,
		Name:      name,
		CreatedAt: tstamp,
	}
	if pwd != "" {
		if err := p.SetPassword(pwd); err != nil {
			t.Fatalf("CreatePatient() failed: %v", err)
		}
	}
	p, err := repo.CreatePatient(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePatient() failed: %v", err)
	}
	return p
}

func CreateTherapist(
	t *testing.T,
	repo account.Repository,
	name, email, pwd string,
	createdAt ...time.Time,
) account.Therapist {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	th := account.Therapist{
		Email:     email,
		Name:      name,
		CreatedAt: tstamp,
	}
	if pwd != "" {
		if err := th.SetPassword(pwd); err != nil {
			t.Fatalf("CreateTherapist() failed: %v", err)
		}
	}
	th, err := repo.CreateTherapist(context.Background(), th)
	if err != nil {
		t.Fatalf("CreateTherapist() failed: %v", err)
	}
	return th
}
