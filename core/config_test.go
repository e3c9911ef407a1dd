package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("TEST_DEBUG", "false")
	t.Setenv("TEST_DATABASE_ENGINE", "Postgres")
	t.Setenv("TEST_SERVER_ADDRESS", ":9000")
	t.Setenv("TEST_FRONTENDBASEURL", "https://speech.example.com/")

	conf, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.False(t, conf.Debug)
	assert.Equal(t, EnginePostgres, conf.Database.Engine)
	assert.True(t, conf.Database.IsSQL())
	assert.Equal(t, "localhost:5432", conf.Database.Address())
	assert.Equal(t, ":9000", conf.Server.Address)
	assert.Equal(t, "https://speech.example.com", conf.FrontendBaseURL)
	assert.Equal(t, 24*time.Hour, conf.JWTExpirationDelta)
	assert.Equal(t, "noreply@localhost", conf.DefaultFromEmail.Address)
}

func TestNewConfig_invalid(t *testing.T) {
	t.Setenv("ENV", "test")

	t.Run("engine", func(t *testing.T) {
		t.Setenv("TEST_DATABASE_ENGINE", "oracle")
		_, err := NewConfig()
		assert.Error(t, err)
	})

	t.Run("from email", func(t *testing.T) {
		t.Setenv("TEST_DEFAULTFROMEMAIL", "not an address")
		_, err := NewConfig()
		assert.Error(t, err)
	})
}
