package dig_container

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/borisstroganov/accessible-health-dashboard/apps/api/echo"
	"github.com/borisstroganov/accessible-health-dashboard/core"
)

func TestNew(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("TEST_DEBUG", "false")
	t.Setenv("TEST_DATABASE_ENGINE", core.EngineSQLite)
	t.Setenv("TEST_DATABASE_PATH", filepath.Join(t.TempDir(), "api.db"))

	c := New()
	err := c.Invoke(func(conf *core.Config, db core.DB, publisher core.EventPublisher, server *echoapi.Server) {
		defer func() { _ = db.Close() }()
		assert.True(t, conf.TestMode)
		assert.NotNil(t, publisher)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	require.NoError(t, err)
}
