package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	testutil "github.com/borisstroganov/accessible-health-dashboard/tests"
)

func Test_newAppHTTPErrorHandler(t *testing.T) {
	translator, _ := ut.New(en.New()).GetTranslator("en")

	tests := []struct {
		name         string
		err          error
		debug        bool
		wantCode     int
		wantBody     string
		wantShutdown bool
	}{
		{
			name:     "http error",
			err:      echo.NewHTTPError(http.StatusConflict, "conflict"),
			wantCode: http.StatusConflict,
			wantBody: `{"error":"conflict"}`,
		},
		{
			name:     "wrapped rejection",
			err:      errors.Wrap(core.NewRejectionError("nope"), "doing things"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"nope"}`,
		},
		{
			name:     "field errors",
			err:      core.NewValidationError(nil, core.FieldError{Field: "email", Error: "taken"}),
			wantCode: http.StatusBadRequest,
			wantBody: `{"email":"taken"}`,
		},
		{
			name:     "validation error without fields",
			err:      core.NewValidationError(errors.New("bad input")),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"bad input"}`,
		},
		{
			name:     "unknown error",
			err:      errors.New("db exploded"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Internal Server Error"}`,
		},
		{
			name:     "unknown error in debug",
			err:      errors.Wrap(errors.New("db exploded"), "querying"),
			debug:    true,
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"querying: db exploded"}`,
		},
		{
			name:         "shutdown",
			err:          errors.Wrap(core.NewShutdownError("integrity issue"), "saving"),
			wantCode:     http.StatusInternalServerError,
			wantBody:     `{"error":"Internal Server Error"}`,
			wantShutdown: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shutdown bool
			handler := newAppHTTPErrorHandler(testutil.NopLogger(), func() { shutdown = true }, translator)

			e := echo.New()
			e.Debug = tt.debug
			req, rec := newRequest(http.MethodGet, "/")
			handler(tt.err, e.NewContext(req, rec))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantShutdown, shutdown)
		})
	}

	t.Run("head", func(t *testing.T) {
		handler := newAppHTTPErrorHandler(testutil.NopLogger(), func() {}, translator)
		req := httptest.NewRequest(http.MethodHead, "/", nil)
		rec := httptest.NewRecorder()
		handler(core.NewRejectionError("nope"), echo.New().NewContext(req, rec))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}
