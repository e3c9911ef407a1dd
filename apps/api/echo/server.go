package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		DB            core.DB
		AccountSvc    *account.Service
		PairingSvc    *pairing.Service
		AssignmentSvc *assignment.Service
		CaptureSvc    *capture.Service
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableRequestLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: conf.Server.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown, s.deps.Translator)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/health", s.health)

	v1 := s.app.Group("/v1")
	auth := newAuthenticator(conf, s.deps.AccountSvc)
	anyAuth := auth.middleware(account.RoleAny)
	pg := v1.Group("/patient", auth.middleware(account.RolePatient))
	tg := v1.Group("/therapist", auth.middleware(account.RoleTherapist))

	registerAccountAPI(v1, anyAuth, auth, s.deps.AccountSvc, s.deps.PairingSvc, s.deps.Validate)
	registerPairingAPI(pg, tg, s.deps.PairingSvc, s.deps.Validate)
	registerAssignmentAPI(pg, tg, s.deps.AssignmentSvc, s.deps.Validate)
	registerCaptureAPI(pg, tg, s.deps.CaptureSvc, s.deps.PairingSvc, s.deps.Validate)
}

// Start blocks until the server stops. Listen errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+s.deps.Conf.AppName+" API!")
}

func (s *Server) health(ctx echo.Context) error {
	if err := s.deps.DB.PingContext(ctx.Request().Context()); err != nil {
		s.deps.Logger.Error("health check: database unreachable", err)
		return errDBUnavailable
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": s.deps.Conf.Build})
}
