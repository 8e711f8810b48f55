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

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/daycare"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/user"
	"github.com/trezcool/creche/services/metrics"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		RecordSvc      *record.Service
		UserSvc        user.ServiceInterface
		Lister         daycare.Lister
		Metrics        *metrics.Metrics // optional
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if s.opts.Metrics != nil {
		s.app.Use(s.opts.Metrics.Middleware())
	}
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	if s.opts.Metrics != nil {
		s.app.GET("/metrics", s.opts.Metrics.Handler())
	}

	auth := newAuthenticator(conf, s.opts.RecordSvc, s.opts.UserSvc, s.opts.Metrics)
	jwt := middleware.JWTWithConfig(auth.jwtConfig)
	tenant := auth.tenantMiddleware()

	v1 := s.app.Group("/v1")
	registerRecordAPI(v1, jwt, tenant, s.opts.RecordSvc)
	registerUserAPI(v1, jwt, tenant, auth, s.opts.UserSvc, s.opts.Validate, s.opts.Translator)

	registerAdminAPI(s.app.Group("/admin"), conf, s.opts.RecordSvc, s.opts.Lister)
}

// Start blocks until the server stops. Listening errors are sent to Errors().
func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Creche API!")
}
