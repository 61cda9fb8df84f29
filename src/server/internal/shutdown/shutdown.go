package shutdown

import (
	"context"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const (
	allowMethods = "GET, POST, OPTIONS"
	allowHeaders = "Content-Type"
	maxAge       = "86400"
	responseBody = "Terminating server..."
)

//counterfeiter:generate . Killer
type Killer interface {
	Kill() error
}

var _ Killer = ProcessKiller{}

// ProcessKiller ends the current process without any cleanup.
type ProcessKiller struct{}

func (ProcessKiller) Kill() error {
	process, err := os.FindProcess(os.Getpid())
	if err != nil {
		return errors.Wrap(err, "Failed to find own process")
	}

	return process.Kill()
}

// Server is the side-channel the browser uses to end the application.
// It binds at most once per process, however many sessions ask for it.
type Server struct {
	address string
	killer  Killer
	echo    *echo.Echo

	once     sync.Once
	lock     sync.Mutex
	listener net.Listener
	startErr error
}

func NewServer(address string, killer Killer) *Server {
	s := &Server{
		address: address,
		killer:  killer,
	}
	s.echo = s.newEcho()

	return s
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// preflights are answered for every path, before routing
	e.Pre(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return handlePreflight(c)
			}
			return next(c)
		}
	})

	e.GET("/shutdown", s.handleShutdown)
	e.POST("/shutdown", s.handleShutdown)

	return e
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func handlePreflight(c echo.Context) error {
	header := c.Response().Header()
	header.Set(echo.HeaderAccessControlAllowOrigin, "*")
	header.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
	header.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
	header.Set(echo.HeaderAccessControlMaxAge, maxAge)

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleShutdown(c echo.Context) error {
	header := c.Response().Header()
	header.Set(echo.HeaderAccessControlAllowOrigin, "*")
	header.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
	header.Set(echo.HeaderCacheControl, "no-store")

	if err := c.String(http.StatusOK, responseBody); err != nil {
		return err
	}
	c.Response().Flush()

	log.WithField("remoteAddr", c.RealIP()).Info("Shutdown requested, terminating")

	if err := s.killer.Kill(); err != nil {
		log.WithError(err).Error("Failed to terminate the process")
	}

	return nil
}

// EnsureStarted binds the listener and serves in the background. Only the
// first call does anything; later calls report the first call's result.
func (s *Server) EnsureStarted() error {
	s.once.Do(func() {
		listener, err := net.Listen("tcp", s.address)
		if err != nil {
			s.startErr = errors.Wrapf(err, "Failed to listen on %s", s.address)
			log.WithError(err).WithField("address", s.address).Error("Shutdown listener unavailable")
			return
		}

		s.lock.Lock()
		s.listener = listener
		s.lock.Unlock()

		s.echo.Listener = listener

		log.WithField("address", listener.Addr().String()).Info("Shutdown listener started")

		go func() {
			err := s.echo.Start("")
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Shutdown listener stopped unexpectedly")
			}
		}()
	})

	return s.startErr
}

// Addr is the bound address, or nil before EnsureStarted succeeded.
func (s *Server) Addr() net.Addr {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.Addr() == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "Failed to stop shutdown listener")
	}

	return nil
}
