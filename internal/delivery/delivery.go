// Package delivery contains the inbound adapters of the application.
package delivery

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"citas/internal/domain/lifecycle"
	"citas/internal/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"golang.org/x/net/http2"
)

// Delivery is a long-running server started by the application entrypoint.
type Delivery interface {
	Serve(ctx context.Context) error
}

// EchoServer serves an echo instance on a port until the fx lifecycle stops.
// With H2C set it accepts cleartext HTTP/2 as well as HTTP/1.1.
type EchoServer struct {
	Name   string
	Port   int
	Echo   *echo.Echo
	H2C    *http2.Server
	Logger *slog.Logger
}

// Register stops the server gracefully when lc stops.
func (s *EchoServer) Register(lc fx.Lifecycle) *EchoServer {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
			defer cancel()

			s.Logger.Info("Shutting down "+s.Name, slog.Int("port", s.Port))

			return errors.WithStack(s.Echo.Shutdown(shutdownCtx))
		},
	})

	return s
}

func (s *EchoServer) Serve(_ context.Context) error {
	hostPort := net.JoinHostPort("0.0.0.0", strconv.Itoa(s.Port))
	s.Logger.Info("Starting "+s.Name, slog.String("host_port", hostPort), slog.Bool("h2c", s.H2C != nil))

	var err error
	if s.H2C != nil {
		err = s.Echo.StartH2CServer(hostPort, s.H2C)
	} else {
		err = s.Echo.Start(hostPort)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "%s stopped", s.Name)
	}

	return nil
}
