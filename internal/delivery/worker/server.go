// Package worker serves the Pub/Sub push endpoint that fans citas events out to reviewers.
package worker

import (
	"log/slog"
	"net/http"

	"citas/config"
	"citas/internal/delivery"
	"citas/internal/delivery/middleware"
	"citas/internal/delivery/worker/handler"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
)

// ServerParams holds dependencies for the worker server
type ServerParams struct {
	fx.In

	Lc          fx.Lifecycle
	Cfg         *config.Config
	Logger      *slog.Logger
	PushHandler *handler.PushHandler
}

// NewServer listens on http.workerPort for pushed domain events.
func NewServer(params ServerParams) (delivery.Delivery, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(
		echomiddleware.Recover(),
		middleware.NewRequestIDMiddleware(params.Logger).Process,
		middleware.NewLoggerMiddleware(params.Logger, params.Cfg).Handle,
	)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": params.Cfg.Env.ServiceName + "-worker",
		})
	})
	e.POST("/events/push", params.PushHandler.HandlePush)

	srv := &delivery.EchoServer{
		Name:   "event worker",
		Port:   params.Cfg.HTTP.WorkerPort,
		Echo:   e,
		Logger: params.Logger,
	}

	return srv.Register(params.Lc), nil
}
