package api

import (
	"log/slog"

	"citas/config"
	"citas/internal/delivery"
	apimiddleware "citas/internal/delivery/api/middleware"
	"citas/internal/delivery/api/router"
	"citas/internal/delivery/api/validator"
	deliverycontext "citas/internal/delivery/context"
	"citas/internal/delivery/middleware"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"golang.org/x/net/http2"
)

// ServerParams holds dependencies for HTTP server, injected by Fx.
type ServerParams struct {
	fx.In

	Lc           fx.Lifecycle
	Cfg          *config.Config
	Logger       *slog.Logger
	RouterParams router.RouterParams
}

// NewServer builds the public API served over h2c on http.port.
func NewServer(params ServerParams) (delivery.Delivery, error) {
	e := newEcho(params.Cfg, params.Logger)
	router.NewRouter(params.RouterParams).RegisterRoutes(e)

	srv := &delivery.EchoServer{
		Name:   "citas API server",
		Port:   params.Cfg.HTTP.Port,
		Echo:   e,
		H2C:    &http2.Server{IdleTimeout: params.Cfg.HTTP.Timeouts.IdleTimeout},
		Logger: params.Logger,
	}

	return srv.Register(params.Lc), nil
}

// newEcho applies timeouts and the middleware chain shared by every API route.
// Request ids are assigned before logging so access lines carry them.
func newEcho(cfg *config.Config, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.HTTP.Timeouts.ReadTimeout
	e.Server.ReadHeaderTimeout = cfg.HTTP.Timeouts.ReadHeaderTimeout
	e.Server.WriteTimeout = cfg.HTTP.Timeouts.WriteTimeout
	e.Server.IdleTimeout = cfg.HTTP.Timeouts.IdleTimeout

	e.Use(
		echomiddleware.Recover(),
		middleware.NewRequestIDMiddleware(logger).Process,
		middleware.NewLoggerMiddleware(logger, cfg).Handle,
		// The front-end stores X-Client-Id from the first response and resends it.
		echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.AllowOrigins,
			AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization, deliverycontext.HeaderXClientID, deliverycontext.HeaderXRequestID},
			ExposeHeaders: []string{deliverycontext.HeaderXClientID, deliverycontext.HeaderXRequestID},
		}),
		echomiddleware.BodyLimit(cfg.HTTP.MaxRequestBodySize),
	)

	e.HTTPErrorHandler = apimiddleware.NewErrorMiddleware(logger).HandleHTTPError
	e.Validator = validator.New()

	return e
}
