package main

import (
	"context"
	"log/slog"
	"os"

	"citas/config"
	"citas/internal/delivery"
	"citas/internal/delivery/api"
	"citas/internal/delivery/api/middleware"
	"citas/internal/delivery/api/router/handler"
	"citas/internal/domain/service"
	"citas/internal/infra/auth"
	"citas/internal/infra/blobstore"
	logs "citas/internal/infra/log"
	"citas/internal/infra/pubsub"
	"citas/internal/infra/qrcode"
	"citas/internal/infra/remoteapi"
	"citas/internal/infra/storage"
	"citas/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		service.NewSystemClock,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			storage.NewSlotStoreProvider,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		remoteapi.Module,
		pubsub.Module,
		fx.Provide(
			blobstore.New,
			auth.NewJWTService,
			newQRCodeService,
		),
	)
}

// newQRCodeService creates the access-code QR service from configuration
func newQRCodeService(cfg *config.Config) service.QRCodeService {
	return qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel, cfg.QRCode.ResumeURL)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewScopeProvider,
			impl.NewReviewService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewClientScopeMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewCompanyHandler,
			handler.NewAccessHandler,
			handler.NewWizardHandler,
			handler.NewAdminHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))

				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}
