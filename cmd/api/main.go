package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/vfarias/gestor-api/internal/application/auth"
	"github.com/vfarias/gestor-api/internal/application/fiscal"
	infrapdf "github.com/vfarias/gestor-api/internal/infrastructure/pdf"
	"github.com/vfarias/gestor-api/internal/infrastructure/postgres"
	"github.com/vfarias/gestor-api/internal/infrastructure/sefaz"
	httpRouter "github.com/vfarias/gestor-api/internal/interfaces/http"
	"github.com/vfarias/gestor-api/pkg/config"
	"github.com/vfarias/gestor-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("carregar configuração: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicação")

	ctx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexão com PostgreSQL")
	}
	defer pool.Close()

	docRepo := postgres.NewFiscalDocumentRepository(pool)
	eventRepo := postgres.NewFiscalEventRepository(pool)
	queueRepo := postgres.NewTransmissionQueueRepository(pool)
	certRepo := postgres.NewCertificateConfigRepository(pool)
	clientRepo := postgres.NewClientRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	certUC := fiscal.NewCertificateUseCase(certRepo, sefaz.NewCertInspector())
	gateway := sefaz.NewClient(cfg.Fiscal.Environment, cfg.Fiscal.GatewayURL)

	lifecycleUC := fiscal.NewLifecycleUseCase(txRunner, docRepo, queueRepo, certUC, nil, log)
	createDocUC := fiscal.NewCreateDocumentUseCase(txRunner, docRepo, eventRepo, clientRepo)
	mirrorUC := fiscal.NewMirrorUseCase(docRepo, clientRepo, infrapdf.NewMarotoPDFGenerator())
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// Workers: o dispatcher consome a fila de transmissão; o reconciliador
	// consulta documentos travados em processing.
	dispatcher := fiscal.NewDispatcher(queueRepo, docRepo, gateway, lifecycleUC, log, 5*time.Second)
	reconciler := fiscal.NewReconciler(docRepo, eventRepo, gateway, lifecycleUC, log, cfg.Fiscal.PollInterval, cfg.Fiscal.StaleAfter)
	go dispatcher.Run(ctx)
	go reconciler.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Gestor API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CreateDocument: createDocUC,
		Lifecycle:      lifecycleUC,
		Mirror:         mirrorUC,
		CertificateUC:  certUC,
		AuthUC:         authUC,
		JWTSecret:      cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("sinal de desligamento recebido, encerrando...")
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("desligamento do servidor")
	}

	log.Info().Msg("aplicação parada")
}
