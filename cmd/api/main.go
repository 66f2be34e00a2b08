// @title          Facturación API
// @version        1.0
// @description    Administración de facturas de proyectos con emisión de factura electrónica SIFEN.
// @BasePath       /
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/Facturacion-api/docs"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/excel"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/Facturacion-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/seed"
	infrasifen "github.com/jhoicas/Facturacion-api/internal/infrastructure/sifen"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("sifen_env", cfg.SIFEN.Env).
		Msg("iniciando aplicación")

	ctx := context.Background()
	loc := cfg.App.Location()

	var (
		invoiceRepo repository.InvoiceRepository
		projectRepo repository.ProjectRepository
	)
	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.Migrate {
			if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
		}
		invoiceRepo = postgres.NewInvoiceRepository(pool)
		projectRepo = postgres.NewProjectRepository(pool)
	} else {
		projects := memory.NewProjectRepository()
		if cfg.Storage.ProjectsFile != "" {
			list, err := seed.LoadProjectsFile(cfg.Storage.ProjectsFile)
			if err != nil {
				log.Fatal().Err(err).Msg("catálogo de proyectos")
			}
			for _, p := range list {
				projects.Put(p)
			}
		}
		log.Warn().Msg("sin base de datos configurada: repositorios en memoria")
		invoiceRepo = memory.NewInvoiceRepository(projects)
		projectRepo = projects
	}

	issuer := infrasifen.Issuer{
		RUC:   cfg.SIFEN.RUC,
		Name:  cfg.SIFEN.IssuerName,
		CSCID: cfg.SIFEN.CSCID,
		CSC:   cfg.SIFEN.CSC,
	}
	gateway, err := newFiscalGateway(cfg.SIFEN, issuer, log)
	if err != nil {
		log.Fatal().Err(err).Msg("gateway SIFEN")
	}

	exchange, err := billing.NewFixedRatePolicy(cfg.Billing.ExchangeRate)
	if err != nil {
		log.Fatal().Err(err).Msg("cotización")
	}

	lifecycle := billing.NewInvoiceLifecycleManager(invoiceRepo, projectRepo, gateway, exchange,
		billing.LifecycleConfig{GatewayTimeout: cfg.SIFEN.Timeout(), Location: loc},
		log.Component("lifecycle"))

	proofStore, err := storage.NewLocalProofStore(cfg.Storage.ProofDir, cfg.Storage.ProofPublicURL, log.Component("proof_store"))
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento de comprobantes")
	}

	query := billing.NewInvoiceQueryUseCase(invoiceRepo, projectRepo, billing.NewProofVerifier(), excel.NewInvoiceExporter())
	kude := billing.NewKuDEUseCase(invoiceRepo, projectRepo,
		infrapdf.NewKuDEGenerator(infrapdf.Issuer{Name: cfg.SIFEN.IssuerName, RUC: cfg.SIFEN.RUC}))
	proofUpload := billing.NewProofUploadUseCase(invoiceRepo, proofStore, lifecycle)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.SIFEN.Timeout() + 10*time.Second,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    storage.MaxProofSize + 1<<20,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	// Comprobantes guardados por LocalProofStore, si no los sirve un CDN externo.
	if strings.HasPrefix(cfg.Storage.ProofPublicURL, "/") {
		app.Static(cfg.Storage.ProofPublicURL, cfg.Storage.ProofDir)
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Lifecycle:   lifecycle,
		Query:       query,
		ProofUpload: proofUpload,
		KuDE:        kude,
		JWTSecret:   cfg.JWT.Secret,
		JWTIssuer:   cfg.JWT.Issuer,
	})

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if cfg.Billing.OverdueSweepInterval > 0 {
		maintenance := billing.NewMaintenanceUseCase(invoiceRepo, billing.MaintenanceConfig{
			Location:   loc,
			StaleAfter: cfg.Billing.ApprovalStaleAfter,
		}, log.Component("maintenance"))
		go maintenance.Run(bgCtx, cfg.Billing.OverdueSweepInterval)
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SIFEN.Timeout()+5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// newFiscalGateway en dev emite localmente; en test/prod usa el servicio de la SET.
func newFiscalGateway(cfg config.SIFENConfig, issuer infrasifen.Issuer, log *logger.Logger) (billing.FiscalGateway, error) {
	if cfg.Simulated() {
		return infrasifen.NewSimulatedGateway(issuer, 300*time.Millisecond, log.Component("sifen_simulated"))
	}
	var signer *infrasifen.Signer
	if cfg.CertPath != "" {
		cert, err := infrasifen.LoadFromP12(cfg.CertPath, cfg.CertPassword)
		if err != nil {
			return nil, err
		}
		if signer, err = infrasifen.NewSigner(cert); err != nil {
			return nil, err
		}
	}
	return infrasifen.NewClient(infrasifen.Config{
		Env:       cfg.Env,
		BaseURL:   cfg.BaseURL,
		QRBaseURL: cfg.QRBaseURL,
		Timeout:   cfg.Timeout(),
		Issuer:    issuer,
	}, signer, log.Component("sifen_client"))
}
