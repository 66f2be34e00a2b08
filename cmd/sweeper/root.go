package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "sweeper",
	Short:         "Mantenimiento de facturas (vencimientos y aprobaciones huérfanas)",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// env dependencias comunes de los subcomandos.
type env struct {
	cfg  *config.Config
	log  *logger.Logger
	pool *pgxpool.Pool
}

func (e *env) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

func loadEnv(ctx context.Context, withDB bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	e := &env{
		cfg: cfg,
		log: logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "sweeper"}),
	}
	if !withDB {
		return e, nil
	}
	if !cfg.DB.Enabled() {
		return nil, fmt.Errorf("DATABASE_URL o DB_HOST requerido")
	}
	if e.pool, err = postgres.NewPool(ctx, cfg.DB); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *env) maintenance() *billing.MaintenanceUseCase {
	return billing.NewMaintenanceUseCase(postgres.NewInvoiceRepository(e.pool), billing.MaintenanceConfig{
		Location:   e.cfg.App.Location(),
		StaleAfter: e.cfg.Billing.ApprovalStaleAfter,
	}, e.log.Component("maintenance"))
}
