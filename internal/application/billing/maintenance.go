package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

const defaultStaleAfter = 5 * time.Minute

// MaintenanceUseCase tareas periódicas externas al ciclo de vida:
// marcar vencidas y liberar marcas de aprobación huérfanas.
type MaintenanceUseCase struct {
	invoiceRepo repository.InvoiceRepository
	loc         *time.Location
	staleAfter  time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// MaintenanceConfig parámetros de las tareas periódicas.
type MaintenanceConfig struct {
	Location *time.Location
	// StaleAfter debe superar holgadamente el timeout del gateway: una marca más vieja
	// solo puede venir de un proceso caído entre la marca y la confirmación.
	StaleAfter time.Duration
	Now        func() time.Time
}

// NewMaintenanceUseCase construye el caso de uso.
func NewMaintenanceUseCase(invoiceRepo repository.InvoiceRepository, cfg MaintenanceConfig, log zerolog.Logger) *MaintenanceUseCase {
	uc := &MaintenanceUseCase{
		invoiceRepo: invoiceRepo,
		loc:         cfg.Location,
		staleAfter:  cfg.StaleAfter,
		now:         cfg.Now,
		log:         log.With().Str("component", "invoice_maintenance").Logger(),
	}
	if uc.loc == nil {
		uc.loc = time.UTC
	}
	if uc.staleAfter <= 0 {
		uc.staleAfter = defaultStaleAfter
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	return uc
}

// SweepOverdue pasa a overdue las facturas pending vencidas antes de hoy.
func (uc *MaintenanceUseCase) SweepOverdue(ctx context.Context) (int64, error) {
	now := uc.now().In(uc.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, uc.loc)
	n, err := uc.invoiceRepo.MarkOverdue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("barrido de vencidas: %w", err)
	}
	uc.log.Info().Int64("updated", n).Str("today", today.Format("2006-01-02")).Msg("barrido de vencidas")
	return n, nil
}

// ReleaseStaleApprovals revierte las aprobaciones que quedaron en approving.
func (uc *MaintenanceUseCase) ReleaseStaleApprovals(ctx context.Context) (int64, error) {
	olderThan := uc.now().Add(-uc.staleAfter)
	n, err := uc.invoiceRepo.ReleaseStaleApprovals(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("liberar aprobaciones: %w", err)
	}
	if n > 0 {
		uc.log.Warn().Int64("released", n).Msg("marcas de aprobación huérfanas revertidas")
	}
	return n, nil
}

// Run ejecuta ambas tareas cada interval hasta que ctx termine.
func (uc *MaintenanceUseCase) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := uc.ReleaseStaleApprovals(ctx); err != nil {
			uc.log.Error().Err(err).Msg("liberar aprobaciones")
		}
		if _, err := uc.SweepOverdue(ctx); err != nil {
			uc.log.Error().Err(err).Msg("barrido de vencidas")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
