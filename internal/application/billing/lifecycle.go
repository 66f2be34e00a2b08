package billing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/sifen"
)

// ReferenceCurrency moneda de Invoice.Amount.
const ReferenceCurrency = "USD"

// AmountScale decimales admitidos en Invoice.Amount (centavos de dólar).
const AmountScale = 2

const defaultGatewayTimeout = 20 * time.Second

// LifecycleConfig parámetros del ciclo de vida.
type LifecycleConfig struct {
	GatewayTimeout time.Duration    // límite de la llamada a SIFEN dentro de la aprobación
	Location       *time.Location   // zona para "hoy" y fechas de vencimiento
	Now            func() time.Time // reloj inyectable (tests)
}

// InvoiceLifecycleManager máquina de estados de la factura:
//
//	(nueva) → pending → overdue → paid | cancelled
//
// Es el único componente que llama al FiscalGateway. La aprobación usa una escritura
// condicional (pending/overdue → approving) como punto de linealización: solo el llamador
// que gana el compare-and-swap emite el documento electrónico.
type InvoiceLifecycleManager struct {
	invoiceRepo    repository.InvoiceRepository
	projectRepo    repository.ProjectRepository
	gateway        FiscalGateway
	exchange       ExchangeRatePolicy
	gatewayTimeout time.Duration
	loc            *time.Location
	now            func() time.Time
	log            zerolog.Logger
}

// NewInvoiceLifecycleManager construye el manager con sus dependencias.
func NewInvoiceLifecycleManager(
	invoiceRepo repository.InvoiceRepository,
	projectRepo repository.ProjectRepository,
	gateway FiscalGateway,
	exchange ExchangeRatePolicy,
	cfg LifecycleConfig,
	log zerolog.Logger,
) *InvoiceLifecycleManager {
	m := &InvoiceLifecycleManager{
		invoiceRepo:    invoiceRepo,
		projectRepo:    projectRepo,
		gateway:        gateway,
		exchange:       exchange,
		gatewayTimeout: cfg.GatewayTimeout,
		loc:            cfg.Location,
		now:            cfg.Now,
		log:            log.With().Str("component", "invoice_lifecycle").Logger(),
	}
	if m.gatewayTimeout <= 0 {
		m.gatewayTimeout = defaultGatewayTimeout
	}
	if m.loc == nil {
		m.loc = time.UTC
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Create valida la entrada, convierte el monto con la política de cotización y persiste la
// factura en pending con número secuencial.
//
// Retorna:
//   - domain.ErrInvalidInput  monto no positivo, fecha inválida o anterior a hoy.
//   - domain.ErrNotFound      el proyecto no existe.
func (m *InvoiceLifecycleManager) Create(ctx context.Context, in dto.CreateInvoiceRequest) (*entity.Invoice, error) {
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: projectId requerido", domain.ErrInvalidInput)
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	dueDate, err := m.parseDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	project, err := m.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("crear factura: obtener proyecto: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: proyecto %s", domain.ErrNotFound, projectID)
	}

	total, err := m.exchange.Convert(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	now := m.now()
	inv := &entity.Invoice{
		ID:          uuid.New().String(),
		ProjectID:   project.ID,
		ClientID:    project.ClientID,
		Amount:      in.Amount,
		TotalAmount: total,
		Status:      entity.InvoiceStatusPending,
		DueDate:     dueDate,
		Description: strings.TrimSpace(in.Description),
		ProjectName: project.Name,
		ClientName:  project.ClientName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.invoiceRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("crear factura: %w", err)
	}

	m.log.Info().
		Str("invoice_id", inv.ID).
		Str("invoice_number", inv.InvoiceNumber).
		Str("amount", inv.Amount.String()).
		Str("total_amount", inv.TotalAmount.String()).
		Msg("factura creada")
	return inv, nil
}

// Update aplica cambios parciales sobre una factura no terminal. No modifica el estado.
// Un cambio de monto re-deriva TotalAmount con la política vigente y solo se acepta en
// pending/overdue; el resto de los campos también se acepta durante una aprobación en curso.
func (m *InvoiceLifecycleManager) Update(ctx context.Context, id string, in dto.UpdateInvoiceRequest) (*entity.Invoice, error) {
	inv, err := m.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("actualizar factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.IsTerminal() {
		return nil, inv.StateError()
	}

	var patch entity.InvoicePatch
	allowed := []string{entity.InvoiceStatusPending, entity.InvoiceStatusOverdue, entity.InvoiceStatusApproving}

	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		patch.Description = &desc
	}
	if in.DueDate != nil {
		due, err := m.parseDueDate(*in.DueDate)
		if err != nil {
			return nil, err
		}
		patch.DueDate = &due
	}
	if in.Amount != nil {
		if err := validateAmount(*in.Amount); err != nil {
			return nil, err
		}
		total, err := m.exchange.Convert(*in.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		amount := *in.Amount
		patch.Amount = &amount
		patch.TotalAmount = &total
		allowed = []string{entity.InvoiceStatusPending, entity.InvoiceStatusOverdue}
	}
	if in.ProofFileURL != nil {
		proof := strings.TrimSpace(*in.ProofFileURL)
		patch.ProofFileURL = &proof
	}
	if in.PaymentMethod != nil {
		method := strings.TrimSpace(*in.PaymentMethod)
		patch.PaymentMethod = &method
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: no hay campos para actualizar", domain.ErrInvalidInput)
	}

	updated, err := m.invoiceRepo.Patch(ctx, id, patch, allowed)
	if err != nil {
		return nil, err
	}
	m.log.Info().Str("invoice_id", id).Msg("factura actualizada")
	return updated, nil
}

// ApprovePayment aprueba el pago y emite el documento electrónico en SIFEN.
//
//  1. Carga la factura (domain.ErrNotFound).
//  2. Exige pending/overdue (*domain.InvalidStateError).
//  3. Exige comprobante (domain.ErrMissingProof).
//  4. CAS pending/overdue → approving; el perdedor recibe *domain.InvalidStateError.
//  5. Llama a SIFEN con timeout, desacoplado de la cancelación del llamador.
//  6. Éxito: confirma paid + paidDate + CDC + QR en una sola escritura.
//  7. Falla: revierte al estado previo y retorna *domain.FiscalGatewayError.
func (m *InvoiceLifecycleManager) ApprovePayment(ctx context.Context, id, paymentMethod string) (*entity.Invoice, error) {
	inv, err := m.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("aprobar pago: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if !inv.IsApprovable() {
		return nil, inv.StateError()
	}
	if !inv.HasProof() {
		return nil, domain.ErrMissingProof
	}
	project, err := m.projectRepo.GetByID(ctx, inv.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("aprobar pago: obtener proyecto: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: proyecto %s de la factura", domain.ErrNotFound, inv.ProjectID)
	}

	previous, ok, err := m.invoiceRepo.BeginApproval(ctx, id, m.now())
	if err != nil {
		return nil, fmt.Errorf("aprobar pago: marcar aprobación: %w", err)
	}
	if !ok {
		return nil, m.stateError(ctx, id)
	}

	log := m.log.With().Str("invoice_id", id).Str("from", previous).Logger()
	log.Info().Msg("aprobación iniciada, solicitando documento a SIFEN")

	// Desde aquí la factura está en approving: toda salida debe confirmar o revertir,
	// aunque el llamador cancele su contexto.
	bg := context.WithoutCancel(ctx)

	gwCtx, cancel := context.WithTimeout(bg, m.gatewayTimeout)
	doc, gwErr := m.gateway.Issue(gwCtx, m.fiscalRequest(inv, project))
	if gwErr == nil {
		gwErr = validateFiscalDocument(doc)
	}
	timedOut := errors.Is(gwCtx.Err(), context.DeadlineExceeded)
	cancel()

	if gwErr != nil {
		fgErr := classifyGatewayError(gwErr, timedOut)
		m.abortApproval(bg, log, id)
		log.Warn().Err(fgErr).Str("kind", fgErr.Kind).Bool("retryable", fgErr.Retryable()).
			Msg("SIFEN no emitió el documento, factura revertida")
		return nil, fgErr
	}

	result := entity.ApprovalResult{
		PaidDate:      m.now(),
		SifenCDC:      doc.CDC,
		SifenQR:       doc.QR,
		PaymentMethod: strings.TrimSpace(paymentMethod),
	}
	committed, err := m.invoiceRepo.CompleteApproval(bg, id, result)
	if err != nil {
		// El documento existe en SIFEN pero no quedó registrado: se deja el CDC en el log
		// para conciliación manual y se libera la marca.
		log.Error().Err(err).Str("cdc", doc.CDC).Str("qr", doc.QR).
			Msg("no se pudo confirmar la aprobación, CDC emitido requiere conciliación")
		m.abortApproval(bg, log, id)
		return nil, fmt.Errorf("aprobar pago: confirmar aprobación: %w", err)
	}
	if !committed {
		stateErr := m.stateError(bg, id)
		log.Warn().Str("cdc", doc.CDC).Err(stateErr).
			Msg("respuesta tardía de SIFEN descartada: la factura ya no está en aprobación")
		return nil, stateErr
	}

	updated, err := m.invoiceRepo.GetByID(bg, id)
	if err != nil {
		return nil, fmt.Errorf("aprobar pago: releer factura: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}
	log.Info().Str("cdc", doc.CDC).Msg("pago aprobado, documento electrónico emitido")
	return updated, nil
}

// Cancel anula una factura pending/overdue. Es idempotente sobre una factura ya anulada.
func (m *InvoiceLifecycleManager) Cancel(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := m.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("anular factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.Status == entity.InvoiceStatusCancelled {
		return inv, nil
	}
	if !inv.IsApprovable() {
		return nil, inv.StateError()
	}

	ok, err := m.invoiceRepo.TransitionStatus(ctx, id,
		[]string{entity.InvoiceStatusPending, entity.InvoiceStatusOverdue}, entity.InvoiceStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("anular factura: %w", err)
	}
	current, err := m.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("anular factura: releer: %w", err)
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	if !ok && current.Status != entity.InvoiceStatusCancelled {
		return nil, current.StateError()
	}
	if ok {
		m.log.Info().Str("invoice_id", id).Str("from", inv.Status).Msg("factura anulada")
	}
	return current, nil
}

// ── helpers privados ──────────────────────────────────────────────────────────

func (m *InvoiceLifecycleManager) today() time.Time {
	now := m.now().In(m.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, m.loc)
}

// validateAmount monto positivo con a lo sumo AmountScale decimales (columna NUMERIC(18,2)).
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: el monto debe ser mayor a cero", domain.ErrInvalidInput)
	}
	if !amount.Equal(amount.Round(AmountScale)) {
		return fmt.Errorf("%w: el monto admite hasta %d decimales", domain.ErrInvalidInput, AmountScale)
	}
	return nil
}

// parseDueDate exige YYYY-MM-DD válido y no anterior a hoy.
func (m *InvoiceLifecycleManager) parseDueDate(raw string) (time.Time, error) {
	due, err := time.ParseInLocation(dto.DateLayout, strings.TrimSpace(raw), m.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dueDate debe tener formato YYYY-MM-DD", domain.ErrInvalidInput)
	}
	if due.Before(m.today()) {
		return time.Time{}, fmt.Errorf("%w: dueDate no puede ser anterior a hoy", domain.ErrInvalidInput)
	}
	return due, nil
}

func (m *InvoiceLifecycleManager) fiscalRequest(inv *entity.Invoice, project *entity.Project) FiscalRequest {
	return FiscalRequest{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Amount:        inv.Amount,
		Currency:      ReferenceCurrency,
		TotalAmount:   inv.TotalAmount,
		DueDate:       inv.DueDate,
		IssuedAt:      m.now(),
		Description:   inv.Description,
		Client: FiscalClient{
			ID:    project.ClientID,
			Name:  project.ClientName,
			RUC:   project.ClientRUC,
			Email: project.ClientEmail,
		},
	}
}

func (m *InvoiceLifecycleManager) abortApproval(ctx context.Context, log zerolog.Logger, id string) {
	reverted, err := m.invoiceRepo.AbortApproval(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("no se pudo revertir la marca de aprobación")
		return
	}
	if !reverted {
		log.Warn().Msg("la marca de aprobación ya había sido liberada")
	}
}

// stateError relee la factura para informar su estado actual; sin estado si no se puede leer.
func (m *InvoiceLifecycleManager) stateError(ctx context.Context, id string) error {
	inv, err := m.invoiceRepo.GetByID(ctx, id)
	if err != nil || inv == nil {
		return domain.NewInvalidStateError("")
	}
	return inv.StateError()
}

// validateFiscalDocument una respuesta sin CDC válido o sin URL de QR es una falla.
func validateFiscalDocument(doc *FiscalDocument) error {
	if doc == nil {
		return domain.NewFiscalGatewayError(domain.GatewayMalformed, "respuesta vacía", nil)
	}
	if err := sifen.ValidateCDC(doc.CDC); err != nil {
		return domain.NewFiscalGatewayError(domain.GatewayMalformed, "CDC inválido", err)
	}
	u, err := url.Parse(doc.QR)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return domain.NewFiscalGatewayError(domain.GatewayMalformed, "URL de QR inválida", err)
	}
	return nil
}

func classifyGatewayError(err error, timedOut bool) *domain.FiscalGatewayError {
	if gwErr, ok := domain.AsFiscalGatewayError(err); ok {
		return gwErr
	}
	if timedOut || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewFiscalGatewayError(domain.GatewayTimeout, "sin respuesta dentro del plazo", err)
	}
	return domain.NewFiscalGatewayError(domain.GatewayUnavailable, err.Error(), err)
}
