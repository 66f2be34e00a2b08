package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

// InvoiceHandler endpoints de administración de facturas (rol admin).
type InvoiceHandler struct {
	lifecycle *billing.InvoiceLifecycleManager
	query     *billing.InvoiceQueryUseCase
	proofs    *billing.ProofUploadUseCase
	kude      *billing.KuDEUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(
	lifecycle *billing.InvoiceLifecycleManager,
	query *billing.InvoiceQueryUseCase,
	proofs *billing.ProofUploadUseCase,
	kude *billing.KuDEUseCase,
) *InvoiceHandler {
	return &InvoiceHandler{lifecycle: lifecycle, query: query, proofs: proofs, kude: kude}
}

// List godoc
// @Summary      Listar facturas
// @Tags         invoices
// @Produce      json
// @Success      200  {array}   dto.InvoiceResponse
// @Security     BearerAuth
// @Router       /admin/invoices [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	list, err := h.query.ListInvoices(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInvoiceListResponse(list))
}

// Get GET /admin/invoices/:id
func (h *InvoiceHandler) Get(c *fiber.Ctx) error {
	inv, err := h.query.GetInvoice(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInvoiceResponse(inv))
}

// Create godoc
// @Summary      Crear factura
// @Description  Crea la factura en pending; totalAmount se deriva de amount con la cotización vigente.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateInvoiceRequest  true  "Factura"
// @Success      201   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if err := validate.Struct(&in); err != nil {
		return badRequest(c, "VALIDATION", validationMessage(err))
	}
	inv, err := h.lifecycle.Create(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewInvoiceResponse(inv))
}

// Update godoc
// @Summary      Actualizar factura
// @Description  Cambios parciales; no admite facturas pagadas ni anuladas.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "ID de la factura"
// @Param        body  body      dto.UpdateInvoiceRequest  true  "Cambios"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/invoices/{id} [patch]
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if err := validate.Struct(&in); err != nil {
		return badRequest(c, "VALIDATION", validationMessage(err))
	}
	inv, err := h.lifecycle.Update(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInvoiceResponse(inv))
}

// Approve godoc
// @Summary      Aprobar pago
// @Description  Verifica el comprobante, emite el documento electrónico en SIFEN y marca la factura como pagada.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true   "ID de la factura"
// @Param        body  body      dto.ApprovePaymentRequest  false  "Forma de pago"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/invoices/{id}/approve [post]
func (h *InvoiceHandler) Approve(c *fiber.Ctx) error {
	var in dto.ApprovePaymentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "INVALID_BODY", "cuerpo inválido")
		}
		if err := validate.Struct(&in); err != nil {
			return badRequest(c, "VALIDATION", validationMessage(err))
		}
	}
	inv, err := h.lifecycle.ApprovePayment(c.Context(), c.Params("id"), in.PaymentMethod)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInvoiceResponse(inv))
}

// Cancel POST /admin/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	inv, err := h.lifecycle.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInvoiceResponse(inv))
}

// UploadProof godoc
// @Summary      Subir comprobante de pago
// @Tags         invoices
// @Accept       multipart/form-data
// @Produce      json
// @Param        id             path      string  true   "ID de la factura"
// @Param        file           formData  file    true   "Comprobante (PDF o imagen)"
// @Param        paymentMethod  formData  string  false  "Forma de pago"
// @Success      200            {object}  dto.InvoiceResponse
// @Security     BearerAuth
// @Router       /admin/invoices/{id}/proof [post]
func (h *InvoiceHandler) UploadProof(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "VALIDATION", "file es requerido")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "INVALID_BODY", "no se pudo leer el archivo")
	}
	defer f.Close()

	inv, err := h.proofs.Upload(c.Context(), c.Params("id"), fh.Filename, f, c.FormValue("paymentMethod"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInvoiceResponse(inv))
}

// GetProof GET /admin/invoices/:id/proof
func (h *InvoiceHandler) GetProof(c *fiber.Ctx) error {
	proof, err := h.query.DescribeProof(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ProofResponse{URL: proof.URL, Kind: proof.Kind})
}

// Stats godoc
// @Summary      Estadísticas de facturación
// @Tags         invoices
// @Produce      json
// @Success      200  {object}  dto.InvoiceStatsResponse
// @Security     BearerAuth
// @Router       /admin/invoices/stats [get]
func (h *InvoiceHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.query.Stats(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.InvoiceStatsResponse{
		Total:   stats.Total,
		Pending: stats.Pending,
		Paid:    stats.Paid,
		Revenue: stats.Revenue,
	})
}

// DownloadKuDE GET /admin/invoices/:id/kude
func (h *InvoiceHandler) DownloadKuDE(c *fiber.Ctx) error {
	pdf, filename, err := h.kude.DownloadKuDE(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(pdf)
}

// Export GET /admin/invoices/export
func (h *InvoiceHandler) Export(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.query.Export(c.Context(), &buf); err != nil {
		return writeError(c, err)
	}
	filename := fmt.Sprintf("facturas_%s.xlsx", time.Now().Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}
