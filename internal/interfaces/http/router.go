package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Lifecycle   *billing.InvoiceLifecycleManager
	Query       *billing.InvoiceQueryUseCase
	ProofUpload *billing.ProofUploadUseCase
	KuDE        *billing.KuDEUseCase
	JWTSecret   string
	JWTIssuer   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Todo el panel requiere Bearer Token con rol admin.
	admin := app.Group("/admin", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer), RequireRole(jwt.RoleAdmin))

	projectHandler := NewProjectHandler(deps.Query)
	admin.Get("/projects", projectHandler.List)

	invoices := admin.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Lifecycle, deps.Query, deps.ProofUpload, deps.KuDE)
	invoices.Get("/", invoiceHandler.List)
	invoices.Post("/", invoiceHandler.Create)
	// Rutas fijas antes de /:id
	invoices.Get("/stats", invoiceHandler.Stats)
	invoices.Get("/export", invoiceHandler.Export)
	invoices.Get("/:id", invoiceHandler.Get)
	invoices.Patch("/:id", invoiceHandler.Update)
	invoices.Post("/:id/approve", invoiceHandler.Approve)
	invoices.Post("/:id/cancel", invoiceHandler.Cancel)
	invoices.Post("/:id/proof", invoiceHandler.UploadProof)
	invoices.Get("/:id/proof", invoiceHandler.GetProof)
	invoices.Get("/:id/kude", invoiceHandler.DownloadKuDE)
}
