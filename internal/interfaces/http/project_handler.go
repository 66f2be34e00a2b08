package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

// ProjectHandler listado de proyectos para el formulario de facturas.
type ProjectHandler struct {
	query *billing.InvoiceQueryUseCase
}

// NewProjectHandler construye el handler.
func NewProjectHandler(query *billing.InvoiceQueryUseCase) *ProjectHandler {
	return &ProjectHandler{query: query}
}

// List godoc
// @Summary      Listar proyectos
// @Tags         projects
// @Produce      json
// @Success      200  {array}  dto.ProjectResponse
// @Security     BearerAuth
// @Router       /admin/projects [get]
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	projects, err := h.query.ListProjects(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, dto.NewProjectResponse(p))
	}
	return c.JSON(out)
}
