package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// ProjectRepository puerto de lectura de proyectos (el CRUD vive en otro servicio).
type ProjectRepository interface {
	// GetByID devuelve (nil, nil) si el proyecto no existe.
	GetByID(ctx context.Context, id string) (*entity.Project, error)
	List(ctx context.Context) ([]*entity.Project, error)
}
