package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.ProjectRepository = (*ProjectRepo)(nil)

// ProjectRepo lectura de proyectos.
type ProjectRepo struct {
	q Querier
}

// NewProjectRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProjectRepository(q Querier) *ProjectRepo {
	return &ProjectRepo{q: q}
}

const projectSelect = `
	SELECT id, name, client_id, client_name, client_ruc, client_email, reference_price, created_at
	FROM projects`

func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	p, err := scanProject(r.q.QueryRow(ctx, projectSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*entity.Project, error) {
	rows, err := r.q.Query(ctx, projectSelect+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var list []*entity.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Upsert crea o actualiza el proyecto por id (carga del catálogo).
func (r *ProjectRepo) Upsert(ctx context.Context, p *entity.Project) error {
	const q = `
		INSERT INTO projects (id, name, client_id, client_name, client_ruc, client_email, reference_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			client_id = EXCLUDED.client_id,
			client_name = EXCLUDED.client_name,
			client_ruc = EXCLUDED.client_ruc,
			client_email = EXCLUDED.client_email,
			reference_price = EXCLUDED.reference_price`
	_, err := r.q.Exec(ctx, q, p.ID, p.Name, p.ClientID, p.ClientName, p.ClientRUC, p.ClientEmail, p.ReferencePrice, p.CreatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: proyecto %s", domain.ErrInvalidInput, p.ID)
		}
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

func scanProject(row pgx.Row) (*entity.Project, error) {
	var p entity.Project
	if err := row.Scan(&p.ID, &p.Name, &p.ClientID, &p.ClientName, &p.ClientRUC, &p.ClientEmail,
		&p.ReferencePrice, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
