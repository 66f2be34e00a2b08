package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// ProjectRepository catálogo de proyectos en memoria.
type ProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]*entity.Project
}

// NewProjectRepository crea el repositorio con los proyectos dados.
func NewProjectRepository(projects ...*entity.Project) *ProjectRepository {
	r := &ProjectRepository{projects: make(map[string]*entity.Project, len(projects))}
	for _, p := range projects {
		r.Put(p)
	}
	return r
}

// Put agrega o reemplaza un proyecto.
func (r *ProjectRepository) Put(p *entity.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *p
	r.projects[p.ID] = &c
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := r.lookup(id)
	if p == nil {
		return nil, nil
	}
	return p, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]*entity.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*entity.Project, 0, len(r.projects))
	for _, p := range r.projects {
		c := *p
		out = append(out, &c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ProjectRepository) lookup(id string) *entity.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil
	}
	c := *p
	return &c
}
