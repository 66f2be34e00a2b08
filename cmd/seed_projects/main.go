// seed_projects carga en PostgreSQL el catálogo de proyectos exportado por el CRM.
//
// Uso: go run ./cmd/seed_projects [ruta/proyectos.xml]
// Sin argumento usa PROJECTS_FILE.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/seed"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_projects"})

	path := cfg.Storage.ProjectsFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Uso: seed_projects <proyectos.xml> (o PROJECTS_FILE)")
		os.Exit(2)
	}

	projects, err := seed.LoadProjectsFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("leer catálogo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	// Todo o nada: un proyecto inválido deja el catálogo como estaba.
	err = postgres.NewTxRunner(pool).Run(ctx, func(repo *postgres.ProjectRepo) error {
		for _, p := range projects {
			if err := repo.Upsert(ctx, p); err != nil {
				return fmt.Errorf("proyecto %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("guardar catálogo")
	}
	log.Info().Int("projects", len(projects)).Str("file", path).Msg("catálogo cargado")
}
