package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Facturacion-api/pkg/jwt"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Pasa a overdue las facturas pending con vencimiento anterior a hoy",
	Example: `  sweeper sweep
  sweeper run --interval 1h   # en bucle`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMaintenance(cmd, func(ctx context.Context, e *env) error {
			n, err := e.maintenance().SweepOverdue(ctx)
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "facturas vencidas: %d\n", n)
			}
			return err
		})
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release-stale",
	Short: "Revierte las facturas que quedaron en aprobación más de APPROVAL_STALE_MINUTES",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMaintenance(cmd, func(ctx context.Context, e *env) error {
			n, err := e.maintenance().ReleaseStaleApprovals(ctx)
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "aprobaciones liberadas: %d\n", n)
			}
			return err
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ejecuta release-stale y sweep cada OVERDUE_SWEEP_INTERVAL_MINUTES hasta recibir una señal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		e, err := loadEnv(ctx, true)
		if err != nil {
			return err
		}
		defer e.Close()

		interval := e.cfg.Billing.OverdueSweepInterval
		if flag, _ := cmd.Flags().GetDuration("interval"); flag > 0 {
			interval = flag
		}
		if interval <= 0 {
			return fmt.Errorf("intervalo inválido")
		}
		e.log.Info().Dur("interval", interval).Msg("sweeper iniciado")
		e.maintenance().Run(ctx, interval)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un JWT de administrador firmado con JWT_SECRET (solo desarrollo)",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		if e.cfg.App.Env == "production" {
			return fmt.Errorf("token no disponible en producción")
		}
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		tok, err := jwt.Generate(e.cfg.JWT.Secret, subject, "", jwt.RoleAdmin, e.cfg.JWT.Issuer, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd, releaseCmd, runCmd, tokenCmd)

	runCmd.Flags().Duration("interval", 0, "intervalo entre pasadas (por defecto OVERDUE_SWEEP_INTERVAL_MINUTES)")
	tokenCmd.Flags().String("subject", "dev-admin", "sujeto del token")
	tokenCmd.Flags().Duration("ttl", 8*time.Hour, "vigencia del token")
}

// withMaintenance abre la base con un timeout acotado y ejecuta una pasada.
func withMaintenance(cmd *cobra.Command, fn func(context.Context, *env) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	e, err := loadEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}
