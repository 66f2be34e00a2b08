package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/memory"
)

func seedInvoice(t *testing.T, repo *memory.InvoiceRepository, status string, due time.Time) *entity.Invoice {
	t.Helper()
	inv := &entity.Invoice{
		ProjectID:   testProjectID,
		Amount:      decimal.NewFromInt(1),
		TotalAmount: decimal.NewFromInt(7300),
		Status:      status,
		DueDate:     due,
	}
	require.NoError(t, repo.Create(context.Background(), inv))
	return inv
}

func newMaintenance(repo *memory.InvoiceRepository, now time.Time) *billing.MaintenanceUseCase {
	return billing.NewMaintenanceUseCase(repo, billing.MaintenanceConfig{
		Location:   time.UTC,
		StaleAfter: 5 * time.Minute,
		Now:        func() time.Time { return now },
	}, zerolog.Nop())
}

func TestMaintenance_SweepOverdueSoloPendientesVencidas(t *testing.T) {
	repo := memory.NewInvoiceRepository(nil)
	today := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	late := seedInvoice(t, repo, entity.InvoiceStatusPending, today.AddDate(0, 0, -1))
	dueToday := seedInvoice(t, repo, entity.InvoiceStatusPending, today)
	paid := seedInvoice(t, repo, entity.InvoiceStatusPaid, today.AddDate(0, 0, -3))

	n, err := newMaintenance(repo, fixedNow).SweepOverdue(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, n)
	for id, want := range map[string]string{
		late.ID:     entity.InvoiceStatusOverdue,
		dueToday.ID: entity.InvoiceStatusPending,
		paid.ID:     entity.InvoiceStatusPaid,
	} {
		got, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
}

func TestMaintenance_ReleaseStaleApprovalsRespetaElUmbral(t *testing.T) {
	repo := memory.NewInvoiceRepository(nil)
	ctx := context.Background()
	old := seedInvoice(t, repo, entity.InvoiceStatusOverdue, fixedNow)
	recent := seedInvoice(t, repo, entity.InvoiceStatusPending, fixedNow)

	_, ok, err := repo.BeginApproval(ctx, old.ID, fixedNow.Add(-10*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = repo.BeginApproval(ctx, recent.ID, fixedNow.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	n, err := newMaintenance(repo, fixedNow).ReleaseStaleApprovals(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, _ := repo.GetByID(ctx, old.ID)
	assert.Equal(t, entity.InvoiceStatusOverdue, got.Status, "vuelve al estado previo")
	assert.Nil(t, got.ApprovalStartedAt)
	got, _ = repo.GetByID(ctx, recent.ID)
	assert.Equal(t, entity.InvoiceStatusApproving, got.Status)
}

func TestMaintenance_RunTerminaAlCancelarElContexto(t *testing.T) {
	repo := memory.NewInvoiceRepository(nil)
	inv := seedInvoice(t, repo, entity.InvoiceStatusPending, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		newMaintenance(repo, fixedNow).Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, _ := repo.GetByID(context.Background(), inv.ID)
		return got.Status == entity.InvoiceStatusOverdue
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run no terminó tras cancelar el contexto")
	}
}
