//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for goose

	"github.com/riseup/payments/services/checkout/internal/repository"
	"github.com/riseup/payments/services/checkout/migrations"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("checkout"),
		postgres.WithUsername("checkout_user"),
		postgres.WithPassword("checkout_password"),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, postgresContainer.Terminate(ctx))
	}()

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	// the container reports ready before postgres accepts connections
	var pingErr error
	for i := 0; i < 10; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, pingErr, "Failed to ping database after retries")

	require.NoError(t, migrations.Up(ctx, db), "Failed to run migrations")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)

	t.Run("Create, Confirm, Confirm again", func(t *testing.T) {
		created, err := repo.Create(ctx, repository.NewPayment{
			Amount:            decimal.RequireFromString("50.00"),
			ExternalReference: "gw-1",
			ScannableCode:     "https://qr.example/gw-1",
		})
		require.NoError(t, err)
		require.Equal(t, repository.StatusPending, created.Status)
		require.True(t, decimal.RequireFromString("50").Equal(created.Amount))

		settledAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		confirmed, err := repo.Confirm(ctx, created.ID, settledAt)
		require.NoError(t, err)
		require.Equal(t, repository.StatusConfirmed, confirmed.Status)
		require.NotNil(t, confirmed.SettledAt)
		require.True(t, settledAt.Equal(*confirmed.SettledAt))
		require.Empty(t, confirmed.ScannableCode)

		again, err := repo.Confirm(ctx, created.ID, settledAt.Add(time.Hour))
		require.ErrorIs(t, err, repository.ErrAlreadySettled)
		require.True(t, settledAt.Equal(*again.SettledAt))

		byRef, err := repo.FindByExternalReference(ctx, "gw-1")
		require.NoError(t, err)
		require.Equal(t, created.ID, byRef.ID)
	})

	t.Run("InvalidAmount stores nothing", func(t *testing.T) {
		before, err := repo.Count(ctx)
		require.NoError(t, err)

		_, err = repo.Create(ctx, repository.NewPayment{Amount: decimal.NewFromInt(-5)})
		require.ErrorIs(t, err, repository.ErrInvalidAmount)

		after, err := repo.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, before, after)
	})

	t.Run("DuplicateReference", func(t *testing.T) {
		_, err := repo.Create(ctx, repository.NewPayment{Amount: decimal.NewFromInt(1), ExternalReference: "gw-dup"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, repository.NewPayment{Amount: decimal.NewFromInt(2), ExternalReference: "gw-dup"})
		require.ErrorIs(t, err, repository.ErrDuplicateReference)
	})

	t.Run("Empty references are not unique", func(t *testing.T) {
		_, err := repo.Create(ctx, repository.NewPayment{Amount: decimal.NewFromInt(1)})
		require.NoError(t, err)
		_, err = repo.Create(ctx, repository.NewPayment{Amount: decimal.NewFromInt(1)})
		require.NoError(t, err)

		_, err = repo.FindByExternalReference(ctx, "")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		require.True(t, errors.Is(err, repository.ErrNotFound), "Expected ErrNotFound, got: %v", err)

		_, err = repo.Get(ctx, "7f0c4a52-2d55-4c7b-9a8e-8f9b8f3d1a00")
		require.ErrorIs(t, err, repository.ErrNotFound)

		_, err = repo.Confirm(ctx, "7f0c4a52-2d55-4c7b-9a8e-8f9b8f3d1a00", time.Now())
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Confirm and Cancel race", func(t *testing.T) {
		created, err := repo.Create(ctx, repository.NewPayment{Amount: decimal.NewFromInt(10)})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = repo.Confirm(ctx, created.ID, time.Now())
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = repo.Cancel(ctx, created.ID, time.Now())
		}()
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
				continue
			}
			require.ErrorIs(t, err, repository.ErrAlreadySettled)
		}
		require.Equal(t, 1, winners)
	})
}
