//go:build integration

package persistence

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/config"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/migration"
	"github.com/FelixFunesFS/train-catering-creations-sub005/migrations"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormlogger "gorm.io/gorm/logger"
)

const (
	pgImage    = "postgres:16-alpine"
	pgDatabase = "catering_test"
	pgUser     = "postgres"
	pgPassword = "catering"
)

// newPostgresDatabase starts a throwaway Postgres container, applies the
// embedded migrations and returns a Database connected to it.
func newPostgresDatabase(t *testing.T) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, pgImage,
		tcpostgres.WithDatabase(pgDatabase),
		tcpostgres.WithUsername(pgUser),
		tcpostgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Driver:          "postgres",
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		DBName:          pgDatabase,
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
	}
	runEmbeddedMigrations(t, cfg.DSN())

	db, err := NewDatabase(cfg, WithZapLogger(zaptest.NewLogger(t), gormlogger.Warn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// runEmbeddedMigrations applies the schema on its own connection; the
// migrator closes the connection it was given.
func runEmbeddedMigrations(t *testing.T, dsn string) {
	t.Helper()
	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	m, err := migration.NewEmbedded(sqlDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	// Down and up again proves the down files undo their up files
	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	require.NoError(t, m.Up())
}

func TestPostgres_InvoiceRepository(t *testing.T) {
	db := newPostgresDatabase(t)
	ctx := context.Background()
	invoices := NewGormInvoiceRepository(db.DB)
	items := NewGormLineItemRepository(db.DB)

	inv := newStoredInvoice(t, invoices, "INV-7001", "Lakeside Reunion")

	t.Run("save and find with milestones", func(t *testing.T) {
		found, err := invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lakeside Reunion", found.CustomerName)
		assert.Equal(t, 1, found.Version)
		require.Len(t, found.Milestones, 2)
	})

	t.Run("notes write guarded by version", func(t *testing.T) {
		previous := inv.Version
		require.NoError(t, inv.UpdateNotes("Gluten free rolls", "Deposit received", nil))
		require.NoError(t, invoices.SaveNotes(ctx, inv, previous))

		stale := *inv
		stale.Version = previous
		require.NoError(t, stale.UpdateNotes("overwrite", "", nil))
		assert.ErrorIs(t, invoices.SaveNotes(ctx, &stale, previous), shared.ErrConcurrencyConflict)

		ghost := *inv
		ghost.ID = uuid.New()
		assert.ErrorIs(t, invoices.SaveNotes(ctx, &ghost, ghost.Version), shared.ErrNotFound)

		found, err := invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "Gluten free rolls", found.CustomerNotes)
		assert.Equal(t, "Deposit received", found.AdminNotes)
		assert.Equal(t, previous+1, found.Version)
	})

	t.Run("concurrent notes writes from one version", func(t *testing.T) {
		current, err := invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		previous := current.Version

		const writers = 4
		errs := make([]error, writers)
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				copyInv := *current
				if err := copyInv.UpdateNotes("writer", "", nil); err != nil {
					errs[i] = err
					return
				}
				errs[i] = invoices.SaveNotes(ctx, &copyInv, previous)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		}
		assert.Equal(t, 1, succeeded)

		found, err := invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, previous+1, found.Version)
	})

	t.Run("totals from persisted items", func(t *testing.T) {
		require.NoError(t, items.CreateBatch(ctx, []invoicing.LineItem{
			newLineItem(t, inv.ID, "Smoked Brisket", 3, 500, 0),
			newLineItem(t, inv.ID, "Peach Cobbler", 2, 1250, 1),
		}))
		persisted, err := items.FindByInvoice(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, persisted, 2)

		current, err := invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		versionBefore := current.Version
		require.True(t, current.RecalculateTotals(persisted))
		require.NoError(t, invoices.SaveTotals(ctx, current))

		found, err := invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4000), found.SubtotalCents)
		assert.Equal(t, int64(320), found.TaxCents)
		assert.Equal(t, int64(4320), found.TotalCents)
		assert.Equal(t, versionBefore, found.Version)
		assert.NotNil(t, found.RecalculatedAt)
		require.Len(t, found.Milestones, 2)
		assert.Equal(t, int64(4320), found.Milestones[0].AmountCents+found.Milestones[1].AmountCents)

		ghost := *current
		ghost.ID = uuid.New()
		assert.ErrorIs(t, invoices.SaveTotals(ctx, &ghost), shared.ErrNotFound)
	})
}

func TestPostgres_LineItemRepository(t *testing.T) {
	db := newPostgresDatabase(t)
	ctx := context.Background()
	invoices := NewGormInvoiceRepository(db.DB)
	items := NewGormLineItemRepository(db.DB)
	inv := newStoredInvoice(t, invoices, "INV-7002", "Maple Street Picnic")

	require.NoError(t, items.CreateBatch(ctx, []invoicing.LineItem{
		newLineItem(t, inv.ID, "Sweet Tea", 40, 150, 0),
		newLineItem(t, inv.ID, "Cornbread", 40, 75, 1),
	}))

	replacement := []invoicing.LineItem{newLineItem(t, inv.ID, "Lemonade", 30, 200, 0)}
	require.NoError(t, items.ReplaceForInvoice(ctx, inv.ID, replacement))

	got, err := items.FindByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Lemonade", got[0].Title)
	assert.Equal(t, int64(6000), got[0].TotalPriceCents)

	t.Run("schema rejects negative quantities", func(t *testing.T) {
		bad := newLineItem(t, inv.ID, "Broken", 1, 100, 2)
		bad.Quantity = -1
		assert.Error(t, items.CreateBatch(ctx, []invoicing.LineItem{bad}))
	})

	t.Run("line items follow their invoice", func(t *testing.T) {
		orphan := newLineItem(t, uuid.New(), "Orphan", 1, 100, 0)
		assert.Error(t, items.CreateBatch(ctx, []invoicing.LineItem{orphan}))
	})
}
