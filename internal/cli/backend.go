package cli

import (
	"context"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/application/editing"
	invoicingapp "github.com/FelixFunesFS/train-catering-creations-sub005/internal/application/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/apiclient"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/config"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/event"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/logger"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/persistence"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/telemetry"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// invoiceAPI is the invoice side of a backend. Both the HTTP client and the
// in-process InvoiceService satisfy it.
type invoiceAPI interface {
	editing.TotalsRecalculator
	editing.NotesWriter
	GetInvoice(ctx context.Context, id uuid.UUID) (*invoicingapp.InvoiceResponse, error)
	RecalculateTotals(ctx context.Context, id uuid.UUID) (*invoicingapp.TotalsResponse, error)
}

// backend is everything a command needs to build editing components
type backend struct {
	store    editing.LineItemStore
	invoices invoiceAPI
	views    *cache.QueryCache
	settler  editing.Settler
	recorder editing.Recorder
	cfg      *config.Config
	logger   *zap.Logger
	closers  []func(context.Context) error
}

// Close releases what the backend opened, last opened first
func (b *backend) Close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			b.logger.Warn("cleanup failed", zap.Error(err))
		}
	}
}

// reconciler builds a TotalsReconciler from the reconcile settings
func (b *backend) reconciler() *editing.TotalsReconciler {
	return editing.NewTotalsReconciler(b.invoices, b.views,
		editing.WithSettler(b.settler),
		editing.WithDelays(b.cfg.Reconcile.BatchDelay, b.cfg.Reconcile.FieldDelay),
		editing.WithInvalidateMilestones(b.cfg.Reconcile.InvalidateMilestones),
		editing.WithReconcilerRecorder(b.recorder),
		editing.WithReconcilerLogger(b.logger),
	)
}

// session loads invoiceID and returns a Session initialized with its items
// and notes
func (b *backend) session(ctx context.Context, invoiceID uuid.UUID, versionCheck bool) (*editing.Session, error) {
	inv, err := b.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	items, err := b.store.Fetch(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	b.views.Set(cache.LineItemsKey(invoiceID), items)

	opts := []editing.SessionOption{editing.WithSessionLogger(b.logger)}
	if versionCheck {
		opts = append(opts, editing.WithVersionCheck())
	}
	s := editing.NewSession(invoiceID, b.store, b.invoices, b.reconciler(), opts...)
	s.SyncFromSource(items, editing.Notes{
		Customer: inv.CustomerNotes,
		Admin:    inv.AdminNotes,
		Version:  inv.Version,
	})
	return s, nil
}

// mutations builds the structural mutation wrapper with its optimistic path
func (b *backend) mutations() *editing.LineItemMutations {
	reconciler := b.reconciler()
	optimistic := editing.NewOptimisticUpdater(b.store, b.views, reconciler, b.logger)
	return editing.NewLineItemMutations(b.store, reconciler, optimistic)
}

func openBackend(ctx context.Context, app *App, cfg *config.Config) (*backend, error) {
	level := "warn"
	if app.Verbose {
		level = "debug"
	}
	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "15:04:05.000",
	})
	if err != nil {
		return nil, err
	}

	b := &backend{
		cfg:     cfg,
		logger:  log,
		settler: editing.DelaySettler{},
		views: cache.NewQueryCache(
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithCleanupInterval(cfg.Cache.CleanupInterval),
			cache.WithLogger(log),
		),
	}
	b.closers = append(b.closers, func(context.Context) error { return logger.Sync(log) })

	providers, err := telemetry.NewProviders(ctx, telemetry.Config{
		ServiceName:       "invoicectl",
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		ExportInterval:    cfg.Telemetry.ExportInterval,
	}, log)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, providers.Shutdown)

	metrics, err := telemetry.NewEditingMetrics(providers.Meter("invoicectl.editing"))
	if err != nil {
		b.Close(ctx)
		return nil, err
	}
	b.recorder = metrics

	if app.Local {
		err = b.openLocal(ctx, cfg)
	} else {
		err = b.openRemote(app.APIURL)
	}
	if err != nil {
		b.Close(ctx)
		return nil, err
	}
	return b, nil
}

func (b *backend) openRemote(apiURL string) error {
	if apiURL == "" {
		return errors.New("no API URL: set --api or CATERING_API_URL")
	}
	if b.cfg.Reconcile.SettleMode == "ack" {
		// Recalculation events are not visible over HTTP
		b.logger.Warn("settle mode ack needs --local; waiting the fixed delay instead")
	}
	client := apiclient.New(apiURL, apiclient.WithLogger(b.logger))
	b.store = client
	b.invoices = client
	return nil
}

func (b *backend) openLocal(ctx context.Context, cfg *config.Config) error {
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithZapLogger(b.logger, logger.MapGormLogLevel(cfg.Log.GormLevel)))
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func(context.Context) error { return db.Close() })
	if db.Driver() == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
	}

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	lineItemRepo := persistence.NewGormLineItemRepository(db.DB)
	invoiceService := invoicingapp.NewInvoiceService(invoiceRepo, lineItemRepo,
		invoicingapp.WithInvoiceLogger(b.logger),
		invoicingapp.WithDefaultTaxRate(decimal.NewFromFloat(cfg.Invoicing.DefaultTaxRate)),
	)
	lineItemService := invoicingapp.NewLineItemService(lineItemRepo, invoiceRepo,
		invoicingapp.WithLineItemLogger(b.logger),
	)

	bus := event.NewInMemoryEventBus(b.logger)
	bus.Subscribe(invoicingapp.NewTotalsTrigger(invoiceService, b.logger))
	bus.Subscribe(invoicingapp.NewViewInvalidationHandler(b.views, b.logger))
	if cfg.Reconcile.SettleMode == "ack" {
		ack := editing.NewAckSettler(b.logger,
			editing.WithAckRetention(max(cfg.Reconcile.BatchDelay, cfg.Reconcile.FieldDelay)))
		bus.Subscribe(ack)
		b.settler = ack
	}
	invoiceService.SetEventPublisher(bus)
	lineItemService.SetEventPublisher(bus)
	if err := bus.Start(ctx); err != nil {
		return err
	}
	b.closers = append(b.closers, bus.Stop)

	b.store = lineItemService
	b.invoices = invoiceService
	return nil
}
