// Package pipeline sequences extraction, reconciliation and load for one
// scope at a time: the daily incremental window, one aging-bucket partition,
// or a full six-partition backfill.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/accounting-data/ar-aging/internal/aging"
	"github.com/accounting-data/ar-aging/internal/interfaces"
	"github.com/accounting-data/ar-aging/internal/models"
	"github.com/accounting-data/ar-aging/internal/models/events"
	"github.com/accounting-data/ar-aging/internal/reconcile"
)

// TopicRunCompleted carries one event per committed run unit.
const TopicRunCompleted = "ar_run_completed"

// RunResult reports one unit of work. Err is nil on success; a failed unit
// names its scope so sibling successes are not masked.
type RunResult struct {
	RunID     string
	Scope     string
	Customers int
	Invoices  int
	Payments  int
	Err       error
}

// Pipeline drives reconciliation units. It owns no connections; the source,
// store and publisher are handles supplied by the caller, which also owns
// their lifecycle.
type Pipeline struct {
	source     interfaces.AccountingSource
	store      interfaces.AgingStore
	publisher  interfaces.EventPublisher // optional
	log        *zap.Logger
	now        func() time.Time
	fetchLimit int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPublisher attaches an event publisher for run-completion events.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithClock overrides the transform reference clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(pl *Pipeline) { pl.now = now }
}

// WithFetchLimit sets the per-request extraction page size.
func WithFetchLimit(limit int) Option {
	return func(pl *Pipeline) { pl.fetchLimit = limit }
}

func New(source interfaces.AccountingSource, store interfaces.AgingStore, log *zap.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pipeline{
		source: source,
		store:  store,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunIncremental processes the daily window: records updated inside
// [windowStart, windowEnd), reconciled without a partition filter and loaded
// into the unscoped staging area.
func (p *Pipeline) RunIncremental(ctx context.Context, windowStart, windowEnd time.Time) RunResult {
	q := interfaces.SourceQuery{
		Limit:       p.fetchLimit,
		UpdatedFrom: &windowStart,
		UpdatedTo:   &windowEnd,
	}
	return p.runUnit(ctx, "daily", "", q)
}

// RunPartition processes one aging-bucket partition. Extraction is scoped by
// the partition's approximate due-date window; the transform applies the
// exact day-range filter on top.
func (p *Pipeline) RunPartition(ctx context.Context, key string) RunResult {
	rng, err := aging.RangeFor(key, p.now())
	if err != nil {
		return RunResult{Scope: "bucket_" + key, Err: err}
	}

	q := interfaces.SourceQuery{
		Limit:       p.fetchLimit,
		DueDateFrom: &rng.DueDateFrom,
		DueDateTo:   &rng.DueDateTo,
	}
	return p.runUnit(ctx, "bucket_"+key, key, q)
}

// RunAllPartitions backfills every aging bucket concurrently. Partitions are
// independent units: each writes its own staging area, and one failing never
// aborts its siblings.
func (p *Pipeline) RunAllPartitions(ctx context.Context) []RunResult {
	results := make([]RunResult, len(aging.Keys))

	var wg sync.WaitGroup
	for i, key := range aging.Keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			results[i] = p.RunPartition(ctx, key)
		}(i, key)
	}
	wg.Wait()

	return results
}

// runUnit is one extraction → transform → load pass. Customers load before
// invoices so the authoritative feed, not referential repair, names as many
// customers as possible; repair then only fills genuinely unknown references.
func (p *Pipeline) runUnit(ctx context.Context, label, partitionKey string, q interfaces.SourceQuery) RunResult {
	res := RunResult{RunID: uuid.NewString(), Scope: label}
	log := p.log.With(zap.String("run_id", res.RunID), zap.String("scope", label))

	fail := func(err error) RunResult {
		res.Err = err
		log.Error("unit failed", zap.Error(err))
		return res
	}

	rawCustomers, err := p.source.GetCustomers(ctx, interfaces.SourceQuery{Limit: q.Limit})
	if err != nil {
		return fail(fmt.Errorf("extract customers: %w", err))
	}
	customers := make([]models.Customer, 0, len(rawCustomers))
	for _, raw := range rawCustomers {
		customers = append(customers, raw.Normalize())
	}
	if err := p.store.UpsertCustomers(ctx, customers); err != nil {
		return fail(fmt.Errorf("load customers: %w", err))
	}
	res.Customers = len(customers)

	invoices, err := p.source.GetInvoices(ctx, q)
	if err != nil {
		return fail(fmt.Errorf("extract invoices: %w", err))
	}
	payments, err := p.source.GetPayments(ctx, q)
	if err != nil {
		return fail(fmt.Errorf("extract payments: %w", err))
	}

	// One reference instant for the whole batch.
	now := p.now()
	var rows []models.InvoiceAging
	if partitionKey == "" {
		rows = reconcile.Reconcile(invoices, payments, now)
	} else {
		rows, err = reconcile.ReconcilePartition(invoices, payments, now, partitionKey)
		if err != nil {
			return fail(fmt.Errorf("reconcile: %w", err))
		}
	}

	if err := p.store.LoadInvoiceBatch(ctx, partitionKey, rows); err != nil {
		return fail(fmt.Errorf("load invoices: %w", err))
	}
	res.Invoices = len(rows)

	paymentRows := reconcile.TransformPayments(payments)
	if err := p.store.LoadPaymentBatch(ctx, partitionKey, paymentRows); err != nil {
		return fail(fmt.Errorf("load payments: %w", err))
	}
	res.Payments = len(paymentRows)

	p.publishCompleted(ctx, log, res)

	log.Info("unit completed",
		zap.Int("customers", res.Customers),
		zap.Int("invoices", res.Invoices),
		zap.Int("payments", res.Payments),
	)
	return res
}

func (p *Pipeline) publishCompleted(ctx context.Context, log *zap.Logger, res RunResult) {
	if p.publisher == nil {
		return
	}
	event := events.RunCompleted{
		RunID:      res.RunID,
		Scope:      res.Scope,
		Customers:  res.Customers,
		Invoices:   res.Invoices,
		Payments:   res.Payments,
		OccurredAt: p.now(),
	}
	// The unit has already committed; a broker hiccup is not a unit failure.
	if err := p.publisher.Publish(ctx, TopicRunCompleted, event); err != nil {
		log.Warn("publish run completed event", zap.Error(err))
	}
}
