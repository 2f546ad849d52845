package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accounting-data/ar-aging/internal/interfaces"
	"github.com/accounting-data/ar-aging/internal/models"
	"github.com/accounting-data/ar-aging/internal/models/events"
	"github.com/accounting-data/ar-aging/internal/storage/memory"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

// fakeSource serves fixed record sets; the due-date window is deliberately
// ignored so the exact transform filter is the only thing scoping partitions.
type fakeSource struct {
	customers []models.CustomerRaw
	invoices  []models.InvoiceRaw
	payments  []models.PaymentRaw

	customersErr error
	invoicesErr  error
}

func (f *fakeSource) GetCustomers(ctx context.Context, q interfaces.SourceQuery) ([]models.CustomerRaw, error) {
	return f.customers, f.customersErr
}

func (f *fakeSource) GetInvoices(ctx context.Context, q interfaces.SourceQuery) ([]models.InvoiceRaw, error) {
	return f.invoices, f.invoicesErr
}

func (f *fakeSource) GetPayments(ctx context.Context, q interfaces.SourceQuery) ([]models.PaymentRaw, error) {
	return f.payments, nil
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (c *capturePublisher) Publish(ctx context.Context, topic string, event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.events = append(c.events, event)
	return nil
}

// failingStore wraps the memory store, failing invoice loads for one scope.
type failingStore struct {
	*memory.Store
	failScope string
}

func (f *failingStore) LoadInvoiceBatch(ctx context.Context, scope string, rows []models.InvoiceAging) error {
	if scope == f.failScope {
		return errors.New("connection lost mid-transaction")
	}
	return f.Store.LoadInvoiceBatch(ctx, scope, rows)
}

func fixtureInvoices() []models.InvoiceRaw {
	days := []int{0, 15, 45, 75, 105, 150}
	out := make([]models.InvoiceRaw, 0, len(days))
	for i, d := range days {
		due := testNow.AddDate(0, 0, -d).Format(time.RFC3339)
		out = append(out, models.InvoiceRaw{
			ID:          fmt.Sprintf("I%d", i),
			ContactID:   strPtr(fmt.Sprintf("C%d", i)),
			TotalAmount: decimal.NewFromInt(100),
			DueAt:       &due,
		})
	}
	return out
}

func TestRunIncremental(t *testing.T) {
	store := memory.NewStore()
	source := &fakeSource{
		customers: []models.CustomerRaw{{ID: "C0", Name: "Acme Co"}},
		invoices:  fixtureInvoices(),
		payments: []models.PaymentRaw{
			{ID: "P1", InvoiceID: "I1", ContactID: strPtr("C1"), TotalAmount: decimal.NewFromInt(30)},
		},
	}
	pub := &capturePublisher{}

	p := New(source, store, nil,
		WithClock(func() time.Time { return testNow }),
		WithPublisher(pub),
	)

	res := p.RunIncremental(context.Background(), testNow.Add(-24*time.Hour), testNow)
	require.NoError(t, res.Err)
	assert.Equal(t, "daily", res.Scope)
	assert.Equal(t, 1, res.Customers)
	assert.Equal(t, 6, res.Invoices)
	assert.Equal(t, 1, res.Payments)

	invoices := store.Invoices()
	require.Len(t, invoices, 6)
	paid := invoices["I1"]
	assert.True(t, paid.TotalPaid.Equal(decimal.NewFromInt(30)))
	assert.True(t, paid.BalanceAmount.Equal(decimal.NewFromInt(70)))

	// C0 came from the feed, the rest from referential repair.
	customers := store.Customers()
	assert.Equal(t, "Acme Co", customers["C0"].Name)
	assert.Equal(t, models.UnknownCustomerName, customers["C3"].Name)

	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicRunCompleted, pub.topics[0])
	event := pub.events[0].(events.RunCompleted)
	assert.Equal(t, "daily", event.Scope)
	assert.Equal(t, 6, event.Invoices)
}

func TestRunPartitionExactness(t *testing.T) {
	source := &fakeSource{invoices: fixtureInvoices()}

	wantDays := map[string]int{"0": 0, "1": 15, "2": 45, "3": 75, "4": 105, "5": 150}
	for key, days := range wantDays {
		store := memory.NewStore()
		p := New(source, store, nil, WithClock(func() time.Time { return testNow }))

		res := p.RunPartition(context.Background(), key)
		require.NoError(t, res.Err, "partition %s", key)
		assert.Equal(t, "bucket_"+key, res.Scope)
		assert.Equal(t, 1, res.Invoices, "partition %s", key)

		invoices := store.Invoices()
		require.Len(t, invoices, 1, "partition %s", key)
		for _, inv := range invoices {
			assert.Equal(t, days, inv.DaysOverdue, "partition %s", key)
		}
	}
}

func TestRunPartitionUnknownKey(t *testing.T) {
	p := New(&fakeSource{}, memory.NewStore(), nil)
	res := p.RunPartition(context.Background(), "9")
	assert.Error(t, res.Err)
}

func TestRunAllPartitionsUnionIsDisjointAndComplete(t *testing.T) {
	source := &fakeSource{invoices: fixtureInvoices()}
	store := memory.NewStore()
	p := New(source, store, nil, WithClock(func() time.Time { return testNow }))

	results := p.RunAllPartitions(context.Background())
	require.Len(t, results, 6)

	total := 0
	for _, res := range results {
		require.NoError(t, res.Err, "scope %s", res.Scope)
		assert.Equal(t, 1, res.Invoices, "scope %s", res.Scope)
		total += res.Invoices
	}
	// Union across partitions equals the unfiltered batch, one row each.
	assert.Equal(t, 6, total)
	assert.Len(t, store.Invoices(), 6)
}

func TestRunAllPartitionsSiblingIsolation(t *testing.T) {
	source := &fakeSource{invoices: fixtureInvoices()}
	store := &failingStore{Store: memory.NewStore(), failScope: "3"}
	p := New(source, store, nil, WithClock(func() time.Time { return testNow }))

	results := p.RunAllPartitions(context.Background())
	require.Len(t, results, 6)

	failures := 0
	for _, res := range results {
		if res.Err != nil {
			failures++
			assert.Equal(t, "bucket_3", res.Scope)
		}
	}
	assert.Equal(t, 1, failures)
	// Five partitions still landed one row each.
	assert.Len(t, store.Invoices(), 5)
}

func TestRunUnitEmptySourceIsSuccessfulNoOp(t *testing.T) {
	store := memory.NewStore()
	p := New(&fakeSource{}, store, nil, WithClock(func() time.Time { return testNow }))

	res := p.RunIncremental(context.Background(), testNow.Add(-24*time.Hour), testNow)
	require.NoError(t, res.Err)
	assert.Zero(t, res.Invoices)
	assert.Empty(t, store.Invoices())
}

func TestRunUnitSurfacesExtractionErrors(t *testing.T) {
	p := New(&fakeSource{invoicesErr: errors.New("gateway timeout")}, memory.NewStore(), nil)
	res := p.RunIncremental(context.Background(), testNow.Add(-24*time.Hour), testNow)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "extract invoices")
}
