package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

func newTestEngine(t *testing.T, store *Store, source OrderSource, dest *fakeDestination) *Engine {
	t.Helper()

	coordinator := newTestCoordinator(t, store, source)
	deliverer := NewDeliverer(dest, store, testRegions, t.TempDir(), testLogger(t))
	reconciler := NewReconciler(store, source, deliverer, testLogger(t))

	return NewEngine(EngineConfig{
		Store:          store,
		Coordinator:    coordinator,
		Deliverer:      deliverer,
		Reconciler:     reconciler,
		Destination:    dest,
		Regions:        testRegions,
		MinRunInterval: 5 * time.Minute,
		Logger:         testLogger(t),
	})
}

func TestEngine_CommitHealsMissingOrdinal(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	// The listing drops 103 (paging cutoff); the point fetch still has it.
	missing := testOrder(103)
	source := &fakeSource{
		pages: []*shopify.Page{
			{Orders: []shopify.Order{testOrder(101), testOrder(102), testOrder(104)}},
		},
		byNumber: map[int64]*shopify.Order{103: &missing},
	}
	dest := newFakeDestination()

	engine := newTestEngine(t, store, source, dest)

	report, err := engine.Run(ctx, ModeCommit, false)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 3, report.New)
	assert.Equal(t, 3, report.Delivered)
	assert.Equal(t, []int64{103}, report.Missing)

	require.NotNil(t, report.Reconcile)
	assert.Equal(t, []int64{103}, report.Reconcile.Gaps)
	assert.Equal(t, 1, report.Reconcile.Healed)

	ordinals, err := store.DeliveredOrdinals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102, 103, 104}, ordinals)

	// Exactly one attempt row for the whole run, including reconciliation.
	attempts, err := store.AttemptsSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, StatusRunSuccess, attempts[0].Status)
	assert.Equal(t, report.RunID, attempts[0].ID)
}

func TestEngine_SecondRunSkipsUnchanged(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	orders := []shopify.Order{testOrder(101), testOrder(102)}
	source := &fakeSource{pages: []*shopify.Page{{Orders: orders}}}
	dest := newFakeDestination()

	engine := newTestEngine(t, store, source, dest)

	_, err := engine.Run(ctx, ModeCommit, false)
	require.NoError(t, err)

	// Same upstream state on the next run.
	source.pages = []*shopify.Page{{Orders: orders}}
	source.listCalls = 0
	source.listErrs = nil

	report, err := engine.Run(ctx, ModeCommit, true)
	require.NoError(t, err)

	assert.Zero(t, report.New)
	assert.Zero(t, report.Updated)
	assert.Equal(t, 2, report.Unchanged)
	assert.Zero(t, report.Delivered)

	// No duplicate appends.
	assert.Len(t, dest.appended[testRegions.Orders], 2)
}

func TestEngine_RunSpacingEnforced(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	source := &fakeSource{pages: []*shopify.Page{{Orders: []shopify.Order{testOrder(101)}}}}
	dest := newFakeDestination()

	engine := newTestEngine(t, store, source, dest)

	_, err := engine.Run(ctx, ModeCommit, false)
	require.NoError(t, err)

	source.pages = []*shopify.Page{{}}
	source.listCalls = 0

	_, err = engine.Run(ctx, ModeCommit, false)

	var tooSoon *TooSoonError
	require.ErrorAs(t, err, &tooSoon)
	assert.Positive(t, tooSoon.Wait)

	// --force bypasses the spacing check.
	_, err = engine.Run(ctx, ModeCommit, true)
	assert.NoError(t, err)
}

func TestEngine_SimulateLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	source := &fakeSource{}
	dest := newFakeDestination()

	engine := newTestEngine(t, store, source, dest)

	for range 3 {
		source.pages = []*shopify.Page{{Orders: []shopify.Order{testOrder(101)}}}
		source.listCalls = 0

		report, err := engine.Run(ctx, ModeSimulate, false)
		require.NoError(t, err)
		require.NotNil(t, report.Artifacts)
		assert.Equal(t, 1, report.New)
	}

	count, err := store.CountDelivered(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	attempts, err := store.AttemptsSince(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, attempts)

	assert.Empty(t, dest.appended[testRegions.Orders])
	assert.Empty(t, dest.appended[testRegions.Lines])
}

func TestEngine_FetchFailureRecordsFailedAttempt(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("unauthorized")
	source := &fakeSource{listErrs: []error{boom}}
	dest := newFakeDestination()

	engine := newTestEngine(t, store, source, dest)

	_, err := engine.Run(ctx, ModeCommit, false)
	require.ErrorIs(t, err, boom)

	attempts, err := store.AttemptsSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, StatusRunFailed, attempts[0].Status)

	pending, err := store.PendingErrorCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestEngine_CrossCheckWarningDoesNotBlock(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	source := &fakeSource{pages: []*shopify.Page{{Orders: []shopify.Order{testOrder(101)}}}}
	dest := newFakeDestination()
	// Destination claims a higher ordinal than the store knows about.
	dest.readRows[testRegions.Orders] = [][]string{
		{"New", "08-01-2026", "WEB205", "205"},
	}

	engine := newTestEngine(t, store, source, dest)

	report, err := engine.Run(ctx, ModeCommit, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
}
