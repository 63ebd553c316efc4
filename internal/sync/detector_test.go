package sync

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

func TestClassify_EmptySnapshotMarksAllNew(t *testing.T) {
	t.Parallel()

	orders := []shopify.Order{testOrder(101), testOrder(102), testOrder(104)}

	cls, err := Classify(orders, Snapshot{}, testLogger(t))
	require.NoError(t, err)

	assert.Len(t, cls.New, 3)
	assert.Empty(t, cls.Updated)
	assert.Zero(t, cls.Unchanged)
}

func TestClassify_MatchingFingerprintsAreUnchanged(t *testing.T) {
	t.Parallel()

	order := testOrder(101)

	fp, err := ComputeFingerprints(&order)
	require.NoError(t, err)

	snap := Snapshot{
		order.ID: {
			OrderNumber:       order.OrderNumber,
			HeaderFingerprint: fp.Header,
			LinesFingerprint:  fp.Lines,
		},
	}

	cls, err := Classify([]shopify.Order{order}, snap, testLogger(t))
	require.NoError(t, err)

	assert.Empty(t, cls.New)
	assert.Empty(t, cls.Updated)
	assert.Equal(t, 1, cls.Unchanged)
}

func TestClassify_ChangedFingerprintIsUpdated(t *testing.T) {
	t.Parallel()

	order := testOrder(101)

	fp, err := ComputeFingerprints(&order)
	require.NoError(t, err)

	snap := Snapshot{
		order.ID: {
			OrderNumber:       order.OrderNumber,
			HeaderFingerprint: fp.Header,
			LinesFingerprint:  fp.Lines,
		},
	}

	order.TotalPrice = decimal.NewFromInt(175)

	cls, err := Classify([]shopify.Order{order}, snap, testLogger(t))
	require.NoError(t, err)

	require.Len(t, cls.Updated, 1)
	assert.Empty(t, cls.New)
	assert.Zero(t, cls.Unchanged)

	// The classified entry carries the fresh fingerprints for tracking.
	assert.NotEqual(t, fp.Header, cls.Updated[0].Fingerprints.Header)
	assert.Equal(t, fp.Lines, cls.Updated[0].Fingerprints.Lines)
}

func TestClassify_RedetectionAfterDeliveryIsStable(t *testing.T) {
	t.Parallel()

	orders := []shopify.Order{testOrder(101), testOrder(102)}

	first, err := Classify(orders, Snapshot{}, testLogger(t))
	require.NoError(t, err)
	require.Len(t, first.New, 2)

	// Simulate delivery: snapshot now carries the computed fingerprints.
	snap := Snapshot{}
	for _, c := range first.New {
		snap[c.Order.ID] = SnapshotEntry{
			OrderNumber:       c.Order.OrderNumber,
			HeaderFingerprint: c.Fingerprints.Header,
			LinesFingerprint:  c.Fingerprints.Lines,
		}
	}

	second, err := Classify(orders, snap, testLogger(t))
	require.NoError(t, err)

	assert.Empty(t, second.New)
	assert.Empty(t, second.Updated)
	assert.Equal(t, 2, second.Unchanged)
}

func TestClassification_ChangedOrdersNewBeforeUpdated(t *testing.T) {
	t.Parallel()

	cls := &Classification{
		New:     []Classified{{Order: testOrder(102)}},
		Updated: []Classified{{Order: testOrder(101)}},
	}

	changed := cls.Changed()
	require.Len(t, changed, 2)
	assert.Equal(t, int64(102), changed[0].Order.OrderNumber)
	assert.Equal(t, int64(101), changed[1].Order.OrderNumber)
}
