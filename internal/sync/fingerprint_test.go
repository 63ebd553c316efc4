package sync

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFingerprints_Deterministic(t *testing.T) {
	t.Parallel()

	order := testOrder(101)

	fp1, err := ComputeFingerprints(&order)
	require.NoError(t, err)

	fp2, err := ComputeFingerprints(&order)
	require.NoError(t, err)

	assert.Equal(t, fp1.Header, fp2.Header)
	assert.Equal(t, fp1.Lines, fp2.Lines)
	assert.NotEmpty(t, fp1.Header)
	assert.NotEmpty(t, fp1.Lines)
	assert.NotEqual(t, fp1.Header, fp1.Lines)
}

func TestComputeFingerprints_HeaderChangeOnlyMovesHeader(t *testing.T) {
	t.Parallel()

	order := testOrder(101)

	before, err := ComputeFingerprints(&order)
	require.NoError(t, err)

	order.TotalPrice = decimal.NewFromInt(250)

	after, err := ComputeFingerprints(&order)
	require.NoError(t, err)

	assert.NotEqual(t, before.Header, after.Header)
	assert.Equal(t, before.Lines, after.Lines)
}

func TestComputeFingerprints_LineChangeOnlyMovesLines(t *testing.T) {
	t.Parallel()

	order := testOrder(101)

	before, err := ComputeFingerprints(&order)
	require.NoError(t, err)

	order.LineItems[0].Quantity = 3

	after, err := ComputeFingerprints(&order)
	require.NoError(t, err)

	assert.Equal(t, before.Header, after.Header)
	assert.NotEqual(t, before.Lines, after.Lines)
}

func TestComputeFingerprints_IgnoresNonProjectedFields(t *testing.T) {
	t.Parallel()

	order := testOrder(101)

	before, err := ComputeFingerprints(&order)
	require.NoError(t, err)

	// Tags and note attributes feed the transform, not the fingerprint.
	order.Tags = "Pickup Order"

	after, err := ComputeFingerprints(&order)
	require.NoError(t, err)

	assert.Equal(t, before.Header, after.Header)
	assert.Equal(t, before.Lines, after.Lines)
}

func TestComputeFingerprints_EquivalentDecimalsMatch(t *testing.T) {
	t.Parallel()

	a := testOrder(101)
	a.TotalPrice = decimal.RequireFromString("100")

	b := testOrder(101)
	b.TotalPrice = decimal.RequireFromString("100.00")

	fpA, err := ComputeFingerprints(&a)
	require.NoError(t, err)

	fpB, err := ComputeFingerprints(&b)
	require.NoError(t, err)

	assert.Equal(t, fpA.Header, fpB.Header)
}
