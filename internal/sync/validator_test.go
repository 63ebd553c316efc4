package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

func TestValidateBatch_DetectsGaps(t *testing.T) {
	t.Parallel()

	orders := []shopify.Order{
		testOrder(1), testOrder(2), testOrder(4), testOrder(5), testOrder(7),
	}

	report := ValidateBatch(orders, testLogger(t))

	assert.Equal(t, int64(1), report.Min)
	assert.Equal(t, int64(7), report.Max)
	assert.Equal(t, []int64{3, 6}, report.Missing)
	assert.Empty(t, report.Duplicates)
	assert.False(t, report.Clean())
}

func TestValidateBatch_DetectsDuplicates(t *testing.T) {
	t.Parallel()

	orders := []shopify.Order{testOrder(10), testOrder(11), testOrder(11), testOrder(12)}

	report := ValidateBatch(orders, testLogger(t))

	assert.Equal(t, []int64{11}, report.Duplicates)
	assert.Empty(t, report.Missing)
}

func TestValidateBatch_ContiguousBatchIsClean(t *testing.T) {
	t.Parallel()

	orders := []shopify.Order{testOrder(5), testOrder(6), testOrder(7)}

	report := ValidateBatch(orders, testLogger(t))

	assert.True(t, report.Clean())
	assert.Equal(t, int64(5), report.Min)
	assert.Equal(t, int64(7), report.Max)
}

func TestValidateBatch_EmptyBatch(t *testing.T) {
	t.Parallel()

	report := ValidateBatch(nil, testLogger(t))

	assert.True(t, report.Clean())
	assert.Zero(t, report.Min)
	assert.Zero(t, report.Max)
}

func TestValidateBatch_SingleOrder(t *testing.T) {
	t.Parallel()

	report := ValidateBatch([]shopify.Order{testOrder(42)}, testLogger(t))

	assert.True(t, report.Clean())
	assert.Equal(t, int64(42), report.Min)
	assert.Equal(t, int64(42), report.Max)
}
