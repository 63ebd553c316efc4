package sync

import (
	"log/slog"
	"sort"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

// BatchReport is the completeness validator's advisory output for one
// fetched batch: the observed ordinal range, ordinals missing from the
// contiguous range, and ordinals that appear more than once.
type BatchReport struct {
	Min        int64
	Max        int64
	Missing    []int64
	Duplicates []int64
}

// Clean reports whether the batch had neither gaps nor duplicates.
func (r *BatchReport) Clean() bool {
	return len(r.Missing) == 0 && len(r.Duplicates) == 0
}

// ValidateBatch checks a fetched batch for ordinal gaps and duplicates.
// Advisory only: a legitimately incomplete page (pagination cutoff) must
// not stall delivery of the orders that are present. The reconciler
// recomputes gaps against the store's full historical range, which is
// authoritative; this per-batch check is a fast early warning.
func ValidateBatch(orders []shopify.Order, logger *slog.Logger) *BatchReport {
	if len(orders) == 0 {
		return &BatchReport{}
	}

	seen := make(map[int64]int, len(orders))
	for i := range orders {
		seen[orders[i].OrderNumber]++
	}

	report := &BatchReport{Min: orders[0].OrderNumber, Max: orders[0].OrderNumber}

	for n, count := range seen {
		if n < report.Min {
			report.Min = n
		}

		if n > report.Max {
			report.Max = n
		}

		if count > 1 {
			report.Duplicates = append(report.Duplicates, n)
		}
	}

	report.Missing = missingInRange(seen, report.Min, report.Max)
	sortOrdinals(report.Duplicates)

	if len(report.Missing) > 0 {
		logger.Warn("batch has missing order numbers",
			slog.Int64("min", report.Min),
			slog.Int64("max", report.Max),
			slog.Any("missing", report.Missing),
		)
	}

	if len(report.Duplicates) > 0 {
		logger.Warn("batch has duplicate order numbers",
			slog.Any("duplicates", report.Duplicates),
		)
	}

	return report
}

// missingInRange returns the sorted ordinals in [min, max] absent from
// the present set.
func missingInRange(present map[int64]int, minOrd, maxOrd int64) []int64 {
	var missing []int64

	for n := minOrd; n <= maxOrd; n++ {
		if _, ok := present[n]; !ok {
			missing = append(missing, n)
		}
	}

	return missing
}

func sortOrdinals(s []int64) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}
