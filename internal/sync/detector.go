package sync

import (
	"fmt"
	"log/slog"

	"github.com/rdawsonsdp/bsbshopify/internal/shopify"
)

// SnapshotEntry is the tracking store's view of one delivered order, as
// consumed by the change detector.
type SnapshotEntry struct {
	OrderNumber       int64
	HeaderFingerprint string
	LinesFingerprint  string
}

// Snapshot maps remote identifier -> delivered state. Read once per run;
// the detector never writes to it.
type Snapshot map[string]SnapshotEntry

// Classified is one order with its computed fingerprints, ready for
// delivery and tracking.
type Classified struct {
	Order        shopify.Order
	Fingerprints Fingerprints
}

// Classification partitions a fetched batch into new, updated, and
// unchanged orders. Unchanged orders carry no fingerprints; they are
// dropped from further processing.
type Classification struct {
	New       []Classified
	Updated   []Classified
	Unchanged int
}

// Changed returns all orders that need delivery, new before updated.
func (c *Classification) Changed() []Classified {
	out := make([]Classified, 0, len(c.New)+len(c.Updated))
	out = append(out, c.New...)
	out = append(out, c.Updated...)

	return out
}

// Classify compares each fetched order against the snapshot. Absent from
// the snapshot -> new; present with either fingerprint differing ->
// updated; otherwise unchanged. Pure: given the same snapshot and
// orders, it always reproduces the same classification, and it never
// mutates the snapshot.
func Classify(orders []shopify.Order, snap Snapshot, logger *slog.Logger) (*Classification, error) {
	result := &Classification{}

	for i := range orders {
		o := &orders[i]

		fp, err := ComputeFingerprints(o)
		if err != nil {
			return nil, fmt.Errorf("classify order %s: %w", o.ID, err)
		}

		entry, tracked := snap[o.ID]
		switch {
		case !tracked:
			result.New = append(result.New, Classified{Order: *o, Fingerprints: fp})
		case entry.HeaderFingerprint != fp.Header || entry.LinesFingerprint != fp.Lines:
			result.Updated = append(result.Updated, Classified{Order: *o, Fingerprints: fp})
		default:
			result.Unchanged++
		}
	}

	logger.Info("classified fetched orders",
		slog.Int("new", len(result.New)),
		slog.Int("updated", len(result.Updated)),
		slog.Int("unchanged", result.Unchanged),
	)

	return result, nil
}
