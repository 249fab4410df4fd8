// api/features/engineering.go
package features

import (
	"fmt"
	"sort"

	"featuremart/api/models"
)

// Names of the engineered features, as they appear in the feature view, in
// retrieval requests, and as FeatureRow JSON keys.
const (
	TotalActivities      = "total_activities"
	UniqueProductsViewed = "unique_products_viewed"
	PurchaseCount        = "purchase_count"
)

// AllFeatures lists every feature this package can engineer.
func AllFeatures() []string {
	return []string{TotalActivities, UniqueProductsViewed, PurchaseCount}
}

// SelectsAll reports whether the named set covers every engineered feature.
// A partial selection leaves the remaining aggregates at zero in the rows,
// so the stores treat it differently from a full run.
func SelectsAll(names []string) bool {
	selected := make(map[string]bool, len(names))
	for _, n := range names {
		selected[n] = true
	}
	for _, n := range AllFeatures() {
		if !selected[n] {
			return false
		}
	}
	return true
}

type config struct {
	features map[string]bool
}

// Option configures an Engineer call.
type Option func(*config)

// WithFeatures restricts engineering to the named features. Unselected
// features are left at zero in the output rows. Unknown names are an error
// at Engineer time. The default is all three features.
func WithFeatures(names ...string) Option {
	return func(c *config) {
		c.features = make(map[string]bool, len(names))
		for _, n := range names {
			c.features[n] = true
		}
	}
}

// Engineer computes per-user aggregate features from a columnar activity
// batch:
//
//   - total_activities: number of records per user, regardless of type
//   - unique_products_viewed: distinct product ids among that user's 'view'
//     records
//   - purchase_count: number of that user's 'purchase' records
//
// It returns exactly one FeatureRow per distinct user id in the batch, sorted
// ascending by id, with zero for any aggregate the user has no qualifying
// records for. The batch is validated first; a malformed batch returns a
// *models.ShapeError and no rows. The input is never mutated and repeated
// calls on the same batch yield identical output.
func Engineer(batch *models.ActivityBatch, opts ...Option) ([]models.FeatureRow, error) {
	if batch == nil {
		return nil, models.MissingColumn("user_id")
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	cfg := config{features: map[string]bool{
		TotalActivities:      true,
		UniqueProductsViewed: true,
		PurchaseCount:        true,
	}}
	for _, opt := range opts {
		opt(&cfg)
	}
	for name := range cfg.features {
		if name != TotalActivities && name != UniqueProductsViewed && name != PurchaseCount {
			return nil, fmt.Errorf("unknown feature: %s", name)
		}
	}

	// The three aggregates are computed independently; selecting a subset
	// must not change the values of the rest.
	var totals, uniques, purchases map[int64]int64
	if cfg.features[TotalActivities] {
		totals = totalActivities(batch)
	}
	if cfg.features[UniqueProductsViewed] {
		uniques = uniqueProductsViewed(batch)
	}
	if cfg.features[PurchaseCount] {
		purchases = purchaseCount(batch)
	}

	rows := make([]models.FeatureRow, 0, len(batch.UserIDs))
	for _, id := range distinctUserIDs(batch) {
		rows = append(rows, models.FeatureRow{
			UserID:               id,
			TotalActivities:      totals[id],
			UniqueProductsViewed: uniques[id],
			PurchaseCount:        purchases[id],
		})
	}

	return rows, nil
}

// totalActivities counts every record per user, whatever its activity type.
func totalActivities(batch *models.ActivityBatch) map[int64]int64 {
	counts := make(map[int64]int64)
	for _, id := range batch.UserIDs {
		counts[id]++
	}
	return counts
}

// uniqueProductsViewed counts distinct product ids among each user's 'view'
// records. A product id carried by a non-view record does not count.
func uniqueProductsViewed(batch *models.ActivityBatch) map[int64]int64 {
	seen := make(map[int64]map[string]bool)
	for i, id := range batch.UserIDs {
		if batch.ActivityTypes[i] != models.ActivityView {
			continue
		}
		if seen[id] == nil {
			seen[id] = make(map[string]bool)
		}
		seen[id][batch.ProductIDs[i]] = true
	}

	counts := make(map[int64]int64, len(seen))
	for id, products := range seen {
		counts[id] = int64(len(products))
	}
	return counts
}

// purchaseCount counts each user's 'purchase' records.
func purchaseCount(batch *models.ActivityBatch) map[int64]int64 {
	counts := make(map[int64]int64)
	for i, id := range batch.UserIDs {
		if batch.ActivityTypes[i] == models.ActivityPurchase {
			counts[id]++
		}
	}
	return counts
}

// distinctUserIDs returns the set of user ids in the batch, ascending. This
// is the universe of output rows: a user appearing only in records that no
// aggregate qualifies still gets a row.
func distinctUserIDs(batch *models.ActivityBatch) []int64 {
	set := make(map[int64]bool)
	for _, id := range batch.UserIDs {
		set[id] = true
	}

	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ConformsToView checks that every feature column this package produces is
// declared by the given feature view, so materialized rows match the
// registered schema.
func ConformsToView(view *models.FeatureView) error {
	for _, name := range AllFeatures() {
		if !view.HasFeature(name) {
			return fmt.Errorf("feature view '%s' does not declare feature '%s'", view.Name, name)
		}
	}
	return nil
}

// RowValue extracts a single named feature from a row, used by the stores
// when filling a requested feature set. The second return is false for a
// name this package does not produce.
func RowValue(row models.FeatureRow, feature string) (int64, bool) {
	switch feature {
	case TotalActivities:
		return row.TotalActivities, true
	case UniqueProductsViewed:
		return row.UniqueProductsViewed, true
	case PurchaseCount:
		return row.PurchaseCount, true
	default:
		return 0, false
	}
}
