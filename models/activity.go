// api/models/activity.go
package models

import "time"

// Activity types the feature pipeline cares about. Other values are accepted
// and counted toward total_activities only.
const (
	ActivityView     = "view"
	ActivityClick    = "click"
	ActivityPurchase = "purchase"
)

// ActivityEvent is the row form of a single user activity record, as sent by
// the tracking endpoint and stored in the ClickHouse event log.
type ActivityEvent struct {
	EventID      string    `json:"eventId"`
	UserID       int64     `json:"userId"`
	ActivityType string    `json:"activityType" binding:"required"`
	Timestamp    time.Time `json:"timestamp"`
	ProductID    string    `json:"productId"`
	SessionID    string    `json:"sessionId"`
	IPAddress    string    `json:"ipAddress"`
}

// ActivityBatch is the columnar form consumed by feature engineering: four
// parallel columns of equal length. The batch is read-only input; engineering
// never mutates it.
type ActivityBatch struct {
	UserIDs       []int64  `json:"user_id"`
	ActivityTypes []string `json:"activity_type"`
	Timestamps    []int64  `json:"timestamp"`
	ProductIDs    []string `json:"product_id"`
}

// Len returns the number of records in the batch. Only meaningful after
// Validate has passed.
func (b *ActivityBatch) Len() int {
	return len(b.UserIDs)
}

// Validate checks the batch shape: all four columns present and of equal
// length. It returns a *ShapeError on the first violation found, in column
// order, and nil for a well-formed batch (including the empty batch, which
// is valid and aggregates to an empty result).
func (b *ActivityBatch) Validate() error {
	cols := []struct {
		name    string
		present bool
		length  int
	}{
		{"user_id", b.UserIDs != nil, len(b.UserIDs)},
		{"activity_type", b.ActivityTypes != nil, len(b.ActivityTypes)},
		{"timestamp", b.Timestamps != nil, len(b.Timestamps)},
		{"product_id", b.ProductIDs != nil, len(b.ProductIDs)},
	}

	for _, col := range cols {
		if !col.present {
			return MissingColumn(col.name)
		}
	}

	n := cols[0].length
	for _, col := range cols[1:] {
		if col.length != n {
			return &ShapeError{Reason: "all columns must have the same length"}
		}
	}

	return nil
}

// FeatureRow holds the engineered aggregate features for one user. One row is
// emitted per distinct user id in a batch, sorted ascending by id.
type FeatureRow struct {
	UserID               int64 `json:"user_id"`
	TotalActivities      int64 `json:"total_activities"`
	UniqueProductsViewed int64 `json:"unique_products_viewed"`
	PurchaseCount        int64 `json:"purchase_count"`
}

// FeatureField describes one feature column in a feature view.
type FeatureField struct {
	Name  string `json:"name"`
	Dtype string `json:"dtype"`
}

// FeatureView is the registry metadata describing a set of features keyed by
// a single entity.
type FeatureView struct {
	Name        string         `json:"name"`
	Entity      string         `json:"entity"`
	Features    []FeatureField `json:"features"`
	TTL         time.Duration  `json:"ttl"`
	Description string         `json:"description"`
}

// HasFeature reports whether the view declares a feature with the given name.
func (v *FeatureView) HasFeature(name string) bool {
	for _, f := range v.Features {
		if f.Name == name {
			return true
		}
	}
	return false
}

// UserActivityFeatureView returns the canonical feature view served by this
// API: the three per-user activity aggregates, keyed by user_id, retained for
// one day in the online store.
func UserActivityFeatureView() FeatureView {
	return FeatureView{
		Name:   "user_activity_features",
		Entity: "user_id",
		Features: []FeatureField{
			{Name: "total_activities", Dtype: "int64"},
			{Name: "unique_products_viewed", Dtype: "int64"},
			{Name: "purchase_count", Dtype: "int64"},
		},
		TTL:         24 * time.Hour,
		Description: "User activity aggregated features for ML models",
	}
}

// EntityRef identifies one entity at a reference point in time, for
// point-in-time historical feature retrieval.
type EntityRef struct {
	UserID         int64     `json:"user_id"`
	EventTimestamp time.Time `json:"event_timestamp"`
}

// EntityRow identifies one entity for online feature retrieval.
type EntityRow struct {
	UserID int64 `json:"user_id"`
}

// FeatureValues is one retrieved feature row: the entity key plus the
// requested feature columns. Unrequested features are absent, not zero.
type FeatureValues struct {
	UserID   int64            `json:"user_id"`
	Features map[string]int64 `json:"features"`
}
