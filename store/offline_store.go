// api/store/offline_store.go
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"featuremart/api/database"
	"featuremart/api/features"
	"featuremart/api/models"
)

// OfflineStore holds timestamped feature-row snapshots in ClickHouse for
// batch (training) retrieval. Each materialization writes one row per user;
// historical retrieval picks, per requested entity, the latest snapshot at or
// before the entity's reference timestamp.
type OfflineStore struct {
	DB *database.ClickHouseClient
}

func NewOfflineStore(chClient *database.ClickHouseClient) *OfflineStore {
	return &OfflineStore{
		DB: chClient,
	}
}

// MaterializeFeatures snapshots feature rows at ts. Only the columns in
// featureNames carry engineered values; for a partial run the remaining
// columns are carried forward from each user's latest prior snapshot, so a
// purchase-count-only run never records zeros over previously engineered
// totals or view counts.
func (s *OfflineStore) MaterializeFeatures(ctx context.Context, rows []models.FeatureRow, ts time.Time, featureNames []string) error {
	if len(rows) == 0 {
		return nil
	}

	toInsert := rows
	if !features.SelectsAll(featureNames) {
		ids := make([]int64, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.UserID)
		}
		prev, err := s.latestRowsAsOf(ctx, ids, ts)
		if err != nil {
			return err
		}

		toInsert = make([]models.FeatureRow, 0, len(rows))
		for _, row := range rows {
			var prevRow *models.FeatureRow
			if p, ok := prev[row.UserID]; ok {
				prevRow = &p
			}
			toInsert = append(toInsert, MergeFeatureRow(prevRow, row, featureNames))
		}
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO user_activity_features (
			user_id, total_activities, unique_products_viewed, purchase_count, feature_timestamp
		) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare feature batch insert: %w", err)
	}

	for _, row := range toInsert {
		err := batch.Append(
			row.UserID,
			row.TotalActivities,
			row.UniqueProductsViewed,
			row.PurchaseCount,
			ts,
		)
		if err != nil {
			log.Printf("Error appending feature row to batch (UserID: %d): %v", row.UserID, err)
		}
	}

	err = batch.Send()
	if err != nil {
		return fmt.Errorf("failed to send feature batch: %w", err)
	}

	log.Printf("Successfully materialized %d feature rows to the offline store.", len(toInsert))
	return nil
}

// MergeFeatureRow builds the snapshot row for a partial materialization: the
// selected columns take the freshly engineered values from row, everything
// else is carried over from prev. A nil prev (user never materialized) keeps
// the unselected columns at zero.
func MergeFeatureRow(prev *models.FeatureRow, row models.FeatureRow, featureNames []string) models.FeatureRow {
	merged := models.FeatureRow{UserID: row.UserID}
	if prev != nil {
		merged = *prev
		merged.UserID = row.UserID
	}
	for _, name := range featureNames {
		switch name {
		case features.TotalActivities:
			merged.TotalActivities = row.TotalActivities
		case features.UniqueProductsViewed:
			merged.UniqueProductsViewed = row.UniqueProductsViewed
		case features.PurchaseCount:
			merged.PurchaseCount = row.PurchaseCount
		}
	}
	return merged
}

// GetHistoricalFeatures returns one FeatureValues per entity ref, preserving
// input order. For each ref it serves the latest materialized snapshot with
// feature_timestamp <= the ref's event timestamp; an entity with no snapshot
// that early gets zeros for every requested feature. Refs sharing a
// reference timestamp are fetched in a single grouped query.
func (s *OfflineStore) GetHistoricalFeatures(ctx context.Context, refs []models.EntityRef, featureNames []string) ([]models.FeatureValues, error) {
	idsByTS := make(map[time.Time][]int64)
	for _, ref := range refs {
		idsByTS[ref.EventTimestamp] = append(idsByTS[ref.EventTimestamp], ref.UserID)
	}

	snapshots := make(map[time.Time]map[int64]models.FeatureRow, len(idsByTS))
	for ts, ids := range idsByTS {
		rowsByID, err := s.latestRowsAsOf(ctx, ids, ts)
		if err != nil {
			return nil, err
		}
		snapshots[ts] = rowsByID
	}

	results := make([]models.FeatureValues, 0, len(refs))
	for _, ref := range refs {
		var row *models.FeatureRow
		if r, ok := snapshots[ref.EventTimestamp][ref.UserID]; ok {
			row = &r
		}
		results = append(results, AssembleFeatureValues(ref.UserID, row, featureNames))
	}

	return results, nil
}

// latestRowsAsOf fetches, in one query, the newest snapshot at or before ts
// for every given user. Users never materialized that early are simply
// absent from the result map.
func (s *OfflineStore) latestRowsAsOf(ctx context.Context, userIDs []int64, ts time.Time) (map[int64]models.FeatureRow, error) {
	result := make(map[int64]models.FeatureRow, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT user_id,
		       argMax(total_activities, feature_timestamp) AS total_activities,
		       argMax(unique_products_viewed, feature_timestamp) AS unique_products_viewed,
		       argMax(purchase_count, feature_timestamp) AS purchase_count
		FROM user_activity_features
		WHERE user_id IN (?) AND feature_timestamp <= ?
		GROUP BY user_id
	`
	rows, err := s.DB.Conn.Query(ctx, query, userIDs, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to query historical feature snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row models.FeatureRow
		if err := rows.Scan(&row.UserID, &row.TotalActivities, &row.UniqueProductsViewed, &row.PurchaseCount); err != nil {
			return nil, fmt.Errorf("failed to scan historical feature row: %w", err)
		}
		result[row.UserID] = row
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during historical feature query: %w", err)
	}

	return result, nil
}

// AssembleFeatureValues fills the requested feature set from a materialized
// row, zero-filling every requested feature when the row is nil (entity never
// materialized). Unknown feature names are skipped; handlers validate names
// before reaching the stores.
func AssembleFeatureValues(userID int64, row *models.FeatureRow, featureNames []string) models.FeatureValues {
	values := models.FeatureValues{
		UserID:   userID,
		Features: make(map[string]int64, len(featureNames)),
	}
	for _, name := range featureNames {
		if row == nil {
			if _, known := features.RowValue(models.FeatureRow{}, name); known {
				values.Features[name] = 0
			}
			continue
		}
		if v, known := features.RowValue(*row, name); known {
			values.Features[name] = v
		}
	}
	return values
}
