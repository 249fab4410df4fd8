// api/store/event_store.go
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"featuremart/api/database"
	"featuremart/api/models"
)

// EventStore is the append-only activity event log, backed by ClickHouse.
// Raw events land here via the tracking endpoint and are read back out in
// columnar form for feature engineering runs.
type EventStore struct {
	DB *database.ClickHouseClient
}

func NewEventStore(chClient *database.ClickHouseClient) *EventStore {
	return &EventStore{
		DB: chClient,
	}
}

func (s *EventStore) InsertActivityEvents(ctx context.Context, events []models.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Ensure these column names and their order exactly match the
	// activity_events table schema.
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO activity_events (
			event_id, user_id, activity_type, timestamp, product_id, session_id, ip_address
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.UserID,
			event.ActivityType,
			event.Timestamp,
			event.ProductID,
			event.SessionID,
			event.IPAddress,
		)
		if err != nil {
			log.Printf("Error appending event to batch (EventID: %s): %v", event.EventID, err)
		}
	}

	err = batch.Send()
	if err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Successfully inserted %d activity events.", len(events))
	return nil
}

// LoadActivityBatch reads the event log for a time window back out as the
// columnar batch shape the feature engineering step consumes. Rows come back
// ordered by timestamp; the aggregates are order-independent either way.
func (s *EventStore) LoadActivityBatch(ctx context.Context, start, end time.Time) (*models.ActivityBatch, error) {
	query := `
		SELECT user_id, activity_type, toUnixTimestamp(timestamp), product_id
		FROM activity_events
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`
	rows, err := s.DB.Conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity events: %w", err)
	}
	defer rows.Close()

	batch := &models.ActivityBatch{
		UserIDs:       []int64{},
		ActivityTypes: []string{},
		Timestamps:    []int64{},
		ProductIDs:    []string{},
	}
	for rows.Next() {
		var (
			userID       int64
			activityType string
			ts           uint32
			productID    string
		)
		if err := rows.Scan(&userID, &activityType, &ts, &productID); err != nil {
			log.Printf("Error scanning activity event row: %v", err)
			continue
		}
		batch.UserIDs = append(batch.UserIDs, userID)
		batch.ActivityTypes = append(batch.ActivityTypes, activityType)
		batch.Timestamps = append(batch.Timestamps, int64(ts))
		batch.ProductIDs = append(batch.ProductIDs, productID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during activity event query: %w", err)
	}

	return batch, nil
}
