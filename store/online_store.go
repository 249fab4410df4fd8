// api/store/online_store.go
package store

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"

	"featuremart/api/database"
	"featuremart/api/features"
	"featuremart/api/models"
)

// OnlineStore serves the latest feature values per user from Redis for
// low-latency lookups. Each user maps to one hash holding the three feature
// columns, expiring after the feature view's TTL.
type OnlineStore struct {
	DB   *database.RedisClient
	View models.FeatureView
}

func NewOnlineStore(rdbClient *database.RedisClient, view models.FeatureView) *OnlineStore {
	return &OnlineStore{
		DB:   rdbClient,
		View: view,
	}
}

// OnlineKey is the Redis key holding a user's feature hash.
func OnlineKey(viewName string, userID int64) string {
	return fmt.Sprintf("features:%s:%d", viewName, userID)
}

// EncodeFeatureRow flattens the selected feature columns of a row into the
// field/value pairs stored in the user's hash. Unselected features are
// omitted entirely: HSET merges fields, so a partial run must not overwrite
// a previously materialized value with the row's zero. Unknown names are
// skipped.
func EncodeFeatureRow(row models.FeatureRow, featureNames []string) map[string]string {
	fields := make(map[string]string, len(featureNames))
	for _, name := range featureNames {
		if v, known := features.RowValue(row, name); known {
			fields[name] = strconv.FormatInt(v, 10)
		}
	}
	return fields
}

// MaterializeOnline writes the latest values of the selected features for
// every row, one pipelined HSET+EXPIRE pair per user.
func (s *OnlineStore) MaterializeOnline(ctx context.Context, rows []models.FeatureRow, featureNames []string) error {
	if len(rows) == 0 {
		return nil
	}

	pipe := s.DB.Rdb.Pipeline()
	for _, row := range rows {
		fields := EncodeFeatureRow(row, featureNames)
		if len(fields) == 0 {
			continue
		}
		key := OnlineKey(s.View.Name, row.UserID)
		pipe.HSet(ctx, key, fields)
		if s.View.TTL > 0 {
			pipe.Expire(ctx, key, s.View.TTL)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to materialize features to the online store: %w", err)
	}

	log.Printf("Successfully materialized %d feature rows to the online store.", len(rows))
	return nil
}

// GetOnlineFeatures returns one FeatureValues per entity row, preserving
// input order. A user missing from Redis (never materialized, or expired)
// comes back zero-filled rather than absent.
func (s *OnlineStore) GetOnlineFeatures(ctx context.Context, entityRows []models.EntityRow, featureNames []string) ([]models.FeatureValues, error) {
	if len(entityRows) == 0 {
		return []models.FeatureValues{}, nil
	}

	pipe := s.DB.Rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(entityRows))
	for i, row := range entityRows {
		cmds[i] = pipe.HGetAll(ctx, OnlineKey(s.View.Name, row.UserID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read features from the online store: %w", err)
	}

	results := make([]models.FeatureValues, 0, len(entityRows))
	for i, row := range entityRows {
		fields, err := cmds[i].Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read features for user %d: %w", row.UserID, err)
		}
		results = append(results, DecodeFeatureValues(row.UserID, fields, featureNames))
	}

	return results, nil
}

// DecodeFeatureValues fills the requested feature set from a stored hash.
// An empty hash means a cache miss; every requested (known) feature is then
// zero. Malformed stored values also fall back to zero.
func DecodeFeatureValues(userID int64, fields map[string]string, featureNames []string) models.FeatureValues {
	values := models.FeatureValues{
		UserID:   userID,
		Features: make(map[string]int64, len(featureNames)),
	}
	for _, name := range featureNames {
		if _, known := features.RowValue(models.FeatureRow{}, name); !known {
			continue
		}
		v, err := strconv.ParseInt(fields[name], 10, 64)
		if err != nil {
			v = 0
		}
		values.Features[name] = v
	}
	return values
}
