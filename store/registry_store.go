// api/store/registry_store.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"featuremart/api/models"
)

// RegistryStore persists feature-view metadata in PostgreSQL. Applying the
// same view name again overwrites the stored definition.
type RegistryStore struct {
	db *sql.DB
}

func NewRegistryStore(db *sql.DB) *RegistryStore {
	return &RegistryStore{db: db}
}

// Apply upserts a feature view definition into the registry.
func (s *RegistryStore) Apply(ctx context.Context, view models.FeatureView) error {
	featuresJSON, err := json.Marshal(view.Features)
	if err != nil {
		return fmt.Errorf("failed to encode feature fields: %w", err)
	}

	query := `
		INSERT INTO feature_views (name, entity, features, ttl_seconds, description, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (name) DO UPDATE
		SET entity = EXCLUDED.entity,
		    features = EXCLUDED.features,
		    ttl_seconds = EXCLUDED.ttl_seconds,
		    description = EXCLUDED.description,
		    updated_at = NOW();
	`
	_, err = s.db.ExecContext(ctx, query, view.Name, view.Entity, featuresJSON, int64(view.TTL.Seconds()), view.Description)
	if err != nil {
		return fmt.Errorf("failed to apply feature view '%s': %w", view.Name, err)
	}

	log.Printf("Feature view applied to registry: %s (entity=%s, features=%d)", view.Name, view.Entity, len(view.Features))
	return nil
}

// GetFeatureView reads a feature view definition back out of the registry.
func (s *RegistryStore) GetFeatureView(ctx context.Context, name string) (*models.FeatureView, error) {
	view := &models.FeatureView{}
	var featuresJSON []byte
	var ttlSeconds int64

	query := `
		SELECT name, entity, features, ttl_seconds, description
		FROM feature_views
		WHERE name = $1;
	`
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&view.Name,
		&view.Entity,
		&featuresJSON,
		&ttlSeconds,
		&view.Description,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("feature view '%s' not found", name)
		}
		return nil, fmt.Errorf("failed to get feature view: %w", err)
	}

	if err := json.Unmarshal(featuresJSON, &view.Features); err != nil {
		return nil, fmt.Errorf("failed to decode feature fields for view '%s': %w", name, err)
	}
	view.TTL = time.Duration(ttlSeconds) * time.Second

	return view, nil
}
