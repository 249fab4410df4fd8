// api/handlers/feature_handlers.go
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"featuremart/api/features"
	"featuremart/api/models"
	"featuremart/api/store"
	"featuremart/api/utils"

	"github.com/gin-gonic/gin"
)

type FeatureHandlers struct {
	EventStore   *store.EventStore
	OfflineStore *store.OfflineStore
	OnlineStore  *store.OnlineStore
	Registry     *store.RegistryStore
}

func NewFeatureHandlers(events *store.EventStore, offline *store.OfflineStore, online *store.OnlineStore, registry *store.RegistryStore) *FeatureHandlers {
	return &FeatureHandlers{
		EventStore:   events,
		OfflineStore: offline,
		OnlineStore:  online,
		Registry:     registry,
	}
}

type EngineerRequest struct {
	Batch       models.ActivityBatch `json:"batch"`
	Features    []string             `json:"features"`
	Materialize bool                 `json:"materialize"`
}

type HistoricalFeaturesRequest struct {
	Entities []models.EntityRef `json:"entities" binding:"required"`
	Features []string           `json:"features"`
}

type OnlineFeaturesRequest struct {
	Entities []models.EntityRow `json:"entities" binding:"required"`
	Features []string           `json:"features"`
}

// EngineerFeatures runs the aggregation over a columnar batch supplied inline
// and returns the engineered rows, ordered by user id. With "materialize"
// set, the rows are also written to the offline and online stores.
func (h *FeatureHandlers) EngineerFeatures(c *gin.Context) {
	var req EngineerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Error binding engineer request JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	selected, unknown := utils.NormalizeFeatureNames(req.Features)
	if unknown != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown feature name: " + unknown})
		return
	}

	rows, err := features.Engineer(&req.Batch, features.WithFeatures(selected...))
	if err != nil {
		var shapeErr *models.ShapeError
		if errors.As(err, &shapeErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": shapeErr.Error()})
			return
		}
		log.Printf("Error engineering features: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to engineer features"})
		return
	}

	if req.Materialize {
		if err := h.materialize(c.Request.Context(), rows, selected); err != nil {
			log.Printf("Error materializing features: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to materialize features"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"featureView":  h.OnlineStore.View.Name,
		"rowCount":     len(rows),
		"materialized": req.Materialize,
		"rows":         rows,
	})
}

// EngineerFromLog runs the aggregation over a time window of the ingested
// event log instead of an inline batch. Window bounds come from 'start' and
// 'end' query parameters, defaulting to the last 7 days.
func (h *FeatureHandlers) EngineerFromLog(c *gin.Context) {
	var start, end time.Time
	var err error

	startParam := c.Query("start")
	if startParam != "" {
		start, err = time.Parse(time.RFC3339, startParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return
		}
	} else {
		start = time.Now().UTC().Add(-7 * 24 * time.Hour) // Default to 7 days ago
	}

	endParam := c.Query("end")
	if endParam != "" {
		end, err = time.Parse(time.RFC3339, endParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return
		}
	} else {
		end = time.Now().UTC() // Default to now
	}

	materialize := c.Query("materialize") == "true"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	batch, err := h.EventStore.LoadActivityBatch(ctx, start, end)
	if err != nil {
		log.Printf("Error loading activity batch from event log: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load activity events"})
		return
	}

	rows, err := features.Engineer(batch)
	if err != nil {
		log.Printf("Error engineering features from event log: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to engineer features"})
		return
	}

	if materialize {
		if err := h.materialize(ctx, rows, features.AllFeatures()); err != nil {
			log.Printf("Error materializing features from event log: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to materialize features"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"featureView":  h.OnlineStore.View.Name,
		"startDate":    start.Format(time.RFC3339),
		"endDate":      end.Format(time.RFC3339),
		"recordCount":  batch.Len(),
		"rowCount":     len(rows),
		"materialized": materialize,
		"rows":         rows,
	})
}

// materialize writes engineered rows to both stores: timestamped snapshots
// to ClickHouse for training, latest values to Redis for serving. Only the
// selected feature columns are written; a partial run leaves the other
// columns' stored values intact.
func (h *FeatureHandlers) materialize(ctx context.Context, rows []models.FeatureRow, featureNames []string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	ts := time.Now().UTC()
	if err := h.OfflineStore.MaterializeFeatures(ctx, rows, ts, featureNames); err != nil {
		return err
	}
	return h.OnlineStore.MaterializeOnline(ctx, rows, featureNames)
}

// GetFeatureView returns the registered user-activity feature view metadata.
func (h *FeatureHandlers) GetFeatureView(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	view, err := h.Registry.GetFeatureView(ctx, h.OnlineStore.View.Name)
	if err != nil {
		log.Printf("Error getting feature view from registry: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve feature view"})
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetHistoricalFeatures serves the batch/training retrieval pattern: one row
// per requested entity ref, point-in-time correct against the materialized
// snapshots, input order preserved.
func (h *FeatureHandlers) GetHistoricalFeatures(c *gin.Context) {
	var req HistoricalFeaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	selected, unknown := utils.NormalizeFeatureNames(req.Features)
	if unknown != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown feature name: " + unknown})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.OfflineStore.GetHistoricalFeatures(ctx, req.Entities, selected)
	if err != nil {
		log.Printf("Error getting historical features: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve historical features"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"features": selected, "rows": results})
}

// GetOnlineFeatures serves the low-latency retrieval pattern: one row per
// requested entity from Redis, input order preserved, zero-filled on miss.
func (h *FeatureHandlers) GetOnlineFeatures(c *gin.Context) {
	var req OnlineFeaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	selected, unknown := utils.NormalizeFeatureNames(req.Features)
	if unknown != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown feature name: " + unknown})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	results, err := h.OnlineStore.GetOnlineFeatures(ctx, req.Entities, selected)
	if err != nil {
		log.Printf("Error getting online features: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve online features"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"features": selected, "rows": results})
}
