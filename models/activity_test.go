package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featuremart/api/models"
)

func TestActivityBatchValidate(t *testing.T) {
	valid := func() *models.ActivityBatch {
		return &models.ActivityBatch{
			UserIDs:       []int64{1, 2},
			ActivityTypes: []string{"view", "purchase"},
			Timestamps:    []int64{10, 20},
			ProductIDs:    []string{"A", "B"},
		}
	}

	t.Run("well-formed", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("empty batch is valid", func(t *testing.T) {
		batch := &models.ActivityBatch{
			UserIDs:       []int64{},
			ActivityTypes: []string{},
			Timestamps:    []int64{},
			ProductIDs:    []string{},
		}
		require.NoError(t, batch.Validate())
		assert.Equal(t, 0, batch.Len())
	})

	t.Run("missing columns reported in column order", func(t *testing.T) {
		cases := []struct {
			name  string
			strip func(*models.ActivityBatch)
		}{
			{"user_id", func(b *models.ActivityBatch) { b.UserIDs = nil }},
			{"activity_type", func(b *models.ActivityBatch) { b.ActivityTypes = nil }},
			{"timestamp", func(b *models.ActivityBatch) { b.Timestamps = nil }},
			{"product_id", func(b *models.ActivityBatch) { b.ProductIDs = nil }},
		}
		for _, tc := range cases {
			batch := valid()
			tc.strip(batch)

			err := batch.Validate()
			require.Error(t, err)

			var shapeErr *models.ShapeError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, tc.name, shapeErr.Field)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		batch := valid()
		batch.ProductIDs = append(batch.ProductIDs, "C")

		err := batch.Validate()
		require.Error(t, err)

		var shapeErr *models.ShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Empty(t, shapeErr.Field)
		assert.Contains(t, err.Error(), "same length")
	})
}

func TestShapeErrorMessage(t *testing.T) {
	assert.Equal(t, "invalid batch shape: column 'user_id' is required",
		models.MissingColumn("user_id").Error())
	assert.Equal(t, "invalid batch shape: all columns must have the same length",
		(&models.ShapeError{Reason: "all columns must have the same length"}).Error())
}

func TestUserActivityFeatureView(t *testing.T) {
	view := models.UserActivityFeatureView()

	assert.Equal(t, "user_activity_features", view.Name)
	assert.Equal(t, "user_id", view.Entity)
	assert.Equal(t, 24*time.Hour, view.TTL)

	for _, name := range []string{"total_activities", "unique_products_viewed", "purchase_count"} {
		assert.True(t, view.HasFeature(name), "view should declare %s", name)
	}
	assert.False(t, view.HasFeature("conversion_rate"))
}
