package features_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featuremart/api/features"
	"featuremart/api/models"
)

// demoBatch is the 12-record, 5-user sample workload: users 1-4 mix views,
// clicks, and purchases; user 5 only clicks.
func demoBatch() *models.ActivityBatch {
	return &models.ActivityBatch{
		UserIDs: []int64{1, 1, 1, 2, 2, 3, 3, 3, 3, 4, 4, 5},
		ActivityTypes: []string{
			"view", "view", "purchase", "view", "view",
			"view", "click", "view", "purchase", "view", "purchase", "click",
		},
		Timestamps: []int64{
			1704067200, 1704070800, 1704074400,
			1704078000, 1704081600,
			1704085200, 1704088800, 1704092400, 1704096000,
			1704099600, 1704103200,
			1704106800,
		},
		ProductIDs: []string{"A", "B", "A", "C", "D", "E", "E", "F", "F", "G", "G", "H"},
	}
}

func TestEngineer_DemoBatch(t *testing.T) {
	rows, err := features.Engineer(demoBatch())
	require.NoError(t, err)

	require.Equal(t, []models.FeatureRow{
		{UserID: 1, TotalActivities: 3, UniqueProductsViewed: 2, PurchaseCount: 1},
		{UserID: 2, TotalActivities: 2, UniqueProductsViewed: 2, PurchaseCount: 0},
		{UserID: 3, TotalActivities: 4, UniqueProductsViewed: 3, PurchaseCount: 1},
		{UserID: 4, TotalActivities: 2, UniqueProductsViewed: 1, PurchaseCount: 1},
		{UserID: 5, TotalActivities: 1, UniqueProductsViewed: 0, PurchaseCount: 0},
	}, rows)
}

func TestEngineer_OneRowPerUserAscending(t *testing.T) {
	batch := &models.ActivityBatch{
		UserIDs:       []int64{42, 7, 42, 99, 7, 7},
		ActivityTypes: []string{"view", "click", "purchase", "view", "view", "view"},
		Timestamps:    []int64{1, 2, 3, 4, 5, 6},
		ProductIDs:    []string{"A", "B", "C", "D", "E", "E"},
	}

	rows, err := features.Engineer(batch)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	seen := map[int64]bool{}
	for i, row := range rows {
		assert.False(t, seen[row.UserID], "user %d emitted twice", row.UserID)
		seen[row.UserID] = true
		if i > 0 {
			assert.Less(t, rows[i-1].UserID, row.UserID)
		}
	}
}

func TestEngineer_ZeroDefaults(t *testing.T) {
	// A user with only a click gets a row: totals count everything, the
	// view- and purchase-qualified aggregates stay zero.
	batch := &models.ActivityBatch{
		UserIDs:       []int64{5},
		ActivityTypes: []string{"click"},
		Timestamps:    []int64{1704106800},
		ProductIDs:    []string{"H"},
	}

	rows, err := features.Engineer(batch)
	require.NoError(t, err)
	require.Equal(t, []models.FeatureRow{
		{UserID: 5, TotalActivities: 1, UniqueProductsViewed: 0, PurchaseCount: 0},
	}, rows)
}

func TestEngineer_RepeatedViewProductCountedOnce(t *testing.T) {
	batch := &models.ActivityBatch{
		UserIDs:       []int64{1, 1},
		ActivityTypes: []string{"view", "view"},
		Timestamps:    []int64{1, 2},
		ProductIDs:    []string{"A", "A"},
	}

	rows, err := features.Engineer(batch)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows[0].UniqueProductsViewed)
}

func TestEngineer_PurchaseProductDoesNotCountAsViewed(t *testing.T) {
	// The product id on a purchase record must not leak into the distinct
	// viewed-products set.
	batch := &models.ActivityBatch{
		UserIDs:       []int64{1, 1},
		ActivityTypes: []string{"purchase", "purchase"},
		Timestamps:    []int64{1, 2},
		ProductIDs:    []string{"A", "B"},
	}

	rows, err := features.Engineer(batch)
	require.NoError(t, err)
	require.Equal(t, []models.FeatureRow{
		{UserID: 1, TotalActivities: 2, UniqueProductsViewed: 0, PurchaseCount: 2},
	}, rows)
}

func TestEngineer_IrrelevantActivityTypesIgnoredIndependently(t *testing.T) {
	base := demoBatch()
	rows, err := features.Engineer(base)
	require.NoError(t, err)

	// Relabel user 5's lone click to some unrelated type: user 5's totals
	// are unchanged and nobody else's aggregates move.
	relabeled := demoBatch()
	relabeled.ActivityTypes[11] = "wishlist"

	relabeledRows, err := features.Engineer(relabeled)
	require.NoError(t, err)
	assert.Equal(t, rows, relabeledRows)
}

func TestEngineer_EmptyBatch(t *testing.T) {
	batch := &models.ActivityBatch{
		UserIDs:       []int64{},
		ActivityTypes: []string{},
		Timestamps:    []int64{},
		ProductIDs:    []string{},
	}

	rows, err := features.Engineer(batch)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEngineer_ShapeErrors(t *testing.T) {
	t.Run("length mismatch", func(t *testing.T) {
		batch := &models.ActivityBatch{
			UserIDs:       []int64{1, 2, 3},
			ActivityTypes: []string{"view", "click"},
			Timestamps:    []int64{1, 2, 3},
			ProductIDs:    []string{"A", "B", "C"},
		}

		rows, err := features.Engineer(batch)
		require.Error(t, err)
		assert.Nil(t, rows)

		var shapeErr *models.ShapeError
		require.ErrorAs(t, err, &shapeErr)
	})

	t.Run("missing column", func(t *testing.T) {
		batch := &models.ActivityBatch{
			UserIDs:       []int64{1},
			ActivityTypes: []string{"view"},
			ProductIDs:    []string{"A"},
		}

		rows, err := features.Engineer(batch)
		require.Error(t, err)
		assert.Nil(t, rows)

		var shapeErr *models.ShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, "timestamp", shapeErr.Field)
	})

	t.Run("nil batch", func(t *testing.T) {
		var shapeErr *models.ShapeError
		_, err := features.Engineer(nil)
		require.ErrorAs(t, err, &shapeErr)
	})
}

func TestEngineer_PureAndIdempotent(t *testing.T) {
	batch := demoBatch()
	snapshot := demoBatch()

	first, err := features.Engineer(batch)
	require.NoError(t, err)
	second, err := features.Engineer(batch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, batch, "input batch must not be mutated")
}

func TestEngineer_FeatureSelection(t *testing.T) {
	rows, err := features.Engineer(demoBatch(), features.WithFeatures(features.PurchaseCount))
	require.NoError(t, err)

	// Unselected features stay zero; the selected one matches the full run.
	require.Len(t, rows, 5)
	assert.Equal(t, int64(0), rows[0].TotalActivities)
	assert.Equal(t, int64(0), rows[0].UniqueProductsViewed)
	assert.Equal(t, int64(1), rows[0].PurchaseCount)

	_, err = features.Engineer(demoBatch(), features.WithFeatures("conversion_rate"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown feature")
}

func TestSelectsAll(t *testing.T) {
	assert.True(t, features.SelectsAll(features.AllFeatures()))
	assert.True(t, features.SelectsAll([]string{
		features.PurchaseCount, features.TotalActivities, features.UniqueProductsViewed,
	}))
	assert.False(t, features.SelectsAll([]string{features.PurchaseCount}))
	assert.False(t, features.SelectsAll(nil))
}

func TestConformsToView(t *testing.T) {
	view := models.UserActivityFeatureView()
	require.NoError(t, features.ConformsToView(&view))

	view.Features = view.Features[:1]
	require.Error(t, features.ConformsToView(&view))
}

func TestRowValue(t *testing.T) {
	row := models.FeatureRow{UserID: 9, TotalActivities: 7, UniqueProductsViewed: 3, PurchaseCount: 2}

	v, ok := features.RowValue(row, features.TotalActivities)
	require.True(t, ok)
	assert.Equal(t, int64(7), v)

	_, ok = features.RowValue(row, "user_id")
	assert.False(t, ok)
}
