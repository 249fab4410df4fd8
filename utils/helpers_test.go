package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featuremart/api/features"
	"featuremart/api/models"
	"featuremart/api/utils"
)

func TestIsValidFeatureName(t *testing.T) {
	assert.True(t, utils.IsValidFeatureName("total_activities"))
	assert.True(t, utils.IsValidFeatureName("unique_products_viewed"))
	assert.True(t, utils.IsValidFeatureName("purchase_count"))
	assert.False(t, utils.IsValidFeatureName("user_id"))
	assert.False(t, utils.IsValidFeatureName(""))
}

func TestNormalizeFeatureNames(t *testing.T) {
	names, unknown := utils.NormalizeFeatureNames(nil)
	assert.Empty(t, unknown)
	assert.Equal(t, features.AllFeatures(), names)

	names, unknown = utils.NormalizeFeatureNames([]string{"purchase_count"})
	assert.Empty(t, unknown)
	assert.Equal(t, []string{"purchase_count"}, names)

	names, unknown = utils.NormalizeFeatureNames([]string{"purchase_count", "conversion_rate"})
	assert.Equal(t, "conversion_rate", unknown)
	assert.Nil(t, names)
}

func TestJWTRoundTrip(t *testing.T) {
	user := &models.User{ID: 12, Email: "analyst@example.com"}

	token, err := utils.GenerateJWT(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := utils.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, 12, claims.UserID)
	assert.Equal(t, "analyst@example.com", claims.Email)

	_, err = utils.ValidateJWT(token + "tampered")
	require.Error(t, err)
}
