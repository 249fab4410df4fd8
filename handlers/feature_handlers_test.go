package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featuremart/api/handlers"
	"featuremart/api/models"
	"featuremart/api/store"
)

// newEngineerRouter wires the engineer endpoint without any backing
// databases; the inline, non-materializing path never touches them.
func newEngineerRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	online := &store.OnlineStore{View: models.UserActivityFeatureView()}
	h := handlers.NewFeatureHandlers(nil, nil, online, nil)

	r := gin.New()
	r.POST("/api/features/engineer", h.EngineerFeatures)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEngineerFeatures_OK(t *testing.T) {
	r := newEngineerRouter()

	w := postJSON(t, r, "/api/features/engineer", gin.H{
		"batch": gin.H{
			"user_id":       []int64{1, 1, 1, 2, 2},
			"activity_type": []string{"view", "view", "purchase", "view", "view"},
			"timestamp":     []int64{1, 2, 3, 4, 5},
			"product_id":    []string{"A", "B", "A", "C", "D"},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		RowCount int                 `json:"rowCount"`
		Rows     []models.FeatureRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.RowCount)
	assert.Equal(t, []models.FeatureRow{
		{UserID: 1, TotalActivities: 3, UniqueProductsViewed: 2, PurchaseCount: 1},
		{UserID: 2, TotalActivities: 2, UniqueProductsViewed: 2, PurchaseCount: 0},
	}, resp.Rows)
}

func TestEngineerFeatures_ShapeErrorIs422(t *testing.T) {
	r := newEngineerRouter()

	t.Run("length mismatch", func(t *testing.T) {
		w := postJSON(t, r, "/api/features/engineer", gin.H{
			"batch": gin.H{
				"user_id":       []int64{1, 2, 3},
				"activity_type": []string{"view", "click"},
				"timestamp":     []int64{1, 2, 3},
				"product_id":    []string{"A", "B", "C"},
			},
		})

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "invalid batch shape")
	})

	t.Run("missing column", func(t *testing.T) {
		w := postJSON(t, r, "/api/features/engineer", gin.H{
			"batch": gin.H{
				"user_id":       []int64{1},
				"activity_type": []string{"view"},
				"product_id":    []string{"A"},
			},
		})

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "timestamp")
	})
}

func TestEngineerFeatures_UnknownFeatureIs400(t *testing.T) {
	r := newEngineerRouter()

	w := postJSON(t, r, "/api/features/engineer", gin.H{
		"batch": gin.H{
			"user_id":       []int64{1},
			"activity_type": []string{"view"},
			"timestamp":     []int64{1},
			"product_id":    []string{"A"},
		},
		"features": []string{"conversion_rate"},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "conversion_rate")
}
