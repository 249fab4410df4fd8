// api/handlers/activity_handlers.go
package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"featuremart/api/models"
	"featuremart/api/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid" // For generating EventID
)

type ActivityHandlers struct {
	EventStore *store.EventStore
}

func NewActivityHandlers(s *store.EventStore) *ActivityHandlers {
	return &ActivityHandlers{
		EventStore: s,
	}
}

// TrackActivity ingests a batch of raw user activity events into the
// ClickHouse event log. The client sends an array of ActivityEvent objects.
func (h *ActivityHandlers) TrackActivity(c *gin.Context) {
	var incomingEvents []models.ActivityEvent
	if err := c.ShouldBindJSON(&incomingEvents); err != nil {
		log.Printf("Error binding incoming activity JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if len(incomingEvents) == 0 {
		c.Status(http.StatusOK)
		return
	}

	var eventsToInsert []models.ActivityEvent

	for _, event := range incomingEvents {
		event.EventID = uuid.New().String() // Generate a unique ID for this event record
		event.IPAddress = c.ClientIP()      // Capture IP address from the request context
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		eventsToInsert = append(eventsToInsert, event)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second) // Set a timeout for DB operation
	defer cancel()

	if err := h.EventStore.InsertActivityEvents(ctx, eventsToInsert); err != nil {
		log.Printf("Error inserting activity events into ClickHouse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record activity events"})
		return
	}

	c.Status(http.StatusOK)
}
