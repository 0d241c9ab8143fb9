package api

import (
	"testing"

	"ceapp/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationHandler_PublishesPerUser(t *testing.T) {
	h := NewNotificationHandler()

	ana, unsubscribeAna := h.Subscribe("ana")
	defer unsubscribeAna()
	bob, unsubscribeBob := h.Subscribe("bob")
	defer unsubscribeBob()

	h.ColorsChanged("ana", []models.ColorEntry{{"name": "A"}})

	require.Len(t, ana, 1)
	n := <-ana
	assert.Equal(t, "colors_changed", n.Type)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.Time.IsZero())
	assert.Empty(t, bob)
}

func TestNotificationHandler_DropsWhenSubscriberIsSlow(t *testing.T) {
	h := NewNotificationHandler()
	ch, unsubscribe := h.Subscribe("ana")
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish("ana", Notification{Type: "colors_changed"})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestNotificationHandler_Unsubscribe(t *testing.T) {
	h := NewNotificationHandler()
	ch, unsubscribe := h.Subscribe("ana")
	assert.Equal(t, 1, h.Subscribers("ana"))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, h.Subscribers("ana"))

	_, open := <-ch
	assert.False(t, open)

	// publishing with nobody listening is a no-op
	h.Publish("ana", Notification{Type: "colors_changed"})
}
