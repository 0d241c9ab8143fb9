package api

import (
	"bufio"
	"encoding/json"
	"sync"
	"time"

	"ceapp/models"
	"ceapp/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// Notification represents a real-time change event
type Notification struct {
	ID   string      `json:"id"`
	Type string      `json:"type"` // "colors_changed"
	Data interface{} `json:"data"`
	Time time.Time   `json:"time"`
}

const subscriberBuffer = 10

// NotificationHandler fans change events out to the open SSE and WebSocket
// connections of each user, so every device of a user sees the same colors.
type NotificationHandler struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Notification // user ID -> subscriber ID -> channel
	keepAlive   time.Duration
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{
		subscribers: make(map[string]map[string]chan Notification),
		keepAlive:   30 * time.Second,
	}
}

// Subscribe registers a new listener for userID. The returned function must
// be called once the listener goes away.
func (h *NotificationHandler) Subscribe(userID string) (<-chan Notification, func()) {
	subscriberID := uuid.New().String()
	ch := make(chan Notification, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[string]chan Notification)
	}
	h.subscribers[userID][subscriberID] = ch
	h.mu.Unlock()

	utils.Log.WithField("user_id", userID).Debug("Subscriber connected: %s", subscriberID)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[userID], subscriberID)
			if len(h.subscribers[userID]) == 0 {
				delete(h.subscribers, userID)
			}
			close(ch)
			h.mu.Unlock()

			utils.Log.WithField("user_id", userID).Debug("Subscriber disconnected: %s", subscriberID)
		})
	}
}

// Publish sends a notification to every listener of userID. Listeners that
// are not keeping up miss the event.
func (h *NotificationHandler) Publish(userID string, notification Notification) {
	notification.ID = uuid.New().String()
	notification.Time = time.Now()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for subscriberID, ch := range h.subscribers[userID] {
		select {
		case ch <- notification:
		default:
			utils.Log.Warn("Notification channel full for subscriber %s", subscriberID)
		}
	}
}

// ColorsChanged publishes the new collection of a user
func (h *NotificationHandler) ColorsChanged(userID string, colors []models.ColorEntry) {
	h.Publish(userID, Notification{
		Type: "colors_changed",
		Data: fiber.Map{"colors": colors},
	})
}

// Subscribers returns the number of open listeners of userID
func (h *NotificationHandler) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

// HandleSSE streams the current user's change events as Server-Sent Events
func (h *NotificationHandler) HandleSSE(c *fiber.Ctx) error {
	userID := CurrentUserID(c)
	if userID == "" {
		return utils.ErrUserNotFound
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	messages, unsubscribe := h.Subscribe(userID)
	done := c.Context().Done()
	keepAlive := h.keepAlive

	// The stream writer runs after this handler returns
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case notification, ok := <-messages:
				if !ok {
					return
				}
				data, err := json.Marshal(notification)
				if err != nil {
					utils.Log.Error("Failed to encode notification: %v", err)
					continue
				}
				w.WriteString("data: " + string(data) + "\n\n")
			case <-ticker.C:
				w.WriteString(": keepalive\n\n")
			case <-done:
				return
			}
			// A failed flush means the client went away
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))

	return nil
}

// RequireWebSocket rejects plain HTTP requests to the WebSocket endpoint and
// requires a current user
func (h *NotificationHandler) RequireWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if CurrentUserID(c) == "" {
		return utils.ErrUserNotFound
	}
	return c.Next()
}

// HandleWebSocket pushes the current user's change events over a WebSocket
func (h *NotificationHandler) HandleWebSocket(c *websocket.Conn) {
	userID, _ := c.Locals(userIDLocal).(string)
	messages, unsubscribe := h.Subscribe(userID)
	defer unsubscribe()

	// Drain client frames so a close is noticed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case notification, ok := <-messages:
			if !ok {
				return
			}
			if err := c.WriteJSON(notification); err != nil {
				utils.Log.Error("Failed to send WebSocket notification: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
