// Package services holds the business logic behind the HTTP handlers.
package services

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"ceapp/models"
	"ceapp/storage"
	"ceapp/utils"
)

// UserLookup finds users by ID
type UserLookup interface {
	GetUser(userID string) (*models.User, error)
}

// MetaStore reads and atomically rewrites per-user attributes
type MetaStore interface {
	GetMeta(userID, key string) ([]byte, error)
	UpdateMeta(userID, key string, fn func(current []byte) ([]byte, error)) error
}

// ImageStorer persists inline data-URI images
type ImageStorer interface {
	Store(dataURI, ownerID string) (string, error)
}

// ColorNotifier is told about every committed change of a collection
type ColorNotifier interface {
	ColorsChanged(userID string, colors []models.ColorEntry)
}

// ColorService manages the saved colors of each user. The collection is kept
// as one JSON array attribute; every mutation rewrites it inside a single
// storage transaction.
type ColorService struct {
	users  UserLookup
	meta   MetaStore
	images ImageStorer

	notifier ColorNotifier
}

// NewColorService creates a color service
func NewColorService(users UserLookup, meta MetaStore, images ImageStorer) *ColorService {
	return &ColorService{users: users, meta: meta, images: images}
}

// SetNotifier registers a listener for committed changes
func (s *ColorService) SetNotifier(n ColorNotifier) {
	s.notifier = n
}

// List returns the user's colors in insertion order, never nil
func (s *ColorService) List(userID string) ([]models.ColorEntry, error) {
	if err := s.requireUser(userID); err != nil {
		return nil, err
	}

	raw, err := s.meta.GetMeta(userID, models.MetaColors)
	if err != nil {
		return nil, utils.InternalServerError("Failed to read colors", err)
	}
	return decodeColors(raw)
}

// Add stores the images carried by entries and appends the entries to the
// collection. If any image fails nothing is persisted.
func (s *ColorService) Add(userID string, entries []models.ColorEntry) ([]models.ColorEntry, error) {
	if err := s.requireUser(userID); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, utils.ErrNoColorsProvided
	}

	processed := make([]models.ColorEntry, 0, len(entries))
	for i, entry := range entries {
		next, err := s.processEntry(userID, entry)
		if err != nil {
			utils.Log.WithField("user_id", userID).Warn("Rejected color entry %d: %v", i, err)
			return nil, err
		}
		processed = append(processed, next)
	}

	var result []models.ColorEntry
	err := s.meta.UpdateMeta(userID, models.MetaColors, func(current []byte) ([]byte, error) {
		colors, err := decodeColors(current)
		if err != nil {
			return nil, err
		}
		result = append(colors, processed...)
		return json.Marshal(result)
	})
	if err != nil {
		return nil, asAppError(err, "Failed to save colors")
	}

	utils.Log.WithField("user_id", userID).Info("Added %d colors, collection size %d", len(processed), len(result))
	s.changed(userID, result)
	return result, nil
}

// Remove deletes the entry at a zero-based position given as raw request
// text. Positions shift after every removal, so a client working from a
// stale list may remove a different entry than the one it saw.
func (s *ColorService) Remove(userID, rawIndex string) ([]models.ColorEntry, error) {
	if err := s.requireUser(userID); err != nil {
		return nil, err
	}
	index, err := ParseIndex(rawIndex)
	if err != nil {
		return nil, err
	}

	var result []models.ColorEntry
	err = s.meta.UpdateMeta(userID, models.MetaColors, func(current []byte) ([]byte, error) {
		colors, err := decodeColors(current)
		if err != nil {
			return nil, err
		}
		if index >= len(colors) {
			return nil, utils.ErrIndexNotFound.WithContext("index", index)
		}
		result = append(colors[:index:index], colors[index+1:]...)
		return json.Marshal(result)
	})
	if err != nil {
		return nil, asAppError(err, "Failed to save colors")
	}

	utils.Log.WithField("user_id", userID).Info("Removed color at index %d", index)
	s.changed(userID, result)
	return result, nil
}

// ParseIndex validates a raw removal index: it must be a non-negative integer
func ParseIndex(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, utils.ErrMissingOrInvalidIndex
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, utils.ErrMissingOrInvalidIndex
	}
	return index, nil
}

// processEntry copies an entry, replacing a data-URI image by its stored URL
func (s *ColorService) processEntry(userID string, entry models.ColorEntry) (models.ColorEntry, error) {
	out := make(models.ColorEntry, len(entry))
	for k, v := range entry {
		out[k] = v
	}

	value, ok := entry[models.ImageField]
	if !ok || value == nil {
		return out, nil
	}

	dataURI, isString := value.(string)
	if !isString {
		return nil, utils.ErrInvalidImageData
	}
	if dataURI == "" {
		return out, nil
	}

	url, err := s.images.Store(dataURI, userID)
	if err != nil {
		return nil, err
	}
	out[models.ImageField] = url
	return out, nil
}

func (s *ColorService) changed(userID string, colors []models.ColorEntry) {
	if s.notifier != nil {
		s.notifier.ColorsChanged(userID, colors)
	}
}

func (s *ColorService) requireUser(userID string) error {
	return requireUser(s.users, userID)
}

func requireUser(users UserLookup, userID string) error {
	if userID == "" {
		return utils.ErrUserNotFound
	}
	if _, err := users.GetUser(userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return utils.ErrUserNotFound
		}
		return utils.InternalServerError("Failed to load user", err)
	}
	return nil
}

func decodeColors(raw []byte) ([]models.ColorEntry, error) {
	colors := []models.ColorEntry{}
	if len(raw) == 0 {
		return colors, nil
	}
	if err := json.Unmarshal(raw, &colors); err != nil {
		return nil, utils.InternalServerError("Stored colors are corrupted", err)
	}
	if colors == nil {
		colors = []models.ColorEntry{}
	}
	return colors, nil
}

// asAppError keeps coded errors and wraps anything else as an internal error
func asAppError(err error, message string) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return utils.InternalServerError(message, err)
}
