package api

import (
	"math"
	"strconv"

	"ceapp/models"
	"ceapp/services"
	"ceapp/utils"

	"github.com/gofiber/fiber/v2"
)

// ColorsHandler serves the saved colors of the current user
type ColorsHandler struct {
	colors *services.ColorService
}

// NewColorsHandler creates a new colors handler
func NewColorsHandler(colors *services.ColorService) *ColorsHandler {
	return &ColorsHandler{colors: colors}
}

// List returns the bare array of colors
func (h *ColorsHandler) List(c *fiber.Ctx) error {
	colors, err := h.colors.List(CurrentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(colors)
}

// Add appends the colors of a {"colors": [...]} body
func (h *ColorsHandler) Add(c *fiber.Ctx) error {
	userID := CurrentUserID(c)
	if userID == "" {
		return utils.ErrUserNotFound
	}

	var req models.AddColorsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	colors, err := h.colors.Add(userID, req.Colors)
	if err != nil {
		return err
	}

	return c.JSON(Envelope{
		Code:    "success",
		Message: utils.TDefault(Localizer(c), "colors_saved", "Colores guardados exitosamente"),
		Data:    models.ColorsData{Status: fiber.StatusOK, Colors: colors},
	})
}

// Remove deletes one color. The index comes from the query string or,
// failing that, from a JSON body.
func (h *ColorsHandler) Remove(c *fiber.Ctx) error {
	raw := c.Query("index")
	if raw == "" {
		var req models.RemoveColorRequest
		if err := parseBody(c, &req); err == nil {
			raw = indexString(req.Index)
		}
	}

	colors, err := h.colors.Remove(CurrentUserID(c), raw)
	if err != nil {
		return err
	}

	return c.JSON(Envelope{
		Code:    "success",
		Message: "",
		Data:    models.ColorsData{Status: fiber.StatusOK, Colors: colors},
	})
}

// indexString renders a JSON index value for ParseIndex
func indexString(v interface{}) string {
	switch index := v.(type) {
	case string:
		return index
	case float64:
		if index != math.Trunc(index) || math.IsInf(index, 0) {
			return ""
		}
		return strconv.FormatFloat(index, 'f', -1, 64)
	default:
		return ""
	}
}

// parseBody decodes an optional request body; an empty body leaves v unchanged
func parseBody(c *fiber.Ctx, v interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return utils.BadRequestError("Invalid request body", err)
	}
	return nil
}
