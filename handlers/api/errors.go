package api

import (
	"errors"

	"ceapp/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// Envelope is the response body of mutations and errors
type Envelope struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// StatusData is the data block of an error envelope
type StatusData struct {
	Status int `json:"status"`
}

// Localizer returns the request localizer set by the locale middleware
func Localizer(c *fiber.Ctx) *i18n.Localizer {
	localizer, _ := c.Locals("localizer").(*i18n.Localizer)
	return localizer
}

// ErrorHandler renders every error as {code, message, data: {status}}
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	key := "internal_error"
	message := ""

	var appErr *utils.AppError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		status = appErr.Code
		if appErr.Key != "" {
			key = appErr.Key
		}
		message = appErr.Message
		if status >= fiber.StatusInternalServerError && key == "internal_error" {
			utils.Log.Error("Request %s %s failed: %v", c.Method(), c.Path(), appErr)
		} else {
			utils.Log.WithField("code", key).Debug("Request %s %s rejected: %v", c.Method(), c.Path(), appErr)
		}
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
		switch {
		case status == fiber.StatusNotFound:
			key = "rest_no_route"
		case status < fiber.StatusInternalServerError:
			key = "rest_invalid_param"
		}
		message = fiberErr.Message
	default:
		message = "Ocurrió un error interno"
		utils.Log.Error("Request %s %s failed: %v", c.Method(), c.Path(), err)
	}

	return c.Status(status).JSON(Envelope{
		Code:    key,
		Message: utils.TDefault(Localizer(c), key, message),
		Data:    StatusData{Status: status},
	})
}
