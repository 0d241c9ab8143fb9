package api

import (
	"ceapp/utils"

	"github.com/gofiber/fiber/v2"
)

// clientMessages are the message IDs a client may need to render locally
var clientMessages = []string{
	"user_exists",
	"user_not_found",
	"invalid_image_type",
	"invalid_image",
	"color_not_in_request",
	"missing_index",
	"index_not_found",
	"email_not_sent",
	"no_password_reset",
	"invalidcombo",
	"missing_credentials",
	"recover_throttled",
	"rate_limited",
	"internal_error",
	"colors_saved",
	"email_sent",
}

// GetTranslations returns the client-facing messages of one language
func GetTranslations(c *fiber.Ctx) error {
	lang := utils.MatchLanguage(c.Params("lang"))
	if lang == "" {
		lang, _ = c.Locals("lang").(string)
	}

	localizer := utils.GetLocalizer(lang)

	translations := make(map[string]string, len(clientMessages))
	for _, id := range clientMessages {
		translations[id] = utils.T(localizer, id)
	}

	return c.JSON(translations)
}
