package middleware

import (
	"ceapp/utils"

	"github.com/gofiber/fiber/v2"
)

// LocaleMiddleware detects and sets the response language. Preference order
// is the lang query parameter, the lang cookie, then Accept-Language;
// anything unsupported falls back to defaultLang.
func LocaleMiddleware(defaultLang string) fiber.Handler {
	if defaultLang == "" {
		defaultLang = "es"
	}

	return func(c *fiber.Ctx) error {
		lang := utils.MatchLanguage(c.Query("lang"), c.Cookies("lang"), c.Get(fiber.HeaderAcceptLanguage))
		if lang == "" {
			lang = defaultLang
		}

		// Store in context
		c.Locals("localizer", utils.GetLocalizer(lang))
		c.Locals("lang", lang)

		utils.Log.Debug("Locale detected: %s for path: %s", lang, c.Path())

		return c.Next()
	}
}
