package utils

import (
	"io/fs"
	"sync"

	"ceapp/locales"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var (
	// Bundle is the global translation bundle
	Bundle *i18n.Bundle

	// Supported lists the response languages, default first
	Supported = []language.Tag{language.Spanish, language.English}

	matcher  = language.NewMatcher(Supported)
	i18nOnce sync.Once
	i18nErr  error
)

// InitI18n loads the embedded message files. It is safe to call repeatedly.
func InitI18n() error {
	i18nOnce.Do(func() {
		Bundle = i18n.NewBundle(language.Spanish)
		Bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

		files, err := fs.Glob(locales.FS, "active.*.toml")
		if err != nil {
			i18nErr = err
			return
		}
		for _, name := range files {
			if _, err := Bundle.LoadMessageFileFS(locales.FS, name); err != nil {
				Log.Warn("Failed to load locale %s: %v", name, err)
			}
		}

		Log.Info("i18n system initialized with %d locale files", len(files))
	})
	return i18nErr
}

// MatchLanguage picks the supported language closest to the given
// preferences (query value, cookie, Accept-Language header), in order.
func MatchLanguage(preferences ...string) string {
	for _, pref := range preferences {
		if pref == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(pref)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, index, confidence := matcher.Match(tags...)
		if confidence != language.No {
			base, _ := Supported[index].Base()
			return base.String()
		}
	}
	return ""
}

// GetLocalizer returns a localizer for the specified language
func GetLocalizer(lang string) *i18n.Localizer {
	if Bundle == nil {
		return nil
	}
	if lang == "" {
		lang = "es"
	}
	return i18n.NewLocalizer(Bundle, lang)
}

// T translates a message ID, returning the ID itself when no translation exists
func T(localizer *i18n.Localizer, messageID string) string {
	return TDefault(localizer, messageID, messageID)
}

// TDefault translates a message ID, returning fallback when no translation exists
func TDefault(localizer *i18n.Localizer, messageID, fallback string) string {
	if localizer == nil || messageID == "" {
		return fallback
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID: messageID,
	})
	if err != nil {
		Log.Debug("Translation error for '%s': %v", messageID, err)
		return fallback
	}
	return msg
}
