package xlate

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// fallbackLanguageNames maps a handful of common codes to English names;
// ResolveLanguageName consults it when golang.org/x/text cannot parse the
// tag or has no English name for it.
var fallbackLanguageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"zh": "Chinese",
	"vi": "Vietnamese",
}

// ResolveLanguageName converts an ISO-639-1 code to its English exonym
// ("fr" -> "French"), for substitution into the translator system prompt.
func ResolveLanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		if name, ok := fallbackLanguageNames[code]; ok {
			return name
		}
		return code
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		if name, ok := fallbackLanguageNames[code]; ok {
			return name
		}
		return code
	}
	return name
}
