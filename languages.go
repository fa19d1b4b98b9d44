package wordpop

import "strings"

// DefaultTargetLang is the language results are translated into.
const DefaultTargetLang = "zh_CN"

// LanguageNames maps locale codes to human-readable names for prompts.
var LanguageNames = map[string]string{
	"zh_CN": "Chinese (Simplified)",
	"zh_TW": "Chinese (Traditional)",
	"ja_JP": "Japanese (Japan)",
	"ko_KR": "Korean (South Korea)",
	"en_US": "English (United States)",
	"de_DE": "German (Germany)",
	"es_ES": "Spanish (Spain)",
	"fr_FR": "French (France)",
	"it_IT": "Italian (Italy)",
	"pt_BR": "Portuguese (Brazil)",
	"ru_RU": "Russian (Russia)",
}

// ShortCodeToLocale maps short language codes to full locale codes.
var ShortCodeToLocale = map[string]string{
	"zh": "zh_CN",
	"ja": "ja_JP",
	"ko": "ko_KR",
	"en": "en_US",
	"de": "de_DE",
	"es": "es_ES",
	"fr": "fr_FR",
	"it": "it_IT",
	"pt": "pt_BR",
	"ru": "ru_RU",
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(langCode string) string {
	code := NormalizeLocale(langCode)
	if name, ok := LanguageNames[code]; ok {
		return name
	}
	if locale, ok := ShortCodeToLocale[strings.ToLower(code)]; ok {
		if name, ok := LanguageNames[locale]; ok {
			return name
		}
	}
	return langCode
}

// NormalizeLocale converts a language code to the standard format (e.g., "zh-CN" → "zh_CN").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(langCode, "-", "_")
}

// ToGoogleLang converts a locale code to the form the fallback engine expects.
// Chinese keeps its region ("zh_CN" → "zh-CN"); other languages use the base code.
func ToGoogleLang(langCode string) string {
	code := NormalizeLocale(langCode)
	if code == "" {
		code = DefaultTargetLang
	}
	parts := strings.SplitN(code, "_", 2)
	base := strings.ToLower(parts[0])
	if base == "zh" {
		region := "CN"
		if len(parts) == 2 {
			region = strings.ToUpper(parts[1])
		}
		return base + "-" + region
	}
	return base
}
