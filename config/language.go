package config

import (
	"log/slog"
	"os"
	"strings"
)

// Language is a UI language tag as stored in the config file.
type Language string

const (
	LanguageEnglish            Language = "en"
	LanguageChineseSimplified  Language = "zh"
	LanguageChineseTraditional Language = "zh-Hant"
	LanguageJapanese           Language = "ja"
	LanguageGerman             Language = "de"
	LanguageFrench             Language = "fr"
	LanguageSpanish            Language = "es"
	LanguageRussian            Language = "ru"

	DefaultLanguage = LanguageEnglish
)

var supportedLanguages = map[Language]struct{}{
	LanguageEnglish:            {},
	LanguageChineseSimplified:  {},
	LanguageChineseTraditional: {},
	LanguageJapanese:           {},
	LanguageGerman:             {},
	LanguageFrench:             {},
	LanguageSpanish:            {},
	LanguageRussian:            {},
}

// ParseLanguage maps a locale such as "zh_CN.UTF-8", "zh-TW" or "de" to a
// supported Language.
func ParseLanguage(locale string) (Language, bool) {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")
	if locale == "" {
		return "", false
	}

	lower := strings.ToLower(locale)
	switch lower {
	case "zh-tw", "zh-hk", "zh-mo", "zh-hant":
		return LanguageChineseTraditional, true
	}

	base := lower
	if i := strings.IndexByte(base, '-'); i >= 0 {
		base = base[:i]
	}
	lang := Language(base)
	if _, ok := supportedLanguages[lang]; ok {
		return lang, true
	}
	return "", false
}

// DetectSystemLanguage reads the locale environment, falling back to DefaultLanguage.
func DetectSystemLanguage(log *slog.Logger) Language {
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := os.Getenv(env)
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}
		if lang, ok := ParseLanguage(value); ok {
			return lang
		}
		log.Warn("Unsupported system language, using default", "locale", value, "default", DefaultLanguage)
		return DefaultLanguage
	}
	return DefaultLanguage
}
