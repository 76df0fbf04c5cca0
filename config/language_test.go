package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		locale string
		want   Language
		ok     bool
	}{
		{"en_US.UTF-8", LanguageEnglish, true},
		{"zh_CN.UTF-8", LanguageChineseSimplified, true},
		{"zh_TW", LanguageChineseTraditional, true},
		{"zh-Hant", LanguageChineseTraditional, true},
		{"de", LanguageGerman, true},
		{"fr_FR@euro", LanguageFrench, true},
		{"xx_YY", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			got, ok := ParseLanguage(tt.locale)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectSystemLanguage(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")

	t.Setenv("LANG", "ja_JP.UTF-8")
	assert.Equal(t, LanguageJapanese, DetectSystemLanguage(testLogger))

	t.Setenv("LANG", "tlh_QO")
	assert.Equal(t, DefaultLanguage, DetectSystemLanguage(testLogger))

	t.Setenv("LANG", "C")
	assert.Equal(t, DefaultLanguage, DetectSystemLanguage(testLogger))

	t.Setenv("LC_ALL", "es_ES.UTF-8")
	assert.Equal(t, LanguageSpanish, DetectSystemLanguage(testLogger))
}
