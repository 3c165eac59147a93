package entity

import "strings"

// Language selects the locale of user-facing labels such as weekday names.
type Language string

const (
	LanguageUnspecified Language = ""
	LanguageEnglish     Language = "en"
	LanguageFrench      Language = "fr"
)

// Code returns the lowercase language code (without defaulting).
func (l Language) Code() string {
	return strings.TrimSpace(string(l))
}

// ParseLanguage converts an arbitrary string into a supported Language value,
// defaulting to English.
func ParseLanguage(code string) Language {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "fr", "fr-fr", "french":
		return LanguageFrench
	default:
		return LanguageEnglish
	}
}

// NormalizeUserID trims a user identifier, returning ErrInvalidUserID when blank
// or when it would address a different document path.
func NormalizeUserID(userID string) (string, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" || strings.ContainsAny(trimmed, "/\x00") {
		return "", ErrInvalidUserID
	}
	return trimmed, nil
}
