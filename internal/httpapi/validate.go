package httpapi

import (
	"regexp"
	"time"
)

var (
	sourceLangRe = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}$`)
	targetLangRe = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)
)

const (
	minTranslationInterval = 1000 * time.Millisecond
	maxTranslationInterval = 60000 * time.Millisecond
)

// validSourceLanguage accepts full locale tags like "ro-RO".
func validSourceLanguage(tag string) bool {
	return sourceLangRe.MatchString(tag)
}

// validTargetLanguage accepts base or full tags like "en" or "en-US".
func validTargetLanguage(tag string) bool {
	return targetLangRe.MatchString(tag)
}

// validTranslationInterval bounds the client override. Zero means "use the
// mode default" and is always valid.
func validTranslationInterval(ms int) bool {
	if ms == 0 {
		return true
	}
	d := time.Duration(ms) * time.Millisecond
	return d >= minTranslationInterval && d <= maxTranslationInterval
}
