package rules

import "strings"

// fillerWords is a fixed language-neutral set of hesitation tokens. A text
// consisting only of these carries nothing worth translating.
var fillerWords = map[string]bool{
	"uh": true, "um": true, "ah": true, "hmm": true, "eh": true, "er": true,
	"like": true, "you": true, "know": true,
	"ă": true, "e": true, "ei": true, "păi": true, "deci": true, "adică": true,
}

// checkQuality applies the ordered quality filter:
// empty → too_few_words → filler_words_only → too_short → quality_ok.
func checkQuality(text string, minWords int) Reason {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ReasonEmptyText
	}

	words := strings.Fields(trimmed)
	if len(words) < minWords {
		return ReasonTooFewWords
	}

	meaningful := 0
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".,!?;:"))
		if w != "" && !fillerWords[w] {
			meaningful++
		}
	}
	if meaningful == 0 {
		return ReasonFillerWordsOnly
	}

	if len([]rune(trimmed)) < minChars {
		return ReasonTooShort
	}

	return reasonQualityOK
}

// isSentenceEnd reports whether text ends a sentence. A trailing run of two
// or more periods is an ellipsis, not a sentence ending.
func isSentenceEnd(text string) bool {
	trimmed := strings.TrimSpace(text)
	r := []rune(trimmed)
	if len(r) == 0 {
		return false
	}
	last := r[len(r)-1]
	switch last {
	case '.', '!', '?', '。', '！', '？':
	default:
		return false
	}
	if last == '.' && len(r) >= 2 && r[len(r)-2] == '.' {
		return false
	}
	return true
}
