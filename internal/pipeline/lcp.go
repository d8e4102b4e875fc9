package pipeline

import "strings"

// lcpThreshold is the minimum fraction of committed words that must prefix-
// match the new translation before only the tail is emitted. Below it the
// entire translation is emitted instead; repeating a few words is safer than
// emitting a decontextualized fragment.
const lcpThreshold = 0.60

// extractTail compares the new full translation against the committed one at
// word granularity and returns what should be emitted plus the match ratio.
// Matching is case- and edge-punctuation-insensitive; the returned tail keeps
// the original casing and punctuation.
func extractTail(committed, translatedFull string) (string, float64) {
	if strings.TrimSpace(committed) == "" {
		return translatedFull, 0
	}

	prevWords := strings.Fields(committed)
	newWords := strings.Fields(translatedFull)
	if len(prevWords) == 0 {
		return translatedFull, 0
	}

	match := 0
	for match < len(prevWords) && match < len(newWords) {
		if normalizeWord(prevWords[match]) != normalizeWord(newWords[match]) {
			break
		}
		match++
	}

	ratio := float64(match) / float64(len(prevWords))
	if ratio < lcpThreshold {
		return translatedFull, ratio
	}

	return strings.TrimSpace(strings.Join(newWords[match:], " ")), ratio
}

// normalizeWord lowercases and strips leading/trailing punctuation for
// comparison purposes.
func normalizeWord(w string) string {
	return strings.ToLower(strings.Trim(w, ".,!?;:\"'()[]«»„”“-–—"))
}
