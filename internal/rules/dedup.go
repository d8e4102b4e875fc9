package rules

import "strings"

// IsDuplicateTranslation reports whether an MT output repeats a translation
// recorded within the dedup window. Two texts are duplicates when they match
// exactly (case-insensitive), when one is a substring of the other with a
// length ratio of at least 0.65, or when their multiset word overlap reaches
// 0.65.
func (e *Engine) IsDuplicateTranslation(translated string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.evictLocked()

	cand := strings.ToLower(strings.TrimSpace(translated))
	if cand == "" {
		return false
	}

	for _, entry := range e.recent {
		prev := strings.ToLower(strings.TrimSpace(entry.text))
		if prev == "" {
			continue
		}
		if cand == prev {
			return true
		}
		if strings.Contains(cand, prev) || strings.Contains(prev, cand) {
			shorter, longer := len(cand), len(prev)
			if shorter > longer {
				shorter, longer = longer, shorter
			}
			if float64(shorter)/float64(longer) >= overlapThreshold {
				return true
			}
		}
		if wordOverlap(cand, prev) >= overlapThreshold {
			return true
		}
	}
	return false
}

// RecordTranslation remembers an emitted translation for duplicate detection.
func (e *Engine) RecordTranslation(translated string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recent = append(e.recent, recentEntry{text: translated, at: e.now()})
	e.evictLocked()
}

func (e *Engine) evictLocked() {
	cutoff := e.now().Add(-e.cfg.DedupWindow)
	kept := e.recent[:0]
	for _, entry := range e.recent {
		if entry.at.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	e.recent = kept
}
