package rules

import (
	"log"
	"strings"
	"sync"
	"time"
)

// Trigger identifies what kind of transcript update is being evaluated.
type Trigger string

const (
	TriggerInterim Trigger = "interim"
	TriggerFinal   Trigger = "final"
	TriggerPause   Trigger = "pause"
)

// Reason explains why a decision approved or rejected a translation.
type Reason string

const (
	ReasonSentenceEnding         Reason = "sentence_ending"
	ReasonMaxInterval            Reason = "max_interval"
	ReasonFinalResult            Reason = "final_result"
	ReasonPauseDetected          Reason = "pause_detected"
	ReasonWaitingForTrigger      Reason = "waiting_for_trigger"
	ReasonTooFewWords            Reason = "too_few_words"
	ReasonFillerWordsOnly        Reason = "filler_words_only"
	ReasonTooShort               Reason = "too_short"
	ReasonEmptyText              Reason = "empty_text"
	ReasonMaxIntervalPoorQuality Reason = "max_interval_poor_quality"
	reasonQualityOK              Reason = "quality_ok"
)

// Update is a single transcript update to evaluate.
type Update struct {
	Text                string
	IsFinal             bool
	TimeSinceLastChange time.Duration
	Trigger             Trigger
	ClientID            string // logging only
}

// Decision is the outcome of evaluating one update.
type Decision struct {
	ShouldTranslate bool
	Reason          Reason
	Confidence      float64
	NewText         string
	IsComplete      bool
}

// Config tunes one engine instance. Zero values are replaced by defaults.
type Config struct {
	TranslationInterval time.Duration // max time between emissions
	PauseDetection      time.Duration // quiet interval that triggers emission
	MinWords            int
	DedupWindow         time.Duration // must exceed TranslationInterval
}

const (
	DefaultTranslationInterval = 15 * time.Second
	DefaultPauseDetection      = 4 * time.Second
	DefaultMinWords            = 6
	DefaultDedupWindow         = 20 * time.Second

	// overlapThreshold is the multiset word-overlap ratio for duplicates:
	// new-text extraction needs a ratio above it, post-translation dedup a
	// ratio at or above it. Tuned empirically.
	overlapThreshold = 0.65

	minChars = 10

	maxLastTranslatedChars = 500
	maxAccumulatedChars    = 1000
)

type recentEntry struct {
	text string
	at   time.Time
}

// Engine makes per-update translation decisions for one session. All mutable
// decision state lives here and changes only on approvals.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	lastTranslationTime time.Time
	lastTranslatedText  string
	accumulatedText     string
	recent              []recentEntry

	logger *log.Logger
	now    func() time.Time
}

func NewEngine(cfg Config, logger *log.Logger) *Engine {
	if cfg.TranslationInterval <= 0 {
		cfg.TranslationInterval = DefaultTranslationInterval
	}
	if cfg.PauseDetection <= 0 {
		cfg.PauseDetection = DefaultPauseDetection
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = DefaultMinWords
	}
	if cfg.DedupWindow <= cfg.TranslationInterval {
		cfg.DedupWindow = cfg.TranslationInterval + 5*time.Second
	}
	if cfg.DedupWindow < DefaultDedupWindow {
		cfg.DedupWindow = DefaultDedupWindow
	}
	return &Engine{cfg: cfg, logger: logger, now: time.Now}
}

// Decide evaluates one transcript update. State is mutated only when the
// decision approves; rejections leave lastTranslationTime and
// lastTranslatedText untouched.
func (e *Engine) Decide(u Update) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if e.lastTranslationTime.IsZero() {
		e.lastTranslationTime = now
	}

	decisionsChecked.Inc()

	quality := checkQuality(u.Text, e.cfg.MinWords)

	switch {
	case isSentenceEnd(u.Text) && quality == reasonQualityOK:
		return e.approve(u, ReasonSentenceEnding, 1.0, now)

	case now.Sub(e.lastTranslationTime) >= e.cfg.TranslationInterval:
		if quality == reasonQualityOK {
			return e.approve(u, ReasonMaxInterval, 0.9, now)
		}
		// The interval timer is not reset on rejection; the next decent
		// update fires immediately.
		return e.reject(ReasonMaxIntervalPoorQuality)

	case u.IsFinal:
		if quality == reasonQualityOK {
			return e.approve(u, ReasonFinalResult, 0.8, now)
		}
		return e.reject(quality)

	case u.TimeSinceLastChange >= e.cfg.PauseDetection && quality == reasonQualityOK:
		return e.approve(u, ReasonPauseDetected, 0.7, now)

	default:
		return e.reject(ReasonWaitingForTrigger)
	}
}

// approve computes the new text and commits decision state. If nothing new
// remains after comparing against the last translated text, the approval is
// downgraded to a rejection with an empty NewText and no state change.
func (e *Engine) approve(u Update, reason Reason, confidence float64, now time.Time) Decision {
	newText := e.newTextLocked(u.Text)
	if newText == "" {
		decisionsRejected.WithLabelValues(string(reason)).Inc()
		return Decision{ShouldTranslate: false, Reason: reason, NewText: ""}
	}

	if !e.lastTranslationTime.IsZero() {
		approvalGap.Observe(now.Sub(e.lastTranslationTime).Seconds())
	}
	e.lastTranslationTime = now
	e.lastTranslatedText = tail(u.Text, maxLastTranslatedChars)
	decisionsApproved.WithLabelValues(string(reason)).Inc()

	return Decision{
		ShouldTranslate: true,
		Reason:          reason,
		Confidence:      confidence,
		NewText:         newText,
		IsComplete:      true,
	}
}

func (e *Engine) reject(reason Reason) Decision {
	decisionsRejected.WithLabelValues(string(reason)).Inc()
	return Decision{ShouldTranslate: false, Reason: reason}
}

// newTextLocked extracts the portion of fullText not yet covered by the last
// translated text. Comparison is case-insensitive.
func (e *Engine) newTextLocked(fullText string) string {
	cur := strings.TrimSpace(fullText)
	last := strings.TrimSpace(e.lastTranslatedText)
	if cur == "" {
		return ""
	}
	if last == "" {
		return cur
	}

	curLower := strings.ToLower(cur)
	lastLower := strings.ToLower(last)

	if curLower == lastLower {
		return ""
	}

	// Subset duplicate. The word-count guard matters after an ASR restart:
	// the retained tail may coincidentally contain a new short utterance.
	if strings.Contains(lastLower, curLower) && wordCount(cur) <= wordCount(last) {
		return ""
	}

	if strings.HasPrefix(curLower, lastLower) {
		return strings.TrimSpace(cur[len(last):])
	}

	if wordOverlap(cur, last) > overlapThreshold {
		return ""
	}

	return cur
}

// LastTranslatedText returns the retained source-text tail.
func (e *Engine) LastTranslatedText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastTranslatedText
}

// AppendAccumulated adds an emitted translation to the running tail and
// returns the new accumulated text.
func (e *Engine) AppendAccumulated(emitted string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.accumulatedText == "" {
		e.accumulatedText = emitted
	} else {
		e.accumulatedText = e.accumulatedText + " " + emitted
	}
	e.accumulatedText = tail(e.accumulatedText, maxAccumulatedChars)
	return e.accumulatedText
}

// Accumulated returns the current accumulated translation tail.
func (e *Engine) Accumulated() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accumulatedText
}

// LogThresholds prints the tuned thresholds once at session start so empirical
// values are visible in session logs.
func (e *Engine) LogThresholds(clientID string) {
	if e.logger == nil {
		return
	}
	e.logger.Printf("rules: client=%s interval=%s pause=%s minWords=%d dedupWindow=%s overlap=%.2f",
		clientID, e.cfg.TranslationInterval, e.cfg.PauseDetection, e.cfg.MinWords, e.cfg.DedupWindow, overlapThreshold)
}

// tail returns the trailing n runes of s.
func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// wordOverlap computes multiset word overlap between two texts: the number of
// words in common counting multiplicity, divided by the larger word count.
// Repeated words therefore do not inflate similarity.
func wordOverlap(a, b string) float64 {
	aw := strings.Fields(strings.ToLower(a))
	bw := strings.Fields(strings.ToLower(b))
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}
	counts := make(map[string]int, len(aw))
	for _, w := range aw {
		counts[w]++
	}
	common := 0
	for _, w := range bw {
		if counts[w] > 0 {
			counts[w]--
			common++
		}
	}
	max := len(aw)
	if len(bw) > max {
		max = len(bw)
	}
	return float64(common) / float64(max)
}
