package pipeline

import (
	"context"
	"log"

	"github.com/mikesibiu/BudgetTranslate/internal/rules"
)

// Translator is the upstream MT call the pipeline depends on.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Event is one emitted translation result.
type Event struct {
	Original    string `json:"original"`
	Translated  string `json:"translated"`
	Accumulated string `json:"accumulated"`
	Count       int    `json:"count"`
	IsInterim   bool   `json:"isInterim"`
	Reason      string `json:"reason"`
}

// Pipeline turns one approved decision and the full transcript into at most
// one translation event. The full transcript is always what goes to MT;
// emitting only the new tail is handled by word-LCP extraction afterwards.
type Pipeline struct {
	mt     Translator
	engine *rules.Engine
	logger *log.Logger

	sourceLang string
	targetLang string

	// committed is the raw MT output for the full transcript from the most
	// recent successful call. It is never the concatenation of emitted
	// tails; committing post-processed text makes every later LCP compare
	// against a string MT never produced, and matches degrade from there.
	committed string
	count     int
}

func New(mt Translator, engine *rules.Engine, sourceLang, targetLang string, logger *log.Logger) *Pipeline {
	return &Pipeline{
		mt:         mt,
		engine:     engine,
		logger:     logger,
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
}

// Run executes one translation attempt. It returns (nil, nil) when the output
// was suppressed as a duplicate, and (nil, err) when MT failed; on failure no
// pipeline state changes.
func (p *Pipeline) Run(ctx context.Context, fullText string, dec rules.Decision) (*Event, error) {
	translatedFull, err := p.mt.Translate(ctx, fullText, p.sourceLang, p.targetLang)
	if err != nil {
		return nil, err
	}

	emitted, ratio := extractTail(p.committed, translatedFull)
	p.committed = translatedFull

	emitted = postProcess(emitted, dec.NewText, fullText, p.targetLang)

	if p.engine.IsDuplicateTranslation(emitted) {
		p.logger.Printf("pipeline: suppressed duplicate (lcp=%.2f): %q", ratio, emitted)
		return nil, nil
	}

	p.engine.RecordTranslation(emitted)
	accumulated := p.engine.AppendAccumulated(emitted)
	p.count++

	return &Event{
		Original:    dec.NewText,
		Translated:  emitted,
		Accumulated: accumulated,
		Count:       p.count,
		IsInterim:   !dec.IsComplete,
		Reason:      string(dec.Reason),
	}, nil
}

// Count returns the number of emitted translations.
func (p *Pipeline) Count() int { return p.count }

// Committed returns the last full MT output, exposed for debugging.
func (p *Pipeline) Committed() string { return p.committed }

// ResetCommitted clears the committed translation. Called after an ASR stream
// restart: the fresh stream produces fresh full-context translations, so the
// old commit would only poison LCP matching.
func (p *Pipeline) ResetCommitted() { p.committed = "" }
