package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mikesibiu/BudgetTranslate/internal/pipeline"
	"github.com/mikesibiu/BudgetTranslate/internal/rules"
)

// DefaultInactivityTimeout terminates sessions with no transcript or audio
// activity.
const DefaultInactivityTimeout = 30 * time.Minute

// Sink receives the events a session emits back to its client.
type Sink interface {
	SessionStarted(sourceLang, targetLang string)
	InterimResult(text string, isFinal bool)
	TranslationResult(ev *pipeline.Event)
	TranslationError(message string)
	SessionTimeout(message string, inactiveMinutes int)
	SessionStopped(translationCount int, accumulated string)
}

// Config describes one session.
type Config struct {
	ClientID          string
	SourceLanguage    string
	TargetLanguage    string
	Mode              Mode
	InactivityTimeout time.Duration
}

type pendingTranslation struct {
	text     string
	decision rules.Decision
}

// Coordinator owns all per-session mutable state and serializes translation
// attempts: at most one MT call is in flight per session, and at most one
// deferred final (the latest) waits behind it.
type Coordinator struct {
	cfg    Config
	engine *rules.Engine
	pipe   *pipeline.Pipeline
	sink   Sink
	logger *log.Logger

	mu              sync.Mutex
	active          bool
	inFlight        bool
	pending         *pendingTranslation
	lastInterimText string
	lastTextChange  time.Time

	pauseTimer      *time.Timer
	inactivityTimer *time.Timer

	now func() time.Time
}

func NewCoordinator(cfg Config, engine *rules.Engine, pipe *pipeline.Pipeline, sink Sink, logger *log.Logger) *Coordinator {
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = DefaultInactivityTimeout
	}
	return &Coordinator{
		cfg:    cfg,
		engine: engine,
		pipe:   pipe,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Start activates the session and announces it to the client.
func (c *Coordinator) Start() {
	c.mu.Lock()
	c.active = true
	c.lastTextChange = c.now()
	c.resetInactivityLocked()
	c.mu.Unlock()

	c.engine.LogThresholds(c.cfg.ClientID)
	c.sink.SessionStarted(c.cfg.SourceLanguage, c.cfg.TargetLanguage)
}

// Active reports whether the session accepts updates.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// HandleTranscript processes one transcript update, from either the ASR
// controller or a client doing browser-side recognition.
func (c *Coordinator) HandleTranscript(text string, isFinal bool) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.resetInactivityLocked()

	now := c.now()
	changed := !strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(c.lastInterimText))
	if changed {
		c.lastTextChange = now
		c.lastInterimText = text
		c.cancelPauseTimerLocked()
	}
	sinceChange := now.Sub(c.lastTextChange)
	c.mu.Unlock()

	c.sink.InterimResult(text, isFinal)

	trigger := rules.TriggerInterim
	if isFinal {
		trigger = rules.TriggerFinal
	}
	dec := c.engine.Decide(rules.Update{
		Text:                text,
		IsFinal:             isFinal,
		TimeSinceLastChange: sinceChange,
		Trigger:             trigger,
		ClientID:            c.cfg.ClientID,
	})

	if dec.ShouldTranslate {
		c.dispatch(text, dec, isFinal)
		return
	}

	// Arm the pause timer only for rejected interims whose text moved.
	if !isFinal && changed {
		c.armPauseTimer()
	}
}

// Bump refreshes the inactivity timer for non-transcript session events such
// as audio chunks.
func (c *Coordinator) Bump() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		c.resetInactivityLocked()
	}
}

// dispatch enforces the in-flight rule: run now, or defer the latest final,
// or drop the interim.
func (c *Coordinator) dispatch(text string, dec rules.Decision, isFinal bool) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		if isFinal {
			// Later finals overwrite earlier finals; pending is at most one.
			c.pending = &pendingTranslation{text: text, decision: dec}
		}
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	go c.runPipeline(text, dec)
}

// runPipeline executes one translation. A stop during the call does not
// cancel it; the result is simply not emitted.
func (c *Coordinator) runPipeline(text string, dec rules.Decision) {
	ev, err := c.pipe.Run(context.Background(), text, dec)

	c.mu.Lock()
	c.inFlight = false
	active := c.active
	var next *pendingTranslation
	if active && c.pending != nil {
		next = c.pending
		c.pending = nil
		c.inFlight = true
	}
	c.mu.Unlock()

	// An inactive session swallows the result; the MT call was allowed to
	// finish but nothing is emitted.
	if active {
		switch {
		case err != nil:
			c.logger.Printf("session %s: translation failed: %v", c.cfg.ClientID, err)
			c.sink.TranslationError("translation failed")
		case ev != nil:
			c.sink.TranslationResult(ev)
		}
	}

	if next != nil {
		c.runPipeline(next.text, next.decision)
	}
}

// armPauseTimer schedules a one-shot re-check after the configured quiet
// interval. Any text change cancels it.
func (c *Coordinator) armPauseTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.pauseTimer != nil {
		return
	}
	c.pauseTimer = time.AfterFunc(c.cfg.Mode.PauseDetection, c.firePauseTimer)
}

func (c *Coordinator) firePauseTimer() {
	c.mu.Lock()
	c.pauseTimer = nil
	if !c.active {
		c.mu.Unlock()
		return
	}
	text := c.lastInterimText
	sinceChange := c.now().Sub(c.lastTextChange)
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return
	}

	dec := c.engine.Decide(rules.Update{
		Text:                text,
		TimeSinceLastChange: sinceChange,
		Trigger:             rules.TriggerPause,
		ClientID:            c.cfg.ClientID,
	})
	if !dec.ShouldTranslate {
		return
	}

	c.mu.Lock()
	busy := c.inFlight
	if !busy && c.active {
		c.inFlight = true
	}
	active := c.active
	c.mu.Unlock()

	// Pause-triggered work never queues behind an in-flight call; the next
	// final or interim covers it.
	if busy || !active {
		return
	}
	go c.runPipeline(text, dec)
}

func (c *Coordinator) cancelPauseTimerLocked() {
	if c.pauseTimer != nil {
		c.pauseTimer.Stop()
		c.pauseTimer = nil
	}
}

func (c *Coordinator) resetInactivityLocked() {
	if c.inactivityTimer != nil {
		c.inactivityTimer.Stop()
	}
	c.inactivityTimer = time.AfterFunc(c.cfg.InactivityTimeout, c.fireInactivity)
}

func (c *Coordinator) fireInactivity() {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if !active {
		return
	}
	minutes := int(c.cfg.InactivityTimeout.Minutes())
	c.logger.Printf("session %s: inactive for %d minutes, terminating", c.cfg.ClientID, minutes)
	c.sink.SessionTimeout("session terminated due to inactivity", minutes)
	c.Stop()
}

// Stop deactivates the session, cancels its timers, discards any pending
// translation, and reports the final summary. It is idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.pending = nil
	c.cancelPauseTimerLocked()
	if c.inactivityTimer != nil {
		c.inactivityTimer.Stop()
		c.inactivityTimer = nil
	}
	c.mu.Unlock()

	c.sink.SessionStopped(c.pipe.Count(), c.engine.Accumulated())
}
