package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mikesibiu/BudgetTranslate/internal/asr"
	"github.com/mikesibiu/BudgetTranslate/internal/pipeline"
	"github.com/mikesibiu/BudgetTranslate/internal/rules"
	"github.com/mikesibiu/BudgetTranslate/internal/session"
	"github.com/mikesibiu/BudgetTranslate/internal/translatelog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "translate_active_sessions",
	Help: "Currently connected translation sessions.",
})

// clientEnvelope is the JSON frame for client → server events.
type clientEnvelope struct {
	Event string `json:"event"`

	// start-session
	SourceLanguage      string `json:"sourceLanguage,omitempty"`
	TargetLang          string `json:"targetLang,omitempty"`
	Mode                string `json:"mode,omitempty"`
	TranslationInterval int    `json:"translationInterval,omitempty"` // ms, optional override

	// transcript-result
	Text    string `json:"text,omitempty"`
	IsFinal bool   `json:"isFinal,omitempty"`

	// audio-data (base64 variant; raw audio uses binary frames)
	Payload string `json:"payload,omitempty"`
}

// audio wire formats, detected once on the first chunk and cached.
type audioFormat int

const (
	audioFormatUnknown audioFormat = iota
	audioFormatBinary
	audioFormatBase64
)

// clientSession is one connected WebSocket client and its translation
// session. The read loop is single-threaded; writes share the conn mutex.
type clientSession struct {
	id       string
	clientID string
	remoteIP string

	conn   *websocket.Conn
	connMu sync.Mutex

	router *Router
	logger *log.Logger

	coord    *session.Coordinator
	pipeline *pipeline.Pipeline
	asrCtrl  *asr.Controller

	sourceLang string
	targetLang string

	audioFmt audioFormat

	ctx    context.Context
	cancel context.CancelFunc
}

func (r *Router) handleSessionWS(w http.ResponseWriter, req *http.Request) {
	if err := r.verifyToken(req); err != nil {
		r.logger.Printf("session_ws: auth rejected: %v", err)
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("session_ws: upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(req.Context())
	s := &clientSession{
		id:       uuid.NewString(),
		clientID: uuid.NewString(),
		remoteIP: remoteIP(req),
		conn:     conn,
		router:   r,
		logger:   r.logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if reason := r.registry.Add(s.remoteIP); reason != RejectNone {
		r.logger.Printf("session_ws: admission refused for %s: %s", s.remoteIP, reason)
		s.writeEvent("connection-error", map[string]any{
			"message": "connection limit reached",
			"code":    string(reason),
		})
		_ = conn.Close()
		cancel()
		return
	}

	activeSessions.Inc()
	r.logger.Printf("session_ws: client %s connected from %s", s.clientID, s.remoteIP)
	s.run()
}

func (s *clientSession) run() {
	defer s.cleanup()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("session_ws: client %s disconnected", s.clientID)
			} else {
				s.logger.Printf("session_ws: read error for client %s: %v", s.clientID, err)
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			if s.audioFmt == audioFormatUnknown {
				s.audioFmt = audioFormatBinary
			}
			s.handleAudio(msg)
			continue
		}

		var env clientEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			s.logger.Printf("session_ws: failed to parse message: %v", err)
			continue
		}

		switch env.Event {
		case "start-session":
			s.handleStart(env)

		case "transcript-result":
			if s.coord != nil {
				s.coord.HandleTranscript(env.Text, env.IsFinal)
			}

		case "audio-data":
			if s.audioFmt == audioFormatUnknown {
				s.audioFmt = audioFormatBase64
			}
			audio, err := base64.StdEncoding.DecodeString(env.Payload)
			if err != nil {
				s.writeEvent("recognition-error", map[string]any{
					"message": "invalid audio payload",
					"code":    "bad_payload",
				})
				continue
			}
			s.handleAudio(audio)

		case "stop-session":
			s.stopSession()

		default:
			s.logger.Printf("session_ws: unknown event %q from client %s", env.Event, s.clientID)
		}
	}
}

// handleStart validates the configuration and (re)creates the translation
// session. A duplicate start tears the previous session down first.
func (s *clientSession) handleStart(env clientEnvelope) {
	if !validSourceLanguage(env.SourceLanguage) {
		s.writeEvent("connection-error", map[string]any{
			"message": "invalid source language tag",
			"code":    "invalid_source_language",
		})
		return
	}
	if !validTargetLanguage(env.TargetLang) {
		s.writeEvent("connection-error", map[string]any{
			"message": "invalid target language tag",
			"code":    "invalid_target_language",
		})
		return
	}
	mode, ok := session.ModeByName(env.Mode)
	if !ok {
		s.writeEvent("connection-error", map[string]any{
			"message": "unknown mode",
			"code":    "invalid_mode",
		})
		return
	}
	if !validTranslationInterval(env.TranslationInterval) {
		s.writeEvent("connection-error", map[string]any{
			"message": "translation interval out of range",
			"code":    "invalid_interval",
		})
		return
	}
	if env.TranslationInterval > 0 {
		mode.TranslationInterval = time.Duration(env.TranslationInterval) * time.Millisecond
	}

	s.stopSession()

	s.sourceLang = env.SourceLanguage
	s.targetLang = env.TargetLang

	engine := rules.NewEngine(rules.Config{
		TranslationInterval: mode.TranslationInterval,
		PauseDetection:      mode.PauseDetection,
		MinWords:            mode.MinWords,
	}, s.logger)
	pipe := pipeline.New(s.router.mt, engine, s.sourceLang, s.targetLang, s.logger)
	s.pipeline = pipe

	s.coord = session.NewCoordinator(session.Config{
		ClientID:          s.clientID,
		SourceLanguage:    s.sourceLang,
		TargetLanguage:    s.targetLang,
		Mode:              mode,
		InactivityTimeout: s.router.cfg.InactivityTimeout,
	}, engine, pipe, &sessionSink{s: s}, s.logger)

	s.coord.Start()
	s.logger.Printf("session_ws: session started for client %s (%s → %s, mode %s)",
		s.clientID, s.sourceLang, s.targetLang, mode.Name)
}

// handleAudio routes one audio chunk into the ASR controller, opening it on
// first use. Skipped entirely for clients doing browser-side recognition.
func (s *clientSession) handleAudio(chunk []byte) {
	if s.coord == nil || !s.coord.Active() {
		return
	}
	s.coord.Bump()

	if s.asrCtrl == nil {
		if err := s.startASR(); err != nil {
			s.logger.Printf("session_ws: ASR start failed for client %s: %v", s.clientID, err)
			s.writeEvent("recognition-error", map[string]any{
				"message": "speech recognition unavailable",
				"code":    "asr_unavailable",
			})
			return
		}
	}

	switch err := s.asrCtrl.WriteAudio(chunk); err {
	case nil:
	case asr.ErrChunkTooLarge:
		s.writeEvent("recognition-error", map[string]any{
			"message": "audio chunk too large",
			"code":    "chunk_too_large",
		})
	case asr.ErrRateLimited:
		s.writeEvent("recognition-error", map[string]any{
			"message": "audio rate limit exceeded",
			"code":    "rate_limited",
		})
	default:
		s.logger.Printf("session_ws: audio write failed for client %s: %v", s.clientID, err)
	}
}

func (s *clientSession) startASR() error {
	if s.router.speech == nil {
		return fmt.Errorf("speech client not configured")
	}

	factory := asr.NewGoogleFactory(s.router.speech, asr.StreamConfig{
		LanguageCode:    s.sourceLang,
		SampleRateHertz: 16000,
		Encoding:        speechpb.RecognitionConfig_LINEAR16,
		PhraseHints:     phraseHints,
	}, s.logger)

	// A restart keeps accumulated and last-translated text but resets the
	// committed translation: the new stream starts a fresh transcript.
	coord := s.coord
	pipe := s.pipeline
	ctrl := asr.NewController(factory, func() {
		if pipe != nil {
			pipe.ResetCommitted()
		}
	}, s.logger)
	if err := ctrl.Start(s.ctx); err != nil {
		return err
	}
	s.asrCtrl = ctrl

	go func() {
		for res := range ctrl.Results() {
			coord.HandleTranscript(res.Text, res.IsFinal)
		}
	}()
	go func() {
		for err := range ctrl.Errors() {
			s.logger.Printf("session_ws: fatal ASR error for client %s: %v", s.clientID, err)
			s.writeEvent("recognition-error", map[string]any{
				"message": err.Error(),
				"code":    "recognition_failed",
			})
			s.stopSession()
			return
		}
	}()
	return nil
}

func (s *clientSession) stopSession() {
	if s.asrCtrl != nil {
		_ = s.asrCtrl.Close()
		s.asrCtrl = nil
	}
	if s.coord != nil {
		s.coord.Stop()
		s.coord = nil
		s.pipeline = nil
	}
}

func (s *clientSession) cleanup() {
	s.cancel()
	s.stopSession()

	s.connMu.Lock()
	_ = s.conn.Close()
	s.connMu.Unlock()

	s.router.registry.Done(s.remoteIP)
	activeSessions.Dec()
	s.logger.Printf("session_ws: session cleaned up for client %s", s.clientID)
}

func (s *clientSession) writeEvent(event string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["event"] = event

	s.connMu.Lock()
	err := s.conn.WriteJSON(payload)
	s.connMu.Unlock()

	if err != nil {
		s.logger.Printf("session_ws: write %s failed for client %s: %v", event, s.clientID, err)
	}
}

func remoteIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// phraseHints biases recognition toward domain vocabulary. The full list is
// deployment data; these defaults match the shipped glossaries.
var phraseHints = []string{
	"Iehova", "Isus", "Obadia", "Turnul de veghe", "Sala Regatului",
	"JW Broadcasting", "capitolul", "versetul", "cântarea",
}

// sessionSink adapts the coordinator's event surface onto the WebSocket and
// the persistence sinks.
type sessionSink struct {
	s *clientSession
}

func (k *sessionSink) SessionStarted(sourceLang, targetLang string) {
	k.s.writeEvent("session-started", map[string]any{
		"sourceLanguage": sourceLang,
		"targetLanguage": targetLang,
	})
}

func (k *sessionSink) InterimResult(text string, isFinal bool) {
	k.s.writeEvent("interim-result", map[string]any{
		"text":    text,
		"isFinal": isFinal,
	})
}

func (k *sessionSink) TranslationResult(ev *pipeline.Event) {
	k.s.writeEvent("translation-result", map[string]any{
		"original":    ev.Original,
		"translated":  ev.Translated,
		"accumulated": ev.Accumulated,
		"count":       ev.Count,
		"isInterim":   ev.IsInterim,
		"reason":      ev.Reason,
	})

	// Fire-and-forget persistence; failures never reach the session.
	k.s.router.translog.AppendAsync(translatelog.Row{
		SessionID:      k.s.id,
		ClientID:       k.s.clientID,
		SourceText:     ev.Original,
		TranslatedText: ev.Translated,
		SourceLanguage: k.s.sourceLang,
		TargetLanguage: k.s.targetLang,
		Reason:         ev.Reason,
		AppVersion:     k.s.router.cfg.AppVersion,
	})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = k.s.router.usage.Add(ctx, k.s.clientID, len([]rune(ev.Translated)))
	}()
}

func (k *sessionSink) TranslationError(message string) {
	k.s.writeEvent("translation-error", map[string]any{"message": message})
}

func (k *sessionSink) SessionTimeout(message string, inactiveMinutes int) {
	k.s.writeEvent("session-timeout", map[string]any{
		"message":         message,
		"inactiveMinutes": inactiveMinutes,
	})
}

func (k *sessionSink) SessionStopped(translationCount int, accumulated string) {
	k.s.writeEvent("session-stopped", map[string]any{
		"translationCount": translationCount,
		"accumulatedText":  accumulated,
	})
}
