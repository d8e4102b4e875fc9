package httpapi

import (
	"fmt"
	"log"
	"net/http"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mikesibiu/BudgetTranslate/internal/pipeline"
	"github.com/mikesibiu/BudgetTranslate/internal/translatelog"
)

type RouterConfig struct {
	// Admission control
	MaxConnections      int
	MaxConnectionsPerIP int

	// Session behavior
	InactivityTimeout time.Duration

	// JWT Authentication (optional; an empty secret disables the check)
	JWTSecret string

	AppVersion string
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	mt       pipeline.Translator
	speech   *speech.Client // nil when server-side ASR is not configured
	translog *translatelog.Logger
	usage    *translatelog.UsageTracker
	registry *ConnRegistry
	mux      *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, mt pipeline.Translator, speechClient *speech.Client,
	translog *translatelog.Logger, usage *translatelog.UsageTracker, registry *ConnRegistry) http.Handler {

	r := &Router{
		cfg:      cfg,
		logger:   logger,
		mt:       mt,
		speech:   speechClient,
		translog: translog,
		usage:    usage,
		registry: registry,
		mux:      http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// Prometheus metrics
	r.mux.Handle("GET /metrics", promhttp.Handler())

	// Session WebSocket (token verified inside the handler)
	r.mux.HandleFunc("GET /session", r.handleSessionWS)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// verifyToken validates the optional JWT carried on the WS connect request.
func (r *Router) verifyToken(req *http.Request) error {
	if r.cfg.JWTSecret == "" {
		return nil
	}

	tokenString := req.URL.Query().Get("token")
	if tokenString == "" {
		return fmt.Errorf("missing token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(r.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
