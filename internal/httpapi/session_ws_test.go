package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestClientEnvelopeParsing(t *testing.T) {
	raw := `{"event":"start-session","sourceLanguage":"ro-RO","targetLang":"en","mode":"talks","translationInterval":12000}`
	var env clientEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatal(err)
	}
	if env.Event != "start-session" || env.SourceLanguage != "ro-RO" || env.TargetLang != "en" {
		t.Errorf("parsed envelope = %+v", env)
	}
	if env.Mode != "talks" || env.TranslationInterval != 12000 {
		t.Errorf("mode/interval = %q/%d", env.Mode, env.TranslationInterval)
	}

	raw = `{"event":"transcript-result","text":"ceva text","isFinal":true}`
	env = clientEnvelope{}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatal(err)
	}
	if env.Event != "transcript-result" || env.Text != "ceva text" || !env.IsFinal {
		t.Errorf("parsed envelope = %+v", env)
	}
}

func TestRemoteIP(t *testing.T) {
	tests := []struct {
		addr     string
		expected string
	}{
		{"10.0.0.1:54321", "10.0.0.1"},
		{"[::1]:8080", "::1"},
		{"10.0.0.1", "10.0.0.1"}, // no port, returned as-is
	}
	for _, tt := range tests {
		req := &http.Request{RemoteAddr: tt.addr}
		if got := remoteIP(req); got != tt.expected {
			t.Errorf("remoteIP(%q) = %q, want %q", tt.addr, got, tt.expected)
		}
	}
}

func TestVerifyTokenDisabledWithoutSecret(t *testing.T) {
	r := &Router{cfg: RouterConfig{}}
	req, _ := http.NewRequest(http.MethodGet, "/session", nil)
	if err := r.verifyToken(req); err != nil {
		t.Errorf("verifyToken without secret = %v, want nil", err)
	}
}

func TestVerifyTokenRequiresToken(t *testing.T) {
	r := &Router{cfg: RouterConfig{JWTSecret: "secret"}}
	req, _ := http.NewRequest(http.MethodGet, "/session", nil)
	if err := r.verifyToken(req); err == nil {
		t.Error("verifyToken with secret but no token should fail")
	}

	req, _ = http.NewRequest(http.MethodGet, "/session?token=not-a-jwt", nil)
	if err := r.verifyToken(req); err == nil {
		t.Error("verifyToken with malformed token should fail")
	}
}
