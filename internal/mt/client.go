package mt

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	translate "cloud.google.com/go/translate/apiv3"
	"cloud.google.com/go/translate/apiv3/translatepb"
	"github.com/patrickmn/go-cache"
	"google.golang.org/api/option"
)

// Config holds the Google Cloud Translation settings for one server process.
type Config struct {
	ProjectID       string
	Location        string // e.g. "global" or "us-central1"
	GlossaryEnabled bool
	Model           string // "nmt" or "advanced"
	CacheTTL        time.Duration
}

// Client wraps the Translation v3 API with glossary selection, retry with
// backoff, and a short-lived response cache keyed on the full source text.
type Client struct {
	api    translationAPI
	cfg    Config
	cache  *cache.Cache
	logger *log.Logger
}

// translationAPI is the surface of translate.TranslationClient the client
// uses; tests substitute a fake.
type translationAPI interface {
	TranslateText(ctx context.Context, req *translatepb.TranslateTextRequest, opts ...gaxOption) (*translatepb.TranslateTextResponse, error)
}

// gaxOption mirrors gax.CallOption without importing gax into the interface.
type gaxOption = interface{}

type googleAPI struct {
	c *translate.TranslationClient
}

func (g googleAPI) TranslateText(ctx context.Context, req *translatepb.TranslateTextRequest, _ ...gaxOption) (*translatepb.TranslateTextResponse, error) {
	return g.c.TranslateText(ctx, req)
}

const defaultCacheTTL = 30 * time.Second

// NewClient dials the Translation service. Credential options come from the
// app layer so that the three credential channels resolve in one place.
func NewClient(ctx context.Context, cfg Config, logger *log.Logger, opts ...option.ClientOption) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("mt: GOOGLE_CLOUD_PROJECT is required")
	}
	if cfg.Location == "" {
		cfg.Location = "global"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	api, err := translate.NewTranslationClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("mt: dial translation service: %w", err)
	}

	return &Client{
		api:    googleAPI{api},
		cfg:    cfg,
		cache:  cache.New(cfg.CacheTTL, time.Minute),
		logger: logger,
	}, nil
}

func (c *Client) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.cfg.ProjectID, c.cfg.Location)
}

// glossaryFor returns the glossary resource name for a language pair, or ""
// when no glossary applies. Only the ro↔en pair has glossaries.
func (c *Client) glossaryFor(source, target string) string {
	if !c.cfg.GlossaryEnabled {
		return ""
	}
	src := baseLang(source)
	tgt := baseLang(target)
	switch {
	case src == "ro" && tgt == "en":
		return c.parent() + "/glossaries/ro_en_glossary"
	case src == "en" && tgt == "ro":
		return c.parent() + "/glossaries/en_ro_glossary"
	}
	return ""
}

func baseLang(tag string) string {
	tag = strings.ToLower(tag)
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}

func (c *Client) modelName() string {
	if c.cfg.Model == "nmt" {
		return c.parent() + "/models/general/nmt"
	}
	// "advanced" uses the service default model.
	return ""
}

// Translate sends the full text and returns the translated text, retrying
// transient failures with exponential backoff. A glossary-related failure
// disables the glossary for this call only, without consuming an attempt.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	cacheKey := sourceLang + "|" + targetLang + "|" + text
	if v, ok := c.cache.Get(cacheKey); ok {
		return v.(string), nil
	}

	glossary := c.glossaryFor(sourceLang, targetLang)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req := &translatepb.TranslateTextRequest{
			Parent:             c.parent(),
			Contents:           []string{text},
			MimeType:           "text/plain",
			SourceLanguageCode: sourceLang,
			TargetLanguageCode: targetLang,
			Model:              c.modelName(),
		}
		if glossary != "" {
			req.GlossaryConfig = &translatepb.TranslateTextGlossaryConfig{
				Glossary:   glossary,
				IgnoreCase: true,
			}
		}

		resp, err := c.api.TranslateText(ctx, req)
		if err == nil {
			out := pickTranslation(resp, glossary != "")
			c.cache.Set(cacheKey, out, cache.DefaultExpiration)
			return out, nil
		}
		lastErr = err

		if glossary != "" && isGlossaryError(err) {
			c.logger.Printf("mt: glossary unavailable, retrying without it: %v", err)
			glossary = ""
			attempt-- // the glossary fallback does not count as an attempt
			continue
		}

		if !isRetryable(err) {
			return "", fmt.Errorf("mt: translate: %w", err)
		}

		delay := backoffDelay(attempt)
		c.logger.Printf("mt: transient error (attempt %d/%d), backing off %s: %v",
			attempt+1, maxAttempts, delay, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("mt: translate failed after %d attempts: %w", maxAttempts, lastErr)
}

// pickTranslation prefers the glossary-aware translation when the request
// carried a glossary and the service returned one.
func pickTranslation(resp *translatepb.TranslateTextResponse, usedGlossary bool) string {
	if usedGlossary && len(resp.GetGlossaryTranslations()) > 0 {
		if t := resp.GetGlossaryTranslations()[0].GetTranslatedText(); t != "" {
			return t
		}
	}
	if len(resp.GetTranslations()) > 0 {
		return resp.GetTranslations()[0].GetTranslatedText()
	}
	return ""
}
