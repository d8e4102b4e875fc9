package translatelog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxTextChars = 1000

	// Retention: 45 minutes or 500 rows, whichever is smaller. Cleanup is
	// lazy, piggybacked on every append.
	retention = 45 * time.Minute
	maxRows   = 500
)

// Row is one persisted translation event.
type Row struct {
	SessionID      string
	ClientID       string
	SourceText     string
	TranslatedText string
	SourceLanguage string
	TargetLanguage string
	Reason         string
	AppVersion     string
}

// Logger is the append-only debug sink for emitted translations. All writes
// are best-effort; a nil pool disables persistence entirely.
type Logger struct {
	db         *pgxpool.Pool
	appVersion string
}

func New(db *pgxpool.Pool, appVersion string) *Logger {
	return &Logger{db: db, appVersion: appVersion}
}

// Append inserts one row and lazily enforces retention.
func (l *Logger) Append(ctx context.Context, row Row) error {
	if l.db == nil {
		return nil
	}
	if row.AppVersion == "" {
		row.AppVersion = l.appVersion
	}

	_, err := l.db.Exec(ctx, `
		INSERT INTO translation_log
			(session_id, client_id, source_text, translated_text,
			 source_language, target_language, reason, app_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`, row.SessionID, row.ClientID,
		truncate(row.SourceText), truncate(row.TranslatedText),
		row.SourceLanguage, row.TargetLanguage, row.Reason, row.AppVersion)
	if err != nil {
		return err
	}

	_, _ = l.db.Exec(ctx, `
		DELETE FROM translation_log
		WHERE created_at < now() - make_interval(mins => $1)
	`, int(retention.Minutes()))

	_, _ = l.db.Exec(ctx, `
		DELETE FROM translation_log WHERE id NOT IN (
			SELECT id FROM translation_log ORDER BY created_at DESC LIMIT $1
		)
	`, maxRows)

	return nil
}

// AppendAsync persists without blocking the pipeline; failures are dropped.
func (l *Logger) AppendAsync(row Row) {
	if l.db == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Append(ctx, row)
	}()
}

// truncate caps persisted text fields.
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTextChars {
		return s
	}
	return string(r[:maxTextChars])
}
