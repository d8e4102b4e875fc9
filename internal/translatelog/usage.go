package translatelog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// maxUsagePerRequest caps a single usage increment so one malformed request
// cannot inflate the counters.
const maxUsagePerRequest = 10000

// UsageTracker is a write-only counter sink for translated characters.
type UsageTracker struct {
	db *pgxpool.Pool
}

func NewUsageTracker(db *pgxpool.Pool) *UsageTracker {
	return &UsageTracker{db: db}
}

// Add records translated characters for a client. Values are clamped per
// request; failures are non-fatal and swallowed by callers.
func (u *UsageTracker) Add(ctx context.Context, clientID string, chars int) error {
	if u.db == nil || clientID == "" || chars <= 0 {
		return nil
	}
	if chars > maxUsagePerRequest {
		chars = maxUsagePerRequest
	}

	_, err := u.db.Exec(ctx, `
		INSERT INTO usage_counters (client_id, translated_chars, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (client_id) DO UPDATE
		SET translated_chars = usage_counters.translated_chars + EXCLUDED.translated_chars,
		    updated_at = now()
	`, clientID, chars)
	return err
}
