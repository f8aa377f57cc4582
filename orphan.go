package mediarouter

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// OrphanReason tells why objects were left without a record.
type OrphanReason string

const (
	OrphanRollbackFailed OrphanReason = "rollback-failed"
	OrphanDeleteFailed   OrphanReason = "delete-failed"
	OrphanPartialWrite   OrphanReason = "partial-write"
)

// Orphan describes stored objects that no MediaRecord references.
type Orphan struct {
	ProviderID ProviderID   `json:"provider_id"`
	Keys       []string     `json:"keys"`
	Reason     OrphanReason `json:"reason"`
	Cause      string       `json:"cause,omitempty"`
	DetectedAt time.Time    `json:"detected_at"`
	Attempts   int          `json:"attempts,omitempty"`
}

// LogOrphanReporter writes orphans to the log for operator follow-up.
type LogOrphanReporter struct {
	Log zerolog.Logger
}

func (r LogOrphanReporter) Report(_ context.Context, orphan Orphan) error {
	r.Log.Warn().
		Str("provider", orphan.ProviderID.String()).
		Strs("keys", orphan.Keys).
		Str("reason", string(orphan.Reason)).
		Str("cause", orphan.Cause).
		Msg("orphaned objects need cleanup")
	return nil
}
