package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditOutcomeSuccess marks a committed operation. Failed attempts carry the
// error code instead.
const AuditOutcomeSuccess = "SUCCESS"

// AuditEntry journals one mutating attempt, successful or not.
type AuditEntry struct {
	ID         uuid.UUID `json:"id"`
	Actor      Identity  `json:"actor"`
	Action     Operation `json:"action"`
	Outcome    string    `json:"outcome"`
	ResourceID string    `json:"resource_id,omitempty"` // mint or transfer id on success
	Details    string    `json:"details,omitempty"`     // JSON string
	CreatedAt  time.Time `json:"created_at"`
}

// Succeeded reports whether the journaled attempt committed.
func (e *AuditEntry) Succeeded() bool {
	return e.Outcome == AuditOutcomeSuccess
}
