package domain

import (
	"time"

	"github.com/google/uuid"
)

// CommandRecord is the committed outcome of a chat command that carried an id.
// A key is recorded at most once; later deliveries replay Result unchanged.
type CommandRecord struct {
	Key        string    `json:"key"`
	Operation  Operation `json:"operation"`
	ResourceID uuid.UUID `json:"resource_id"` // mint or transfer id
	Result     []byte    `json:"result"`      // JSON of the committed Mint or Transfer
	CreatedAt  time.Time `json:"created_at"`
}

// Completed reports whether the command's result has been stored.
func (r *CommandRecord) Completed() bool {
	return r != nil && len(r.Result) > 0
}
