// Package ledger wraps the external append-only ledger every state-changing
// grievance event is mirrored to. The core only depends on the Recorder
// interface; the contract-backed implementation and the mock used when no
// chain is configured both live here.
package ledger

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a recorder has no usable backend.
var ErrNotConfigured = errors.New("ledger recorder not configured")

// Receipt is the confirmation returned for a recorded event.
type Receipt struct {
	// TxHash is the externally assigned transaction identifier.
	TxHash string
	// BlockNumber is nil while the ledger has not reported a final block.
	BlockNumber *string
}

// Recorder submits one event to the ledger and waits for confirmation.
// Implementations must be retry-safe: a failed Record leaves no usable
// receipt and may be called again with the same subject.
type Recorder interface {
	Record(ctx context.Context, subjectID string, payload []byte) (Receipt, error)
}
