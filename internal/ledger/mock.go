package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// MockRecorder issues placeholder transaction hashes without touching a
// chain. Used in development deployments and tests.
type MockRecorder struct{}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

// Record returns a random 32-byte hash and a random block number. It never
// fails.
func (m *MockRecorder) Record(ctx context.Context, subjectID string, payload []byte) (Receipt, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return Receipt{}, fmt.Errorf("generate mock hash: %w", err)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return Receipt{}, fmt.Errorf("generate mock block number: %w", err)
	}
	block := n.String()
	return Receipt{TxHash: "0x" + hex.EncodeToString(buf), BlockNumber: &block}, nil
}
