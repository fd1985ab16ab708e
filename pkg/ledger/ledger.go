package ledger

import (
	"context"

	"github.com/google/uuid"
)

// KV is the transaction-scoped key-value interface entities are stored through.
// GetState returns (nil, nil) when the key is absent, matching the Fabric shim.
type KV interface {
	GetState(ctx context.Context, key string) ([]byte, error)
	PutState(ctx context.Context, key string, value []byte) error
}

// KeyValue is one entry returned by a range scan.
type KeyValue struct {
	Key   string
	Value []byte
}

// Scanner is implemented by KVs that can enumerate keys by prefix.
// Results are ordered by key.
type Scanner interface {
	Scan(ctx context.Context, prefix string) ([]KeyValue, error)
}

// Tx is a KV bound to one transaction.
type Tx interface {
	KV
	TxID() string
}

// Ledger runs functions inside transactions. Writes made through the Tx are
// committed atomically when fn returns nil and discarded when it returns an
// error. Implementations serialize or reject (with ErrConflict) concurrent
// transactions touching the same keys.
type Ledger interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

// NewTxID generates a transaction identifier for ledgers that do not receive
// one from a host runtime.
func NewTxID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
