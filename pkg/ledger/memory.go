package ledger

import (
	"context"
	"strings"
	"sync"
)

// MemoryLedger is an in-process Ledger. Transactions run one at a time under a
// single mutex, so concurrent transactions on the same key are serialized.
type MemoryLedger struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{data: make(map[string][]byte)}
}

// Transact runs fn against a write set and applies its writes if fn succeeds.
// fn must not call Transact on the same ledger.
func (m *MemoryLedger) Transact(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	ws := NewWriteSet(NewTxID(), memoryReader{m})
	if err := fn(ws); err != nil {
		return err
	}

	for _, kv := range ws.Writes() {
		m.data[kv.Key] = kv.Value
	}
	return nil
}

// Raw returns a copy of the stored value at key, bypassing transactions.
func (m *MemoryLedger) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return cloneBytes(v), ok
}

// SetRaw stores value at key outside any transaction.
func (m *MemoryLedger) SetRaw(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = cloneBytes(value)
}

// Len returns the number of stored entries.
func (m *MemoryLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// memoryReader reads the committed map. The caller holds m.mu.
type memoryReader struct {
	m *MemoryLedger
}

func (r memoryReader) GetState(_ context.Context, key string) ([]byte, error) {
	return cloneBytes(r.m.data[key]), nil
}

func (r memoryReader) Scan(_ context.Context, prefix string) ([]KeyValue, error) {
	matched := make(map[string][]byte)
	for k, v := range r.m.data {
		if strings.HasPrefix(k, prefix) {
			matched[k] = cloneBytes(v)
		}
	}
	return sortedEntries(matched), nil
}
