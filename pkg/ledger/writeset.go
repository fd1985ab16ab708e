package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Reader is the read side of a backing store, used by WriteSet.
type Reader interface {
	GetState(ctx context.Context, key string) ([]byte, error)
}

// WriteSet buffers the writes of one transaction on top of a Reader.
// Reads see the transaction's own buffered writes first. Ledgers apply
// Writes() to their backing store on commit.
type WriteSet struct {
	txID   string
	base   Reader
	writes map[string][]byte
	order  []string
}

var _ Tx = (*WriteSet)(nil)
var _ Scanner = (*WriteSet)(nil)

// NewWriteSet creates an empty write set for txID over base.
func NewWriteSet(txID string, base Reader) *WriteSet {
	return &WriteSet{
		txID:   txID,
		base:   base,
		writes: make(map[string][]byte),
	}
}

// TxID returns the transaction identifier.
func (w *WriteSet) TxID() string {
	return w.txID
}

// GetState returns the buffered value for key, or reads it from the base.
func (w *WriteSet) GetState(ctx context.Context, key string) ([]byte, error) {
	if v, ok := w.writes[key]; ok {
		return cloneBytes(v), nil
	}
	return w.base.GetState(ctx, key)
}

// PutState buffers value under key. Empty values are rejected because an
// empty value reads back as absent.
func (w *WriteSet) PutState(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	if len(value) == 0 {
		return fmt.Errorf("value for key %q cannot be empty", FormatKey(key))
	}
	if _, seen := w.writes[key]; !seen {
		w.order = append(w.order, key)
	}
	w.writes[key] = cloneBytes(value)
	return nil
}

// Scan merges the base store's entries under prefix with buffered writes.
// Returns ErrScanUnsupported if the base cannot scan.
func (w *WriteSet) Scan(ctx context.Context, prefix string) ([]KeyValue, error) {
	scanner, ok := w.base.(Scanner)
	if !ok {
		return nil, ErrScanUnsupported
	}
	entries, err := scanner.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}

	merged := make(map[string][]byte, len(entries))
	for _, e := range entries {
		merged[e.Key] = e.Value
	}
	for k, v := range w.writes {
		if strings.HasPrefix(k, prefix) {
			merged[k] = cloneBytes(v)
		}
	}

	return sortedEntries(merged), nil
}

// Writes returns the buffered writes in first-write order.
func (w *WriteSet) Writes() []KeyValue {
	out := make([]KeyValue, 0, len(w.order))
	for _, k := range w.order {
		out = append(out, KeyValue{Key: k, Value: cloneBytes(w.writes[k])})
	}
	return out
}

// Keys returns the keys written in this transaction.
func (w *WriteSet) Keys() []string {
	return append([]string(nil), w.order...)
}

func sortedEntries(m map[string][]byte) []KeyValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, KeyValue{Key: k, Value: m[k]})
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
