package chaincode

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/hyperledger/fabric-chaincode-go/shim"

	"github.com/dyluth/papernet/pkg/ledger"
	"github.com/dyluth/papernet/pkg/paper"
)

// stubLedger runs contract operations against the Fabric world state of one
// invocation. Fabric records the read/write set and validates it at commit,
// so Transact only buffers writes until fn succeeds.
type stubLedger struct {
	stub shim.ChaincodeStubInterface
}

var _ ledger.Ledger = stubLedger{}

func (l stubLedger) Transact(ctx context.Context, fn func(tx ledger.Tx) error) error {
	ws := ledger.NewWriteSet(l.stub.GetTxID(), stubReader{stub: l.stub})
	if err := fn(ws); err != nil {
		return err
	}
	for _, kv := range ws.Writes() {
		if err := l.stub.PutState(kv.Key, kv.Value); err != nil {
			return fmt.Errorf("failed to put state %q: %w", ledger.FormatKey(kv.Key), err)
		}
	}
	return nil
}

type stubReader struct {
	stub shim.ChaincodeStubInterface
}

func (r stubReader) GetState(_ context.Context, key string) ([]byte, error) {
	return r.stub.GetState(key)
}

func (r stubReader) Scan(_ context.Context, prefix string) ([]ledger.KeyValue, error) {
	iter, err := r.stub.GetStateByRange(prefix, prefix+string(utf8.MaxRune))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []ledger.KeyValue
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, ledger.KeyValue{Key: kv.Key, Value: kv.Value})
	}
	return out, nil
}

// stubPublisher turns paper events into chaincode events. Fabric keeps only
// the last event set in a transaction; each contract call emits one.
type stubPublisher struct {
	stub shim.ChaincodeStubInterface
}

func (p stubPublisher) Publish(_ context.Context, event paper.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal paper event: %w", err)
	}
	return p.stub.SetEvent(EventName(event.Action), payload)
}

// EventName returns the chaincode event name used for action.
func EventName(action paper.Action) string {
	return "papernet." + string(action)
}
