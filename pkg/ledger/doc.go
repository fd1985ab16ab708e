// Package ledger provides the key-value abstractions papernet entities are
// stored through, and a generic typed collection built on top of them.
//
// # Overview
//
// A ledger is any store that offers get/put of byte values scoped to a
// transaction. The host (a Fabric peer, a SQLite file, a Redis server, or the
// in-memory implementation used in tests) owns the transaction boundary; this
// package only defines the contract:
//
//	type KV interface {
//		GetState(ctx context.Context, key string) ([]byte, error) // nil, nil when absent
//		PutState(ctx context.Context, key string, value []byte) error
//	}
//
// Ledger.Transact runs a function against a Tx (a KV with a transaction ID).
// Writes made inside the function become visible atomically when it returns
// nil and are discarded otherwise.
//
// # Composite Keys
//
// Entities are stored under composite keys built from a class identifier and
// the entity's identity tuple, joined by U+0000:
//
//	org.papernet.importPaper\x00ACME\x001
//
// Components may not contain U+0000, which keeps the encoding injective.
//
// # Collections
//
// Collection[T] turns raw get/put into typed Add/Get/Update with existence
// guarantees:
//
//	papers := ledger.NewCollection(tx, "org.papernet.importPaper", paper.Deserialize)
//	if err := papers.Add(ctx, p); err != nil {
//		// ledger.ErrDuplicateKey when the key is taken
//	}
//
// A Collection holds no state of its own; every call goes to the KV.
package ledger
