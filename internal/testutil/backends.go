// Package testutil provides ledgers for tests that must behave the same on
// every storage backend.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/papernet/internal/redisstore"
	"github.com/dyluth/papernet/internal/sqlitestore"
	"github.com/dyluth/papernet/pkg/ledger"
)

// Backend is a named, empty ledger. Resources are released by t.Cleanup.
type Backend struct {
	Name   string
	Ledger ledger.Ledger
}

// MemoryBackend returns a fresh in-process ledger.
func MemoryBackend(t *testing.T) Backend {
	t.Helper()
	return Backend{Name: "memory", Ledger: ledger.NewMemoryLedger()}
}

// SQLiteBackend returns a ledger in a new database file under t.TempDir().
func SQLiteBackend(t *testing.T) Backend {
	t.Helper()

	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "papernet.db"))
	require.NoError(t, err, "Failed to open sqlite ledger")
	t.Cleanup(func() { store.Close() })

	return Backend{Name: "sqlite", Ledger: store}
}

// RedisBackend returns a ledger on a private miniredis server, and the
// client so callers can also publish or subscribe.
func RedisBackend(t *testing.T) (Backend, *redisstore.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redisstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err, "Failed to create redis client")
	t.Cleanup(func() { client.Close() })

	return Backend{Name: "redis", Ledger: client}, client
}

// AllBackends returns one fresh ledger per backend.
func AllBackends(t *testing.T) []Backend {
	t.Helper()
	redisBackend, _ := RedisBackend(t)
	return []Backend{MemoryBackend(t), SQLiteBackend(t), redisBackend}
}
