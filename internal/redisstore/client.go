// Package redisstore provides a Redis-backed ledger with optimistic
// concurrency, plus Pub/Sub delivery of paper events.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/papernet/pkg/ledger"
)

// Client provides instance-scoped ledger transactions over Redis.
// Every key read inside a transaction is WATCHed; if any of them changes
// before commit the transaction fails with *ledger.ConflictError.
// The client is safe for concurrent use.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

var _ ledger.Ledger = (*Client)(nil)

// NewClient creates a ledger client for the given instance.
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a client.
func NewClientFromURL(url, instanceName string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewClient(opts, instanceName)
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the namespace this client works in.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// Transact runs fn on a dedicated connection. Writes are buffered and applied
// with MULTI/EXEC; the index set is updated in the same EXEC.
func (c *Client) Transact(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txID := ledger.NewTxID()
	err := c.rdb.Watch(ctx, func(rtx *redis.Tx) error {
		ws := ledger.NewWriteSet(txID, &watchReader{c: c, rtx: rtx})
		if err := fn(ws); err != nil {
			return err
		}

		writes := ws.Writes()
		if len(writes) == 0 {
			return nil
		}

		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, kv := range writes {
				pipe.Set(ctx, StateKey(c.instanceName, kv.Key), kv.Value, 0)
				pipe.ZAdd(ctx, StateIndexKey(c.instanceName), redis.Z{Score: 0, Member: kv.Key})
			}
			return nil
		})
		return err
	})

	if errors.Is(err, redis.TxFailedErr) {
		return &ledger.ConflictError{TxID: txID, Err: err}
	}
	return err
}

// watchReader reads through the transaction connection, WATCHing every key
// before reading it.
type watchReader struct {
	c   *Client
	rtx *redis.Tx
}

func (r *watchReader) GetState(ctx context.Context, key string) ([]byte, error) {
	redisKey := StateKey(r.c.instanceName, key)
	if err := r.rtx.Watch(ctx, redisKey).Err(); err != nil {
		return nil, fmt.Errorf("failed to watch %q: %w", ledger.FormatKey(key), err)
	}

	value, err := r.rtx.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %q from Redis: %w", ledger.FormatKey(key), err)
	}
	return value, nil
}

// Scan lists keys under prefix from the index set. The index is WATCHed so a
// concurrent insert under any prefix aborts the transaction.
func (r *watchReader) Scan(ctx context.Context, prefix string) ([]ledger.KeyValue, error) {
	indexKey := StateIndexKey(r.c.instanceName)
	if err := r.rtx.Watch(ctx, indexKey).Err(); err != nil {
		return nil, fmt.Errorf("failed to watch state index: %w", err)
	}

	// Ledger keys are UTF-8 and never contain 0xff.
	keys, err := r.rtx.ZRangeByLex(ctx, indexKey, &redis.ZRangeBy{
		Min: "[" + prefix,
		Max: "(" + prefix + "\xff",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan state index: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = StateKey(r.c.instanceName, k)
	}
	if err := r.rtx.Watch(ctx, redisKeys...).Err(); err != nil {
		return nil, fmt.Errorf("failed to watch scanned keys: %w", err)
	}
	values, err := r.rtx.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read scanned keys: %w", err)
	}

	out := make([]ledger.KeyValue, 0, len(keys))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, ledger.KeyValue{Key: keys[i], Value: []byte(s)})
	}
	return out, nil
}
