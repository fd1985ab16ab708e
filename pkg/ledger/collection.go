package ledger

import (
	"context"
	"fmt"
)

// Entity is a value a Collection can store. Key must depend only on the
// entity's identity fields.
type Entity interface {
	Key() string
	Serialize() ([]byte, error)
}

// Decoder rebuilds an entity from its serialized form. It must return a
// *DeserializationError when data does not describe an entity of class.
type Decoder[T Entity] func(data []byte, class string) (T, error)

// Collection provides typed CRUD for one entity class over a KV.
// It keeps no state between calls.
type Collection[T Entity] struct {
	kv     KV
	class  string
	decode Decoder[T]
}

// NewCollection creates a collection of class entities stored in kv.
func NewCollection[T Entity](kv KV, class string, decode Decoder[T]) *Collection[T] {
	return &Collection[T]{
		kv:     kv,
		class:  class,
		decode: decode,
	}
}

// Class returns the collection's namespace.
func (c *Collection[T]) Class() string {
	return c.class
}

// Add stores a new entity. Returns *DuplicateKeyError if its key is taken.
func (c *Collection[T]) Add(ctx context.Context, e T) error {
	key := e.Key()

	exists, err := c.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return &DuplicateKeyError{Key: key}
	}

	return c.put(ctx, key, e)
}

// Get loads the entity stored at key. Returns *NotFoundError if the key is
// absent; decoder errors are returned unchanged. An entry whose decoded key
// differs from key is a *DeserializationError.
func (c *Collection[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	data, err := c.kv.GetState(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("failed to read %q: %w", FormatKey(key), err)
	}
	if len(data) == 0 {
		return zero, &NotFoundError{Key: key}
	}

	e, err := c.decode(data, c.class)
	if err != nil {
		return zero, err
	}
	if e.Key() != key {
		return zero, &DeserializationError{
			Class:  c.class,
			Reason: fmt.Sprintf("entry at %q names key %q", FormatKey(key), FormatKey(e.Key())),
		}
	}
	return e, nil
}

// Update overwrites an existing entity. Returns *NotFoundError if nothing is
// stored at its key; Update never creates entries.
func (c *Collection[T]) Update(ctx context.Context, e T) error {
	key := e.Key()

	exists, err := c.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{Key: key}
	}

	return c.put(ctx, key, e)
}

// Exists reports whether an entry is stored at key.
func (c *Collection[T]) Exists(ctx context.Context, key string) (bool, error) {
	data, err := c.kv.GetState(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %q: %w", FormatKey(key), err)
	}
	return len(data) > 0, nil
}

// List returns every entity whose key starts with the collection class
// followed by parts, ordered by key. The KV must implement Scanner.
func (c *Collection[T]) List(ctx context.Context, parts ...string) ([]T, error) {
	scanner, ok := c.kv.(Scanner)
	if !ok {
		return nil, ErrScanUnsupported
	}

	prefix, err := KeyPrefix(c.class, parts...)
	if err != nil {
		return nil, err
	}

	entries, err := scanner.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %q: %w", FormatKey(prefix), err)
	}

	out := make([]T, 0, len(entries))
	for _, kv := range entries {
		e, err := c.decode(kv.Value, c.class)
		if err != nil {
			return nil, err
		}
		if e.Key() != kv.Key {
			return nil, &DeserializationError{
				Class:  c.class,
				Reason: fmt.Sprintf("entry at %q names key %q", FormatKey(kv.Key), FormatKey(e.Key())),
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Collection[T]) put(ctx context.Context, key string, e T) error {
	data, err := e.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize %q: %w", FormatKey(key), err)
	}
	if err := c.kv.PutState(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %q: %w", FormatKey(key), err)
	}
	return nil
}
