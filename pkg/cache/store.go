package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Entry is a stored value together with its bookkeeping.
// Entries are handled by Store implementations only; ReadThrough never returns
// them to callers.
type Entry[V any] struct {
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"expires_at"`
	Data      V         `json:"data"`
	Version   string    `json:"version"`
}

// age reports how long ago the entry was stored.
func (e Entry[V]) age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// fresh reports whether the entry may be served on the primary path.
func (e Entry[V]) fresh(now time.Time, o Options) bool {
	return e.Version == o.Version &&
		e.age(now) <= o.MaxAge &&
		!now.After(e.ExpiresAt)
}

// usableStale reports whether the entry may be served after a failed fetch.
func (e Entry[V]) usableStale(now time.Time, o Options) bool {
	return e.Version == o.Version && e.age(now) <= 2*o.MaxAge
}

// Store is the storage port a ReadThrough cache runs on.
//
// Stores keep entries until they are deleted or their retention elapses;
// expiry decisions belong to ReadThrough.
type Store[V any] interface {
	// Load returns the entry for key. The bool is false when no entry exists.
	Load(ctx context.Context, key string) (Entry[V], bool, error)

	// Save stores an entry, replacing any previous one for key.
	// retain is a hint for how long the backend should keep the entry.
	Save(ctx context.Context, key string, e Entry[V], retain time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// DeleteFunc removes every entry for which fn returns true and reports how
	// many were removed.
	DeleteFunc(ctx context.Context, fn func(key string, e Entry[V]) bool) (int, error)

	// Range calls fn for every entry until fn returns false.
	Range(ctx context.Context, fn func(key string, e Entry[V]) bool) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// Marshaler serializes and deserializes entries for stores that need a byte
// representation (e.g., Redis).
type Marshaler[V any] interface {
	Marshal(e Entry[V]) ([]byte, error)
	Unmarshal(data []byte) (Entry[V], error)
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(e Entry[V]) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (Entry[V], error) {
	var e Entry[V]
	if err := json.Unmarshal(data, &e); err != nil {
		return e, errors.Join(ErrUnmarshal, err)
	}
	return e, nil
}
