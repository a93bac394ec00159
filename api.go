package cacheaside

import (
	"context"

	c "github.com/unkn0wn-root/cacheaside/codec"
	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// EntryOptions is the absolute/sliding expiration policy of one write.
type EntryOptions = pr.EntryOptions

// Manager is the typed cache-aside facade over a byte store.
// V is the caller's entity type. Serialization is handled by a pluggable Codec[V].
//
// Every operation comes in a strict form and a Try form. Strict forms fail with an
// error matching ErrInvalidArgument on a blank key; Try forms report the same
// condition as a false result. Store failures are returned unchanged by both.
type Manager[V any] interface {
	// TryGet reports a miss for a blank key, a missing entry, or an entry the codec
	// cannot decode. err is non-nil only when the store fails.
	TryGet(ctx context.Context, key string) (v V, ok bool, err error)
	// Get is like TryGet but rejects blank keys and returns *DecodeError for undecodable entries.
	Get(ctx context.Context, key string) (v V, ok bool, err error)

	// Set writes value under key. opts, when given, override the facade default;
	// otherwise the default applies, else the store default (no expiration).
	Set(ctx context.Context, key string, value V, opts ...EntryOptions) error
	TrySet(ctx context.Context, key string, value V, opts ...EntryOptions) (bool, error)

	// Refresh resets the sliding expiration of key.
	Refresh(ctx context.Context, key string) error
	TryRefresh(ctx context.Context, key string) (bool, error)

	Remove(ctx context.Context, key string) error
	TryRemove(ctx context.Context, key string) (bool, error)

	// DefaultEntryOptions is the facade-wide default applied by Set without explicit options.
	DefaultEntryOptions() EntryOptions
}

// Options configure a Manager. Only Store is required; it is shared and
// its lifetime is managed by the caller (Manager never closes it).
type Options[V any] struct {
	Store pr.Store
	Codec c.Codec[V] // nil => codec.Default[V]() (JSON)

	// DefaultEntryOptions apply to writes that carry no explicit options.
	// nil => store default (no expiration).
	DefaultEntryOptions *EntryOptions

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}

func New[V any](opts Options[V]) (Manager[V], error) {
	return newManager[V](opts)
}
