package cacheaside

import (
	"context"
	"errors"

	c "github.com/unkn0wn-root/cacheaside/codec"
	pr "github.com/unkn0wn-root/cacheaside/provider"
)

type manager[V any] struct {
	store    pr.Store
	codec    c.Codec[V]
	defaults EntryOptions
	log      Logger
	hooks    Hooks
}

var _ Manager[struct{}] = (*manager[struct{}])(nil)

func newManager[V any](opts Options[V]) (*manager[V], error) {
	if opts.Store == nil {
		return nil, &ArgumentError{Name: "Store", Reason: "is required"}
	}

	m := &manager[V]{store: opts.Store}

	// defaults
	m.codec = coalesce[c.Codec[V]](opts.Codec, c.Default[V]())
	m.log = coalesce[Logger](opts.Logger, NopLogger{})
	m.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.DefaultEntryOptions != nil {
		m.defaults = *opts.DefaultEntryOptions
	}
	return m, nil
}

func (m *manager[V]) DefaultEntryOptions() EntryOptions { return m.defaults }

func (m *manager[V]) TryGet(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if blank(key) {
		return zero, false, nil
	}
	v, ok, err := m.get(ctx, key)
	var de *DecodeError
	if errors.As(err, &de) {
		// corrupt or incompatible payload is a miss here
		return zero, false, nil
	}
	return v, ok, err
}

func (m *manager[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if blank(key) {
		return zero, false, ErrInvalidKey
	}
	return m.get(ctx, key)
}

func (m *manager[V]) get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.storeFailed("get", key, err)
		return zero, false, err
	}
	if !ok || raw == nil {
		m.hooks.Miss(key)
		m.log.Debug("cache miss", Fields{"key": key})
		return zero, false, nil
	}
	v, err := m.codec.Decode(raw)
	if err != nil {
		m.hooks.DecodeFailed(key, err)
		m.log.Warn("cached payload could not be decoded", Fields{"key": key, "size": len(raw), "err": err})
		return zero, false, &DecodeError{Key: key, Err: err}
	}
	m.hooks.Hit(key)
	m.log.Debug("cache hit", Fields{"key": key})
	return v, true, nil
}

func (m *manager[V]) Set(ctx context.Context, key string, value V, opts ...EntryOptions) error {
	if blank(key) {
		return ErrInvalidKey
	}
	return m.set(ctx, key, value, opts)
}

func (m *manager[V]) TrySet(ctx context.Context, key string, value V, opts ...EntryOptions) (bool, error) {
	if blank(key) {
		return false, nil
	}
	if err := m.set(ctx, key, value, opts); err != nil {
		return false, err
	}
	return true, nil
}

func (m *manager[V]) set(ctx context.Context, key string, value V, opts []EntryOptions) error {
	if isNil(value) {
		return &ArgumentError{Name: "value", Reason: "must not be nil"}
	}
	payload, err := m.codec.Encode(value)
	if err != nil {
		return &EncodeError{Key: key, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	eo := m.resolve(opts)
	if err := m.store.Set(ctx, key, payload, eo); err != nil {
		m.storeFailed("set", key, err)
		return err
	}
	m.hooks.Stored(key, len(payload))
	m.log.Debug("cache set", Fields{"key": key, "size": len(payload), "absolute": eo.Absolute, "sliding": eo.Sliding})
	return nil
}

// resolve applies the fixed order: call-site options, facade default, store default.
func (m *manager[V]) resolve(opts []EntryOptions) EntryOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return m.defaults
}

func (m *manager[V]) Refresh(ctx context.Context, key string) error {
	if blank(key) {
		return ErrInvalidKey
	}
	return m.refresh(ctx, key)
}

func (m *manager[V]) TryRefresh(ctx context.Context, key string) (bool, error) {
	if blank(key) {
		return false, nil
	}
	if err := m.refresh(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

func (m *manager[V]) refresh(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.store.Refresh(ctx, key); err != nil {
		m.storeFailed("refresh", key, err)
		return err
	}
	return nil
}

func (m *manager[V]) Remove(ctx context.Context, key string) error {
	if blank(key) {
		return ErrInvalidKey
	}
	return m.remove(ctx, key)
}

func (m *manager[V]) TryRemove(ctx context.Context, key string) (bool, error) {
	if blank(key) {
		return false, nil
	}
	if err := m.remove(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

func (m *manager[V]) remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.store.Remove(ctx, key); err != nil {
		m.storeFailed("remove", key, err)
		return err
	}
	m.log.Debug("cache remove", Fields{"key": key})
	return nil
}

func (m *manager[V]) storeFailed(op, key string, err error) {
	m.hooks.StoreError(op, key, err)
	m.log.Error("cache store error", Fields{"op": op, "key": key, "err": err})
}
