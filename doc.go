// Package cacheaside implements a typed cache-aside facade over a byte-oriented
// key-value store, plus the key derivation used by the declarative interceptor.
//
// Components:
//   - provider.Store: byte store with absolute/sliding expiration (Redis, Ristretto, BigCache).
//   - codec.Codec[V]: (de)serializes V <-> []byte. JSON by default.
//   - Manager[V]: typed Get/Set/Refresh/Remove with Try twins and key validation.
//   - keys.Resolver: derives a cache key from a strategy and the live request.
//   - interceptor.Interceptor[V]: short-circuits a handler on hit, stores its result on success.
//
// Expiration order for a write:
//
//	explicit options passed to Set  >  Options.DefaultEntryOptions  >  store default (none)
//
// Misses are never errors: a blank key, an absent entry or an undecodable payload
// make TryGet return ok=false. Get additionally rejects blank keys (ErrInvalidKey)
// and surfaces decode failures as *DecodeError.
//
// Usage:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store, _ := redisprovider.New(redisprovider.Config{Client: rdb, InstanceName: "app:"})
//	books, _ := cacheaside.New[Book](cacheaside.Options[Book]{
//	    Store:               store,
//	    DefaultEntryOptions: &cacheaside.EntryOptions{Sliding: 24 * time.Hour},
//	})
//	if b, ok, _ := books.TryGet(ctx, "book-key"); ok {
//	    return b
//	}
package cacheaside
