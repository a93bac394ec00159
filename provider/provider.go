// Package provider defines the byte store used by cacheaside.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key. Expiration metadata
// (absolute/sliding) is owned by the store and never leaks into the value.
//
// A Store is shared by every typed facade in the process, so it must be safe
// for concurrent use. cacheaside never retries or buffers calls; whatever the
// store returns is what the caller sees.
package provider

import (
	"context"
	"time"
)

// Store is a byte-oriented key-value store with absolute and sliding expiration.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// A hit re-arms the sliding window of the entry, if any.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. Zero options mean "no expiration" (store default).
	Set(ctx context.Context, key string, value []byte, opts EntryOptions) error

	// Refresh resets the sliding expiration of key. Missing keys are a no-op.
	Refresh(ctx context.Context, key string) error

	// Remove deletes key. Missing keys are a no-op.
	Remove(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// EntryOptions carries the expiration policy of a single entry.
// Zero durations are "unset".
type EntryOptions struct {
	// Absolute is the lifetime of the entry measured from the write.
	Absolute time.Duration
	// Sliding is the idle window; every read or Refresh pushes expiry forward by Sliding,
	// never past the absolute deadline.
	Sliding time.Duration
}

// IsZero reports whether neither expiration is set.
func (o EntryOptions) IsZero() bool { return o.Absolute <= 0 && o.Sliding <= 0 }

// Deadlines converts the relative options into absolute instants anchored at now.
// A zero time means "no absolute deadline".
func (o EntryOptions) Deadlines(now time.Time) (absolute time.Time, sliding time.Duration) {
	if o.Absolute > 0 {
		absolute = now.Add(o.Absolute)
	}
	if o.Sliding > 0 {
		sliding = o.Sliding
	}
	return absolute, sliding
}

// ExpiryFrom returns the physical TTL an entry should carry at instant now,
// given its absolute deadline and sliding window. 0 means "no expiry";
// a negative value means the entry is already past its absolute deadline.
func ExpiryFrom(now, absolute time.Time, sliding time.Duration) time.Duration {
	var remaining time.Duration
	if !absolute.IsZero() {
		remaining = absolute.Sub(now)
		if remaining <= 0 {
			return -1
		}
	}
	switch {
	case sliding > 0 && remaining > 0:
		return min(sliding, remaining)
	case sliding > 0:
		return sliding
	default:
		return remaining
	}
}

// CheckContext returns ctx.Err() so implementations can bail out
// before the round trip when the caller already gave up.
func CheckContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
