package cacheaside

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The facade calls them on hot paths.
type Hooks interface {
	// A read found and decoded an entry.
	Hit(key string)
	// A read found nothing under key.
	Miss(key string)
	// Bytes were present but the codec rejected them.
	DecodeFailed(key string, err error)
	// An entry of size bytes was written.
	Stored(key string, size int)
	// The store failed. op ∈ {"get", "set", "refresh", "remove"}.
	StoreError(op, key string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                       {}
func (NopHooks) Miss(string)                      {}
func (NopHooks) DecodeFailed(string, error)       {}
func (NopHooks) Stored(string, int)               {}
func (NopHooks) StoreError(string, string, error) {}
