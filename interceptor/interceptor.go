// Package interceptor wraps a single handler invocation in cache-aside semantics.
//
// Flow for one invocation:
//
//	resolve key -> TryGet
//	  hit  -> result slot = cached entity, handler never runs
//	  miss -> run handler once -> 200 with a V payload ? Set(key, V) : skip
//
// Requests rejected by upstream validation bypass the cache entirely.
package interceptor

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/unkn0wn-root/cacheaside"
	"github.com/unkn0wn-root/cacheaside/keys"
)

// Response is what the rest of the pipeline produced.
type Response struct {
	Status  int
	Payload any
}

// Invocation is the live context of one handler call.
type Invocation struct {
	// Args exposes bound request arguments (route, query, models) by name.
	Args keys.Arguments
	// Identity is the stable name of the handler, e.g. its route pattern.
	Identity string
	// ValidationFailed is set when the request was rejected upstream.
	ValidationFailed bool
	// Result is written on a cache hit.
	Result *Response
}

// Next runs the remainder of the pipeline.
type Next func(ctx context.Context) (*Response, error)

// State is a step of the interception state machine.
type State uint8

const (
	KeyResolved State = iota + 1
	ShortCircuited
	HandlerInvoked
	Persisted
	Skipped
	Bypassed
)

func (s State) String() string {
	switch s {
	case KeyResolved:
		return "key_resolved"
	case ShortCircuited:
		return "short_circuited"
	case HandlerInvoked:
		return "handler_invoked"
	case Persisted:
		return "persisted"
	case Skipped:
		return "skipped"
	case Bypassed:
		return "bypassed"
	default:
		return "unknown"
	}
}

// Config binds a key strategy to an interceptor at registration time.
type Config struct {
	Strategy keys.Strategy
	Prefix   string // optional; see keys.Resolver

	Logger cacheaside.Logger // if nil, NopLogger is used
	// OnState observes every transition. Must be cheap.
	OnState func(key string, s State)
}

type Interceptor[V any] struct {
	cache    cacheaside.Manager[V]
	resolver keys.Resolver
	log      cacheaside.Logger
	onState  func(string, State)
}

func New[V any](cache cacheaside.Manager[V], cfg Config) (*Interceptor[V], error) {
	if cache == nil {
		return nil, &cacheaside.ArgumentError{Name: "cache", Reason: "is required"}
	}
	ic := &Interceptor[V]{
		cache:    cache,
		resolver: keys.NewResolver(cfg.Strategy, cfg.Prefix),
		log:      cfg.Logger,
		onState:  cfg.OnState,
	}
	if ic.log == nil {
		ic.log = cacheaside.NopLogger{}
	}
	if err := cfg.Strategy.Validate(); err != nil {
		// resolution still works; every call will use the fallback key
		ic.log.Warn("cache key strategy always falls back to handler identity",
			cacheaside.Fields{"strategy": cfg.Strategy.String(), "err": err})
	}
	return ic, nil
}

// Resolver exposes the bound key resolver.
func (ic *Interceptor[V]) Resolver() keys.Resolver { return ic.resolver }

// Handle runs next at most once. On a hit it writes inv.Result and returns it
// without calling next. Store failures are returned; when the failure happens
// while persisting, the handler's response is returned alongside the error.
func (ic *Interceptor[V]) Handle(ctx context.Context, inv *Invocation, next Next) (*Response, error) {
	if inv == nil {
		return nil, &cacheaside.ArgumentError{Name: "inv", Reason: "must not be nil"}
	}
	if next == nil {
		return nil, &cacheaside.ArgumentError{Name: "next", Reason: "must not be nil"}
	}
	if strings.TrimSpace(inv.Identity) == "" {
		return nil, &cacheaside.ArgumentError{Name: "Identity", Reason: "must not be empty or blank"}
	}

	if inv.ValidationFailed {
		ic.transition("", Bypassed)
		return next(ctx)
	}

	key := ic.resolver.Resolve(inv.Args, inv.Identity)
	ic.transition(key, KeyResolved)

	cached, ok, err := ic.cache.TryGet(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok && !isNil(cached) {
		inv.Result = &Response{Status: http.StatusOK, Payload: cached}
		ic.transition(key, ShortCircuited)
		return inv.Result, nil
	}

	resp, err := next(ctx)
	ic.transition(key, HandlerInvoked)
	if err != nil {
		return resp, err
	}

	entity, ok := Entity[V](resp)
	if !ok {
		ic.transition(key, Skipped)
		return resp, nil
	}
	if err := ic.cache.Set(ctx, key, entity); err != nil {
		ic.log.Error("cache write after handler failed", cacheaside.Fields{"key": key, "err": err})
		return resp, err
	}
	ic.transition(key, Persisted)
	return resp, nil
}

// Entity extracts the cacheable value from a successful response.
// Payloads of type V, or *V when V is not a pointer, qualify; anything else does not.
func Entity[V any](resp *Response) (V, bool) {
	var zero V
	if resp == nil || resp.Status != http.StatusOK || resp.Payload == nil {
		return zero, false
	}
	switch p := resp.Payload.(type) {
	case V:
		if isNil(p) {
			return zero, false
		}
		return p, true
	case *V:
		if p == nil {
			return zero, false
		}
		return *p, true
	}
	return zero, false
}

func (ic *Interceptor[V]) transition(key string, s State) {
	ic.log.Debug("cache interceptor", cacheaside.Fields{"key": key, "state": s.String()})
	if ic.onState != nil {
		ic.onState(key, s)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
