package keys

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Separator joins prefix and value in a final key.
const Separator = ":"

// Resolver binds a Strategy to an optional explicit prefix. It is immutable
// and safe for concurrent use.
type Resolver struct {
	strategy Strategy
	prefix   string
}

// NewResolver returns a resolver for strategy. A blank prefix means "use the
// call-site identity as prefix" for argument and model strategies.
func NewResolver(strategy Strategy, prefix string) Resolver {
	return Resolver{strategy: strategy, prefix: strings.TrimSpace(prefix)}
}

func (r Resolver) Strategy() Strategy { return r.strategy }
func (r Resolver) Prefix() string     { return r.prefix }

// Resolve computes the final key for one invocation:
//
//	literal   -> value, or prefix:value with an explicit prefix
//	argument  -> prefix:value, prefix defaulting to identity
//	model     -> prefix:value, prefix defaulting to identity
//	call site -> identity, or prefix:identity with an explicit prefix
//
// A blank derived value falls back to identity alone, for every strategy.
// args may be nil.
func (r Resolver) Resolve(args Arguments, identity string) string {
	identity = strings.TrimSpace(identity)

	value := strings.TrimSpace(r.value(args, identity))
	if value == "" {
		return identity
	}

	switch {
	case r.prefix != "":
		return r.prefix + Separator + value
	case r.strategy.kind == KindArgument || r.strategy.kind == KindModel:
		if identity == "" {
			return value
		}
		return identity + Separator + value
	default:
		return value
	}
}

func (r Resolver) value(args Arguments, identity string) string {
	s := r.strategy
	switch s.kind {
	case KindLiteral:
		return s.value
	case KindArgument:
		if args == nil {
			return ""
		}
		v, ok := args.Argument(s.value)
		if !ok {
			return ""
		}
		return String(v)
	case KindModel:
		if !s.ok || args == nil {
			return ""
		}
		model, ok := args.Argument(s.arg)
		if !ok {
			return ""
		}
		v, ok := Field(model, s.prop)
		if !ok {
			return ""
		}
		return String(v)
	default:
		return identity
	}
}

// String renders a key component. nil and nil pointers render empty so they fall back.
func String(v any) string {
	if v == nil || isNilish(v) {
		return ""
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	if st, ok := v.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprint(v)
}
