// Package keys derives cache keys for the interceptor.
//
// A Strategy says where the key comes from; a Resolver binds it to an optional
// prefix and turns one invocation's arguments into the final key. Resolution
// never fails: missing data degrades to the call-site identity, so the final key
// is never empty. That fallback is shared by every invocation of the handler, so
// a misconfigured argument name turns into key collisions rather than an error;
// call Strategy.Validate at registration time to catch the obvious cases.
package keys

import (
	"fmt"
	"strings"
)

// Kind enumerates the strategies.
type Kind uint8

const (
	KindCallSite Kind = iota // identity of the handler
	KindLiteral              // fixed value
	KindArgument             // request argument by name
	KindModel                // property of a bound model argument
)

func (k Kind) String() string {
	switch k {
	case KindCallSite:
		return "call_site"
	case KindLiteral:
		return "literal"
	case KindArgument:
		return "argument"
	case KindModel:
		return "model"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// PathSeparator splits "model-argument.property" in FromModel paths.
const PathSeparator = "."

// Strategy is a closed variant; build it with Literal, FromArgument, FromModel,
// FromModelProperty or CallSite. The zero value is CallSite.
type Strategy struct {
	kind  Kind
	value string // literal value, argument name, or raw model path

	// model paths are split once, at construction
	arg  string
	prop string
	ok   bool
}

// Literal uses value verbatim.
func Literal(value string) Strategy {
	return Strategy{kind: KindLiteral, value: value}
}

// FromArgument uses the string form of the request argument (route or query) bound under name.
func FromArgument(name string) Strategy {
	return Strategy{kind: KindArgument, value: name}
}

// FromModel uses a property of a bound argument, addressed as "argument.property".
// Paths without exactly two non-empty segments resolve to the call-site fallback.
func FromModel(path string) Strategy {
	s := Strategy{kind: KindModel, value: path}
	parts := strings.Split(path, PathSeparator)
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		s.arg, s.prop, s.ok = parts[0], parts[1], true
	}
	return s
}

// FromModelProperty is FromModel(argument + "." + property).
func FromModelProperty(argument, property string) Strategy {
	return FromModel(argument + PathSeparator + property)
}

// CallSite uses the handler identity alone.
func CallSite() Strategy { return Strategy{kind: KindCallSite} }

func (s Strategy) Kind() Kind { return s.kind }

// Value is the configured payload: literal, argument name or model path.
func (s Strategy) Value() string { return s.value }

func (s Strategy) String() string {
	if s.kind == KindCallSite {
		return s.kind.String()
	}
	return s.kind.String() + "(" + s.value + ")"
}

// Validate reports configuration that can only ever resolve to the fallback key.
func (s Strategy) Validate() error {
	switch s.kind {
	case KindLiteral:
		if strings.TrimSpace(s.value) == "" {
			return fmt.Errorf("keys: literal strategy with blank value")
		}
	case KindArgument:
		if strings.TrimSpace(s.value) == "" {
			return fmt.Errorf("keys: argument strategy with blank argument name")
		}
	case KindModel:
		if !s.ok {
			return fmt.Errorf("keys: model path %q must be %q", s.value, "argument"+PathSeparator+"property")
		}
	case KindCallSite:
	default:
		return fmt.Errorf("keys: unknown strategy %s", s.kind)
	}
	return nil
}
