package cacheaside

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is matched by every usage error (blank key, nil value, nil store...).
// It is fatal to the call and never retried.
var ErrInvalidArgument = errors.New("cacheaside: invalid argument")

// ArgumentError names the offending argument. errors.Is(err, ErrInvalidArgument) holds for it.
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("cacheaside: invalid argument %q: %s", e.Name, e.Reason)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// ErrInvalidKey is returned by strict operations for an empty or blank key.
var ErrInvalidKey error = &ArgumentError{Name: "key", Reason: "must not be empty or blank"}

// DecodeError reports a stored payload that could not be decoded into the entity type.
// Only Get returns it; TryGet reports the same condition as a miss.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cacheaside: decode %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports an entity the codec refused to serialize. Nothing is written.
type EncodeError struct {
	Key string
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cacheaside: encode %q: %v", e.Key, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
