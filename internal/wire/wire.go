// Package wire frames payloads for stores that cannot keep per-entry
// expiration themselves. The envelope carries the entry's deadlines next to
// the caller's bytes so they can be enforced on read.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("cacheaside: corrupt entry")
	magic4     = [...]byte{'C', 'A', 'S', 'D'}
)

const hdr = 4 + 1 + 8 + 8 + 8 + 4

// none marks an unset deadline or window.
const none int64 = -1

// Entry is a decoded envelope. Zero times/durations mean "unset".
type Entry struct {
	Absolute time.Time     // hard deadline
	Sliding  time.Duration // idle window
	Expires  time.Time     // current effective expiry
	Payload  []byte
}

// Expired reports whether the entry is past its effective expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.Expires.IsZero() && !now.Before(e.Expires)
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode: magic(4) | ver(1) | abs(i64 be, unix ms) | sld(i64 be, ms) | exp(i64 be, unix ms) | vlen(u32 be) | payload(vlen)
func Encode(e Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(hdr + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(unixMilli(e.Absolute)))
	buf.Write(u8[:])

	sld := none
	if e.Sliding > 0 {
		sld = e.Sliding.Milliseconds()
	}
	binary.BigEndian.PutUint64(u8[:], uint64(sld))
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(unixMilli(e.Expires)))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes()
}

// Decode parses an envelope. The payload aliases b.
func Decode(b []byte) (Entry, error) {
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	off := 5

	abs := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	sld := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	exp := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // exact length, no trailing junk
		return Entry{}, ErrCorrupt
	}
	if sld < none || abs < none || exp < none {
		return Entry{}, ErrCorrupt
	}

	e := Entry{
		Absolute: fromUnixMilli(abs),
		Expires:  fromUnixMilli(exp),
		Payload:  b[off : off+vlen],
	}
	if sld != none {
		e.Sliding = time.Duration(sld) * time.Millisecond
	}
	return e, nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return none
	}
	return t.UnixMilli()
}

func fromUnixMilli(v int64) time.Time {
	if v == none {
		return time.Time{}
	}
	return time.UnixMilli(v)
}
