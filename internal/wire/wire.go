// Package wire frames store entries.
//
//	magic(4) | ver(1) | kind(1) | gen(u64 be) | storedAt(i64 be, unix nanos) | vlen(u32 be) | payload(vlen)
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version    byte = 2
	kindRecord byte = 1

	headerLen = 4 + 1 + 1 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("netbound: corrupt entry")
	magic4     = [...]byte{'N', 'B', 'N', 'D'}
)

// Record is one decoded entry. Payload aliases the decoded buffer.
type Record struct {
	Gen      uint64
	StoredAt time.Time
	Payload  []byte
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

func Encode(gen uint64, storedAt time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRecord)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	var nanos int64
	if !storedAt.IsZero() {
		nanos = storedAt.UnixNano()
	}
	binary.BigEndian.PutUint64(u8[:], uint64(nanos))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode parses an entry. Framing is strict: trailing bytes are corruption.
func Decode(b []byte) (Record, error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindRecord {
		return Record{}, ErrCorrupt
	}

	off := 6
	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	nanos := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return Record{}, ErrCorrupt
	}

	var at time.Time
	if nanos != 0 {
		at = time.Unix(0, nanos)
	}
	return Record{Gen: gen, StoredAt: at, Payload: b[off : off+vlen]}, nil
}
