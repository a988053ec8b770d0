package codec

import "fmt"

// Limit wraps another codec to enforce a maximum allowed payload size
// at Decode time. Encode is forwarded to Inner unchanged.
// If MaxDecode <= 0, size limiting is disabled.
//
// The transport wraps response codecs with it so an oversized body is a
// decode error rather than an allocation.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

func NewLimit[V any](inner Codec[V], maxDecode int) Limit[V] {
	return Limit[V]{Inner: inner, MaxDecode: maxDecode}
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
