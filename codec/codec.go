// Package codec converts values to and from bytes: cached records on the way
// into a provider and response bodies on the way out of the transport.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
