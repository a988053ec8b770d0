package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type token struct {
	AccountPK int       `json:"pk" cbor:"pk"`
	Token     string    `json:"token" cbor:"token"`
	IssuedAt  time.Time `json:"issued_at" cbor:"issued_at"`
}

func TestCBORDeterministic(t *testing.T) {
	c := MustCBOR[map[string]int]()
	a, err := c.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := c.Encode(map[string]int{"c": 3, "a": 1, "b": 2})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("equal maps encoded differently: %x vs %x", a, b)
	}
}

func TestCBORStruct(t *testing.T) {
	c := MustCBOR[token]()
	in := token{AccountPK: 7, Token: "abc", IssuedAt: time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.AccountPK != in.AccountPK || out.Token != in.Token || !out.IssuedAt.Equal(in.IssuedAt) {
		t.Fatalf("got %+v want %+v", out, in)
	}
}

func TestCBORRejectsDuplicateKeys(t *testing.T) {
	// {"a": 1, "a": 2}
	dup := []byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}
	if _, err := MustCBOR[map[string]int]().Decode(dup); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestMsgpackSlice(t *testing.T) {
	c := Msgpack[[]token]{}
	in := []token{{AccountPK: 1, Token: "x"}, {AccountPK: 2, Token: "y"}}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out) != 2 || out[1].Token != "y" {
		t.Fatalf("got %+v", out)
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !proto.Equal(out, wrapperspb.String("hello")) {
		t.Fatalf("got %v", out)
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := NewLimit[string](String{}, 4)
	if _, err := c.Decode([]byte("12345")); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
	v, err := c.Decode([]byte("1234"))
	if err != nil || v != "1234" {
		t.Fatalf("at limit: v=%q err=%v", v, err)
	}
	if v, err := NewLimit[string](String{}, 0).Decode([]byte("unbounded")); err != nil || v != "unbounded" {
		t.Fatalf("MaxDecode=0 must disable the limit: v=%q err=%v", v, err)
	}
}

func TestJSONDecodeError(t *testing.T) {
	if _, err := (JSON[token]{}).Decode([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}
