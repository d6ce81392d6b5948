package encode_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/maxatome/go-testdeep/td"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/stewi1014/binser/encio"
	"github.com/stewi1014/binser/encode"
)

// roundTrip encodes v with enc, returning the bytes and the value decoded from them.
func roundTrip(t *testing.T, enc encode.Encodable, v interface{}) ([]byte, interface{}) {
	t.Helper()

	var buff bytes.Buffer
	td.Require(t).CmpNoError(enc.Encode(reflect.ValueOf(v), &buff))
	encoded := append([]byte(nil), buff.Bytes()...)

	if size := enc.Size(); size >= 0 {
		td.Cmp(t, len(encoded), size)
	}

	decoded := reflect.New(enc.Type())
	td.Require(t).CmpNoError(enc.Decode(decoded.Elem(), encio.NewReader(&buff).Limit(int64(len(encoded)))))
	return encoded, decoded.Elem().Interface()
}

func TestNumber(t *testing.T) {
	type Length uint16

	testCases := []struct {
		desc  string
		order binary.ByteOrder
		v     interface{}
		want  []byte
	}{
		{desc: "int8", v: int8(-2), want: []byte{0xfe}},
		{desc: "uint8", v: uint8(200), want: []byte{200}},
		{desc: "int16 little", order: binary.LittleEndian, v: int16(-300), want: []byte{0xd4, 0xfe}},
		{desc: "int16 big", order: binary.BigEndian, v: int16(-300), want: []byte{0xfe, 0xd4}},
		{desc: "named uint16", order: binary.BigEndian, v: Length(0x0102), want: []byte{1, 2}},
		{desc: "int32", v: int32(13), want: []byte{13, 0, 0, 0}},
		{desc: "uint32 big", order: binary.BigEndian, v: uint32(0xdeadbeef), want: []byte{0xde, 0xad, 0xbe, 0xef}},
		{desc: "int64", v: int64(math.MinInt64), want: []byte{0, 0, 0, 0, 0, 0, 0, 0x80}},
		{desc: "uint64", v: uint64(math.MaxUint64), want: bytes.Repeat([]byte{0xff}, 8)},
		{desc: "float32", order: binary.BigEndian, v: float32(1), want: []byte{0x3f, 0x80, 0, 0}},
		{desc: "float64", v: float64(-0.5), want: []byte{0, 0, 0, 0, 0, 0, 0xe0, 0xbf}},
		{desc: "bool", v: true, want: []byte{1}},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			ty := reflect.TypeOf(tC.v)

			var enc encode.Encodable
			if ty.Kind() == reflect.Bool {
				enc = encode.NewBool(ty)
			} else {
				enc = encode.NewNumber(ty, tC.order)
			}

			encoded, decoded := roundTrip(t, enc, tC.v)
			td.Cmp(t, encoded, tC.want)
			td.Cmp(t, decoded, tC.v)
		})
	}
}

func TestNumberPanics(t *testing.T) {
	td.CmpPanic(t, func() { encode.NewNumber(reflect.TypeOf(0), nil) }, td.Isa(encio.Error{}))
	td.CmpPanic(t, func() { encode.NewBool(reflect.TypeOf("")) }, td.Isa(encio.Error{}))

	enc := encode.NewNumber(reflect.TypeOf(int32(0)), nil)
	td.CmpPanic(t, func() { enc.Encode(reflect.ValueOf(int64(0)), new(bytes.Buffer)) }, td.Isa(encio.Error{}))
}

func TestNumberShort(t *testing.T) {
	enc := encode.NewNumber(reflect.TypeOf(int32(0)), nil)
	var v int32
	err := enc.Decode(reflect.ValueOf(&v).Elem(), bytes.NewReader([]byte{1, 2}))
	td.CmpTrue(t, errors.Is(err, encio.ErrUnexpectedEOF), "got %v", err)
}

func TestString(t *testing.T) {
	type Name string

	testCases := []struct {
		desc       string
		v          interface{}
		terminated bool
		want       []byte
		decoded    interface{}
	}{
		{
			desc:       "Terminated",
			v:          "IHDR",
			terminated: true,
			want:       []byte("IHDR\x00"),
		},
		{
			desc:       "Empty terminated",
			v:          "",
			terminated: true,
			want:       []byte{0},
		},
		{
			desc: "Unterminated",
			v:    Name("hello"),
			want: []byte("hello"),
		},
		{
			desc:    "Trailing NULs trimmed",
			v:       "ab\x00\x00",
			want:    []byte("ab\x00\x00"),
			decoded: "ab",
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			enc := encode.NewString(reflect.TypeOf(tC.v), nil, tC.terminated)
			encoded, decoded := roundTrip(t, enc, tC.v)
			td.Cmp(t, encoded, tC.want)

			want := tC.decoded
			if want == nil {
				want = tC.v
			}
			td.Cmp(t, decoded, want)
		})
	}
}

func TestStringTerminatedStopsAtNUL(t *testing.T) {
	enc := encode.NewString(reflect.TypeOf(""), nil, true)
	r := bytes.NewReader([]byte("abc\x00def"))

	var s string
	td.CmpNoError(t, enc.Decode(reflect.ValueOf(&s).Elem(), r))
	td.Cmp(t, s, "abc")
	td.Cmp(t, r.Len(), 3)
}

func TestStringEmbeddedNUL(t *testing.T) {
	enc := encode.NewString(reflect.TypeOf(""), nil, true)
	err := enc.Encode(reflect.ValueOf("a\x00b"), new(bytes.Buffer))
	td.CmpTrue(t, errors.Is(err, encio.ErrMalformed))
}

func TestStringCharset(t *testing.T) {
	t.Run("ISO-8859-1", func(t *testing.T) {
		enc := encode.NewString(reflect.TypeOf(""), charmap.ISO8859_1, false)
		encoded, decoded := roundTrip(t, enc, "café")
		td.Cmp(t, encoded, []byte{'c', 'a', 'f', 0xe9})
		td.Cmp(t, decoded, "café")
	})

	t.Run("UTF-16LE", func(t *testing.T) {
		enc := encode.NewString(reflect.TypeOf(""), unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), false)
		encoded, decoded := roundTrip(t, enc, "hi")
		td.Cmp(t, encoded, []byte{'h', 0, 'i', 0})
		td.Cmp(t, decoded, "hi")
	})

	t.Run("Unrepresentable", func(t *testing.T) {
		enc := encode.NewString(reflect.TypeOf(""), charmap.ISO8859_1, false)
		err := enc.Encode(reflect.ValueOf("日本"), new(bytes.Buffer))
		td.CmpTrue(t, errors.Is(err, encio.ErrMalformed))
	})
}

func TestBytes(t *testing.T) {
	t.Run("Array", func(t *testing.T) {
		enc := encode.NewBytes(reflect.TypeOf([4]byte{}))
		encoded, decoded := roundTrip(t, enc, [4]byte{'I', 'D', 'A', 'T'})
		td.Cmp(t, encoded, []byte("IDAT"))
		td.Cmp(t, decoded, [4]byte{'I', 'D', 'A', 'T'})
	})

	t.Run("Slice", func(t *testing.T) {
		enc := encode.NewBytes(reflect.TypeOf([]byte{}))
		encoded, decoded := roundTrip(t, enc, []byte{1, 2, 3})
		td.Cmp(t, encoded, []byte{1, 2, 3})
		td.Cmp(t, decoded, []byte{1, 2, 3})
	})

	t.Run("Slice to end of stream", func(t *testing.T) {
		enc := encode.NewBytes(reflect.TypeOf([]byte{}))
		var b []byte
		td.CmpNoError(t, enc.Decode(reflect.ValueOf(&b).Elem(), encio.ForwardOnly(bytes.NewReader([]byte{9, 8, 7}))))
		td.Cmp(t, b, []byte{9, 8, 7})
	})

	td.CmpPanic(t, func() { encode.NewBytes(reflect.TypeOf([]int16{})) }, td.Isa(encio.Error{}))
}

func BenchmarkNumber(b *testing.B) {
	enc := encode.NewNumber(reflect.TypeOf(uint32(0)), binary.BigEndian)
	v := reflect.ValueOf(uint32(0xdeadbeef))
	var buff encio.Buffer

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buff.Reset()
		if err := enc.Encode(v, &buff); err != nil {
			b.Fatal(err)
		}
	}
}
