// Package binser encodes and decodes Go structs to and from fixed binary layouts.
//
// A record is a struct whose fields are tagged with their position in the layout.
// Fields can take their byte length or element count from earlier fields, and interface fields
// can take their concrete type from the value of an earlier field, so formats in the style of
// PNG chunks, TLV containers and tagged unions are described by the struct declarations alone.
//
//	type ChunkContainer struct {
//		Length    int32  `bin:"0"`
//		ChunkType string `bin:"1,len=4"`
//		Chunk     Chunk  `bin:"2,len=Length"`
//		Crc       int32  `bin:"3"`
//	}
//
//	binser.Register(ChunkContainer{}, "Chunk",
//		schema.Case("ChunkType", "IHDR", &ImageHeaderChunk{}),
//		schema.Default(&UnknownChunk{}),
//	)
//
// When encoding, lengths, counts and selectors are computed from the values given and written
// into the layout; the caller's value is left alone. When decoding, the stream is only ever read
// forward, so any io.Reader will do, including pipes and sockets.
//
// binser/schema describes the tag syntax and compiles record types.
//
// binser/encode provides the codecs for numbers, strings and byte strings.
//
// binser/encio provides the cursors and error types.
package binser

import (
	"io"

	"github.com/stewi1014/binser/schema"
)

// DefaultRegistry holds the subtype bindings used by Serializers without a Registry of their own.
var DefaultRegistry = schema.NewRegistry()

var defaultSerializer = New(nil)

// Register binds subtypes to the polymorphic field of record in DefaultRegistry.
// It must be called before record is first encoded or decoded.
func Register(record interface{}, field string, subtypes ...schema.Subtype) error {
	return DefaultRegistry.Bind(record, field, subtypes...)
}

// Serialize encodes v to w with default settings.
func Serialize(w io.Writer, v interface{}) error {
	return defaultSerializer.Serialize(w, v)
}

// Deserialize decodes a T from r with default settings.
func Deserialize[T any](r io.Reader) (T, error) {
	return DeserializeWith[T](defaultSerializer, r)
}
