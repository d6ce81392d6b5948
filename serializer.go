package binser

import (
	"fmt"
	"io"
	"reflect"

	"github.com/stewi1014/binser/encio"
	"github.com/stewi1014/binser/schema"
)

// New returns a new Serializer. A nil config gives default settings.
func New(config *Config) *Serializer {
	c := config.copyAndFill()
	return &Serializer{
		config: c,
		table:  schema.NewTable(c.Registry, isCustom, c.Warnings),
	}
}

// Serializer encodes and decodes records.
// It caches the compiled schema of every type it sees, and is safe for concurrent use,
// as long as each call is given its own reader or writer.
type Serializer struct {
	config *Config
	table  *schema.Table
}

// Serialize encodes v to w.
// v is not modified; lengths, counts and selectors derived while encoding are written to a copy.
// Bytes written before an error are not taken back.
func (s *Serializer) Serialize(w io.Writer, v interface{}) error {
	if v == nil {
		return encio.NewError(encio.ErrNilPointer, "cannot encode nil interface")
	}

	val := reflect.ValueOf(v)
	return s.encode(encio.NewWriter(w), val, s.root(val.Type()))
}

// Deserialize decodes from r into v, which must be a non-nil pointer.
// The value v points to is reset before decoding; fields excluded from encoding are left at their zero value.
//
// r is only ever read forward. After an error, r has been read at least as far as the bytes decoded.
func (s *Serializer) Deserialize(r io.Reader, v interface{}) error {
	val, err := settable(v)
	if err != nil {
		return err
	}

	return s.decode(encio.NewReader(r), val, s.root(val.Type()))
}

// Record returns the compiled schema of the type of v.
// It can be used to check record declarations before they're first encoded.
func (s *Serializer) Record(v interface{}) (*schema.Record, error) {
	ty, ok := v.(reflect.Type)
	if !ok {
		ty = reflect.TypeOf(v)
	}
	for ty != nil && ty.Kind() == reflect.Ptr {
		ty = ty.Elem()
	}
	if ty == nil {
		return nil, encio.NewError(encio.ErrNilPointer, "cannot compile nil interface")
	}
	return s.table.Record(ty)
}

// DeserializeWith decodes a T from r using s.
func DeserializeWith[T any](s *Serializer, r io.Reader) (T, error) {
	var v T
	err := s.Deserialize(r, &v)
	return v, err
}

func (s *Serializer) root(ty reflect.Type) member {
	return member{
		path:   typeName(ty),
		order:  s.config.ByteOrder,
		length: -1,
		count:  -1,
	}
}

func settable(v interface{}) (reflect.Value, error) {
	if v == nil {
		return reflect.Value{}, encio.NewError(encio.ErrNilPointer, "cannot decode into nil interface")
	}

	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr {
		return reflect.Value{}, encio.NewError(encio.ErrBadType, fmt.Sprintf("decoded values must be passed by reference (pointer), got %v", val.Type()))
	}
	if val.IsNil() {
		return reflect.Value{}, encio.NewError(encio.ErrNilPointer, "cannot decode into nil pointer")
	}

	return val.Elem(), nil
}
