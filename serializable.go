package binser

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"

	"github.com/stewi1014/binser/encio"
	"github.com/stewi1014/binser/encode"
)

// Serializable is implemented by types that encode themselves.
// Their fields are never walked; binser hands them the stream and leaves the bytes to them.
//
// When the field holding the value is length bound, r is bounded to the field's length;
// bytes left unread are skipped once DeserializeBinary returns. Asking for bytes past the bound is an error,
// even if the resulting io.EOF is ignored, so codecs wanting the whole region should size their reads from ctx.Length().
//
// Implementations may use ctx.Encode and ctx.Decode for parts of themselves that are ordinary records.
type Serializable interface {
	SerializeBinary(w io.Writer, order binary.ByteOrder, ctx *Context) error
	DeserializeBinary(r io.Reader, order binary.ByteOrder, ctx *Context) error
}

type binaryMarshaler interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

var (
	serializableType      = reflect.TypeOf(new(Serializable)).Elem()
	binaryMarshalerType   = reflect.TypeOf(new(encoding.BinaryMarshaler)).Elem()
	binaryUnmarshalerType = reflect.TypeOf(new(encoding.BinaryUnmarshaler)).Elem()
	bytesType             = reflect.TypeOf([]byte(nil))
)

// isCustom returns true if ty encodes itself, either through Serializable,
// or through encoding.BinaryMarshaler and encoding.BinaryUnmarshaler.
func isCustom(ty reflect.Type) bool {
	if ty.Kind() == reflect.Interface || ty.Kind() == reflect.Ptr {
		return false
	}

	ptrt := reflect.PtrTo(ty)
	return ptrt.Implements(serializableType) ||
		(ptrt.Implements(binaryMarshalerType) && ptrt.Implements(binaryUnmarshalerType))
}

func (s *Serializer) encodeCustom(w io.Writer, v reflect.Value, m member) error {
	ptr := addr(v)
	ctx := m.context(s)

	switch c := ptr.Interface().(type) {
	case Serializable:
		return c.SerializeBinary(w, m.order, ctx)
	case binaryMarshaler:
		buff, err := c.MarshalBinary()
		if err != nil {
			return err
		}
		return encio.Write(buff, w)
	default:
		return encio.Errorf(encio.ErrBadType, "%v does not encode itself", v.Type())
	}
}

func (s *Serializer) decodeCustom(r *encio.Reader, v reflect.Value, m member) error {
	ctx := m.context(s)

	switch c := v.Addr().Interface().(type) {
	case Serializable:
		err := c.DeserializeBinary(r, m.order, ctx)
		if err == io.EOF {
			// the value was due, so the end of the stream is unexpected.
			return encio.NewIOError(encio.ErrUnexpectedEOF, fmt.Sprintf("%v reached the end of the stream", v.Type()))
		}
		return err
	case binaryMarshaler:
		var buff []byte
		if err := encode.NewBytes(bytesType).Decode(reflect.ValueOf(&buff).Elem(), r); err != nil {
			return err
		}
		return c.UnmarshalBinary(buff)
	default:
		return encio.Errorf(encio.ErrBadType, "%v does not decode itself", v.Type())
	}
}

// addr returns a pointer to v, copying v if it is not addressable.
func addr(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v.Addr()
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	return ptr
}
