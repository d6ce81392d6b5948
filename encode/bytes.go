package encode

import (
	"fmt"
	"io"
	"reflect"

	"github.com/stewi1014/binser/encio"
)

// NewBytes returns a new Encodable for byte slices and byte arrays.
// Arrays encode exactly their length. Slices take up the rest of the reader they're given,
// which is expected to be bounded.
func NewBytes(ty reflect.Type) *Bytes {
	if (ty.Kind() != reflect.Slice && ty.Kind() != reflect.Array) || ty.Elem().Kind() != reflect.Uint8 {
		panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("%v is not a byte slice or array", ty.String())))
	}
	return &Bytes{
		ty: ty,
	}
}

// Bytes is an Encodable for byte slices and arrays.
type Bytes struct {
	ty reflect.Type
}

// Size implements Encodable.
func (e *Bytes) Size() int {
	if e.ty.Kind() == reflect.Array {
		return e.ty.Len()
	}
	return -1
}

// Type implements Encodable.
func (e *Bytes) Type() reflect.Type { return e.ty }

// Encode implements Encodable.
func (e *Bytes) Encode(v reflect.Value, w io.Writer) error {
	checkValue(v, e.ty)
	if v.Kind() == reflect.Array {
		buff := make([]byte, v.Len())
		reflect.Copy(reflect.ValueOf(buff), v)
		return encio.Write(buff, w)
	}
	return encio.Write(v.Bytes(), w)
}

// Decode implements Encodable.
func (e *Bytes) Decode(v reflect.Value, r io.Reader) error {
	checkValue(v, e.ty)
	if v.Kind() == reflect.Array {
		buff := make([]byte, v.Len())
		if err := encio.Read(buff, r); err != nil {
			return err
		}
		reflect.Copy(v, reflect.ValueOf(buff))
		return nil
	}

	buff, err := readRest(r)
	if err != nil {
		return err
	}
	v.SetBytes(buff)
	return nil
}
