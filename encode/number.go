package encode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/stewi1014/binser/encio"
)

// NewBool returns a new bool Encodable.
func NewBool(ty reflect.Type) *Bool {
	if ty.Kind() != reflect.Bool {
		panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("%v is not of bool kind", ty.String())))
	}
	return &Bool{
		ty: ty,
	}
}

// Bool is an Encodable for bools.
// It encodes a single byte; any non-zero byte decodes to true.
type Bool struct {
	ty   reflect.Type
	buff [1]byte
}

// Size implements Encodable.
func (e *Bool) Size() int { return 1 }

// Type implements Encodable.
func (e *Bool) Type() reflect.Type { return e.ty }

// Encode implements Encodable.
func (e *Bool) Encode(v reflect.Value, w io.Writer) error {
	checkValue(v, e.ty)
	e.buff[0] = 0
	if v.Bool() {
		e.buff[0] = 1
	}
	return encio.Write(e.buff[:], w)
}

// Decode implements Encodable.
func (e *Bool) Decode(v reflect.Value, r io.Reader) error {
	checkValue(v, e.ty)
	if err := encio.Read(e.buff[:], r); err != nil {
		return err
	}
	v.SetBool(e.buff[0] != 0)
	return nil
}

// NewNumber returns a new Number Encodable for the integer or float type ty.
// Platform sized integer types are not supported.
func NewNumber(ty reflect.Type, order binary.ByteOrder) *Number {
	e := &Number{
		ty:    ty,
		order: order,
	}

	switch ty.Kind() {
	case reflect.Int8, reflect.Uint8:
		e.size = 1
	case reflect.Int16, reflect.Uint16:
		e.size = 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		e.size = 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		e.size = 8
	default:
		panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("%v is not a sized integer or float kind", ty.String())))
	}

	if order == nil {
		e.order = binary.LittleEndian
	}
	return e
}

// Number is an Encodable for fixed width integers and floats.
type Number struct {
	ty    reflect.Type
	order binary.ByteOrder
	size  int
	buff  [8]byte
}

// Size implements Encodable.
func (e *Number) Size() int { return e.size }

// Type implements Encodable.
func (e *Number) Type() reflect.Type { return e.ty }

// Encode implements Encodable.
func (e *Number) Encode(v reflect.Value, w io.Writer) error {
	checkValue(v, e.ty)

	var n uint64
	switch v.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = uint64(v.Int())
	case reflect.Float32:
		n = uint64(math.Float32bits(float32(v.Float())))
	case reflect.Float64:
		n = math.Float64bits(v.Float())
	default:
		n = v.Uint()
	}

	buff := e.buff[:e.size]
	switch e.size {
	case 1:
		buff[0] = byte(n)
	case 2:
		e.order.PutUint16(buff, uint16(n))
	case 4:
		e.order.PutUint32(buff, uint32(n))
	case 8:
		e.order.PutUint64(buff, n)
	}
	return encio.Write(buff, w)
}

// Decode implements Encodable.
func (e *Number) Decode(v reflect.Value, r io.Reader) error {
	checkValue(v, e.ty)

	buff := e.buff[:e.size]
	if err := encio.Read(buff, r); err != nil {
		return err
	}

	var n uint64
	switch e.size {
	case 1:
		n = uint64(buff[0])
	case 2:
		n = uint64(e.order.Uint16(buff))
	case 4:
		n = uint64(e.order.Uint32(buff))
	case 8:
		n = e.order.Uint64(buff)
	}

	switch v.Kind() {
	case reflect.Int8:
		v.SetInt(int64(int8(n)))
	case reflect.Int16:
		v.SetInt(int64(int16(n)))
	case reflect.Int32:
		v.SetInt(int64(int32(n)))
	case reflect.Int64:
		v.SetInt(int64(n))
	case reflect.Float32:
		v.SetFloat(float64(math.Float32frombits(uint32(n))))
	case reflect.Float64:
		v.SetFloat(math.Float64frombits(n))
	default:
		v.SetUint(n)
	}
	return nil
}
