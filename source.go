package binser

import (
	"reflect"

	"github.com/stewi1014/binser/encode"
)

// leaf returns the Encodable for a value of type ty that binser doesn't walk itself,
// or nil if ty is compound.
func (s *Serializer) leaf(ty reflect.Type, m member) encode.Encodable {
	kind := ty.Kind()
	switch {
	case kind == reflect.Bool:
		return encode.NewBool(ty)

	case kind == reflect.Int8,
		kind == reflect.Int16,
		kind == reflect.Int32,
		kind == reflect.Int64,
		kind == reflect.Uint8,
		kind == reflect.Uint16,
		kind == reflect.Uint32,
		kind == reflect.Uint64,
		kind == reflect.Float32,
		kind == reflect.Float64:
		return encode.NewNumber(ty, m.order)

	case kind == reflect.String:
		return encode.NewString(ty, m.charset(), m.terminated())

	case (kind == reflect.Slice || kind == reflect.Array) &&
		ty.Elem().Kind() == reflect.Uint8 && !s.table.Custom(ty.Elem()):
		return encode.NewBytes(ty)

	default:
		return nil
	}
}
