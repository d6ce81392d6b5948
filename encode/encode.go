// Package encode provides the fixed-layout codecs binser uses for the leaves of a record;
// numbers, bools, strings and byte strings.
//
// Each Encodable is built for one type and one configuration, and reads or writes the value
// it's given through reflect. Compound values (records, sequences, polymorphic and custom fields)
// are walked by binser itself.
package encode

import (
	"fmt"
	"io"
	"reflect"

	"github.com/stewi1014/binser/encio"
)

// Encodable is an Encoder and Decoder for a specific type.
//
// Encodables are not thread safe.
//
// Encode writes exactly what Decode will read back; no extra data is read.
// Values given to Decode must be settable.
type Encodable interface {
	// Type returns the type that the Encodable encodes.
	Type() reflect.Type

	// Size returns the encoded size of the Encodable.
	// If Size returns <0, size depends on the value.
	Size() int

	// Encode encodes v to w.
	Encode(v reflect.Value, w io.Writer) error

	// Decode decodes from r into v.
	Decode(v reflect.Value, r io.Reader) error
}

// checkValue panics if v is not of type ty.
func checkValue(v reflect.Value, ty reflect.Type) {
	if !v.IsValid() || v.Type() != ty {
		panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("%v given to Encodable of type %v", v, ty)))
	}
}

// readRest reads everything left in r; the rest of a bounded region, or the rest of the stream.
func readRest(r io.Reader) ([]byte, error) {
	cr := encio.NewReader(r)
	if n := cr.Remaining(); n >= 0 {
		if n > encio.TooBig {
			return nil, encio.Errorf(encio.ErrInvalidLength, "%v bytes is too big", n)
		}
		buff := make([]byte, n)
		return buff, encio.Read(buff, cr)
	}

	buff, err := io.ReadAll(cr)
	if err != nil {
		return nil, encio.NewIOError(err, "reading to end of stream")
	}
	return buff, nil
}
