package encode

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/stewi1014/binser/encio"
)

// NewString returns a new string Encodable.
//
// Terminated strings are written with a trailing NUL byte and read up to one.
// Unterminated strings take up the rest of the reader they're given, which is expected to be bounded;
// trailing NULs are trimmed when decoding.
//
// If charset is non-nil, strings are transcoded to and from it. NUL termination is byte-wise,
// so terminated strings should use charsets that never encode a zero byte inside a character.
func NewString(ty reflect.Type, charset encoding.Encoding, terminated bool) *String {
	if ty.Kind() != reflect.String {
		panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("%v is not of string kind", ty.String())))
	}

	return &String{
		ty:         ty,
		charset:    charset,
		terminated: terminated,
	}
}

// String is an Encodable for strings.
type String struct {
	ty         reflect.Type
	charset    encoding.Encoding
	terminated bool
	buff       [1]byte
}

// Size implemenets Encodable.
func (e *String) Size() int { return -1 }

// Type implements Encodable.
func (e *String) Type() reflect.Type { return e.ty }

// Encode implemenets Encodable.
func (e *String) Encode(v reflect.Value, w io.Writer) error {
	checkValue(v, e.ty)

	buff := []byte(v.String())
	if e.charset != nil {
		var err error
		buff, err = e.charset.NewEncoder().Bytes(buff)
		if err != nil {
			return encio.Errorf(encio.ErrMalformed, "cannot encode %q: %v", v.String(), err)
		}
	}

	if e.terminated {
		if bytes.IndexByte(buff, 0) >= 0 {
			return encio.Errorf(encio.ErrMalformed, "NUL terminated string %q contains a NUL byte", v.String())
		}
		buff = append(buff, 0)
	}

	return encio.Write(buff, w)
}

// Decode implemenets Encodable.
func (e *String) Decode(v reflect.Value, r io.Reader) error {
	checkValue(v, e.ty)

	var buff []byte
	var err error
	if e.terminated {
		buff, err = e.readTerminated(r)
	} else {
		buff, err = readRest(r)
	}
	if err != nil {
		return err
	}

	if e.charset != nil {
		buff, err = e.charset.NewDecoder().Bytes(buff)
		if err != nil {
			return encio.Errorf(encio.ErrMalformed, "cannot decode string: %v", err)
		}
	}

	str := string(buff)
	if !e.terminated {
		str = strings.TrimRight(str, "\x00")
	}
	v.SetString(str)
	return nil
}

func (e *String) readTerminated(r io.Reader) ([]byte, error) {
	var buff []byte
	for {
		if err := encio.Read(e.buff[:], r); err != nil {
			return nil, err
		}
		if e.buff[0] == 0 {
			return buff, nil
		}
		if int64(len(buff)) >= encio.TooBig {
			return nil, encio.Errorf(encio.ErrInvalidLength, "string is longer than %v bytes", encio.TooBig)
		}
		buff = append(buff, e.buff[0])
	}
}
