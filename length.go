package binser

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/stewi1014/binser/encio"
	"github.com/stewi1014/binser/schema"
)

// resolve returns the number a binding holds in frame, or -1 if it is unbound.
func resolve(frame *Context, b schema.Binding) (int64, error) {
	switch b.Kind {
	case schema.Fixed:
		return b.N, nil
	case schema.Reference:
		if b.Target >= frame.done {
			return 0, encio.Errorf(encio.ErrMissingDependency, "%v has not been decoded yet", b.Ref)
		}
		f := frame.record.Fields[b.Target]
		n, err := toLength(frame.value.Field(f.Index))
		if err != nil {
			return 0, encio.At(err, frame.path+"."+f.Name, -1)
		}
		return n, nil
	default:
		return -1, nil
	}
}

// toLength interprets a length or count field's value.
func toLength(v reflect.Value) (int64, error) {
	var n int64
	switch v.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = v.Int()

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, encio.Errorf(encio.ErrInvalidLength, "length %v is too large", u)
		}
		n = int64(u)

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, encio.Errorf(encio.ErrInvalidLength, "length %v is not a whole number", f)
		}
		n = int64(f)

	case reflect.String:
		var err error
		n, err = strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		if err != nil {
			return 0, encio.Errorf(encio.ErrInvalidLength, "length %q is not a number", v.String())
		}

	default:
		return 0, encio.Errorf(encio.ErrInvalidLength, "%v cannot hold a length", v.Type())
	}

	if n < 0 {
		return 0, encio.Errorf(encio.ErrInvalidLength, "negative length %v", n)
	}
	if n > encio.TooBig {
		return 0, encio.Errorf(encio.ErrInvalidLength, "length %v is too large", n)
	}
	return n, nil
}

// writeBack stores n in the field a binding refers to.
func writeBack(frame *Context, b schema.Binding, n int64) error {
	if b.Kind != schema.Reference {
		return nil
	}
	f := frame.record.Fields[b.Target]
	if err := setLength(frame.value.Field(f.Index), n); err != nil {
		return encio.At(err, frame.path+"."+f.Name, -1)
	}
	return nil
}

func setLength(v reflect.Value, n int64) error {
	switch v.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.OverflowInt(n) {
			return encio.Errorf(encio.ErrInvalidLength, "length %v overflows %v", n, v.Type())
		}
		v.SetInt(n)

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n < 0 || v.OverflowUint(uint64(n)) {
			return encio.Errorf(encio.ErrInvalidLength, "length %v overflows %v", n, v.Type())
		}
		v.SetUint(uint64(n))

	case reflect.Float32, reflect.Float64:
		v.SetFloat(float64(n))

	case reflect.String:
		v.SetString(strconv.FormatInt(n, 10))

	default:
		return encio.Errorf(encio.ErrInvalidLength, "%v cannot hold a length", v.Type())
	}
	return nil
}
