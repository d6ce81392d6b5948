package binser

import (
	"reflect"

	"github.com/stewi1014/binser/encio"
	"github.com/stewi1014/binser/schema"
)

// selectSubtype returns the concrete type of the polymorphic field f,
// chosen by the decoded value of its selector.
func selectSubtype(frame *Context, f *schema.Field) (reflect.Type, error) {
	if f.Selector < 0 {
		return f.Default, nil
	}

	selField := frame.record.Fields[f.Selector]
	if f.Selector >= frame.done {
		return nil, encio.Errorf(encio.ErrMissingDependency, "selector %v has not been decoded yet", selField.Name)
	}

	sel := frame.value.Field(selField.Index).Interface()
	for _, sub := range f.Subtypes {
		if sub.Literal().Interface() == sel {
			return sub.Type, nil
		}
	}

	if f.Default != nil {
		return f.Default, nil
	}
	return nil, encio.Errorf(encio.ErrUnknownSubtype, "no subtype bound to %v value %#v", selField.Name, sel)
}

// subtypeOf returns the binding naming ty, or nil if ty is f's default type.
func subtypeOf(f *schema.Field, ty reflect.Type) (*schema.Subtype, error) {
	for i := range f.Subtypes {
		if sameType(f.Subtypes[i].Type, ty) {
			return &f.Subtypes[i], nil
		}
	}
	if f.Default != nil && sameType(f.Default, ty) {
		return nil, nil
	}
	return nil, encio.Errorf(encio.ErrUnknownSubtype, "no subtype of %v is bound to %v", f.Name, ty)
}

// sameType returns true if a and b are the same type, or one is a pointer to the other.
func sameType(a, b reflect.Type) bool {
	switch {
	case a == b:
		return true
	case a.Kind() == reflect.Ptr && a.Elem() == b:
		return true
	case b.Kind() == reflect.Ptr && b.Elem() == a:
		return true
	default:
		return false
	}
}

// selectFor sets the selector of the polymorphic field f to match the value being encoded.
// Values of the default type leave the selector as it is.
func selectFor(frame *Context, f *schema.Field) error {
	var lit reflect.Value
	var first reflect.Type

	err := each(frame.value.Field(f.Index), func(v reflect.Value) error {
		if v.IsNil() {
			return nil
		}

		sub, err := subtypeOf(f, v.Elem().Type())
		if err != nil || sub == nil {
			return err
		}

		switch {
		case !lit.IsValid():
			lit, first = sub.Literal(), sub.Type
		case lit.Interface() != sub.Literal().Interface():
			return encio.Errorf(encio.ErrBadType, "elements select different subtypes; %v and %v", first, sub.Type)
		}
		return nil
	})
	if err != nil || !lit.IsValid() {
		return err
	}

	frame.value.Field(frame.record.Fields[f.Selector].Index).Set(lit)
	return nil
}

// each calls fn with every interface value in v, looking through slices and arrays.
func each(v reflect.Value, fn func(reflect.Value) error) error {
	switch v.Kind() {
	case reflect.Interface:
		return fn(v)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := each(v.Index(i), fn); err != nil {
				return err
			}
		}
	}
	return nil
}
