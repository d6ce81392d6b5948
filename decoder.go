package binser

import (
	"reflect"

	"github.com/stewi1014/binser/encio"
	"github.com/stewi1014/binser/encode"
)

// decode reads from r into v, which must be settable.
func (s *Serializer) decode(r *encio.Reader, v reflect.Value, m member) error {
	ty := v.Type()

	var err error
	switch {
	case s.table.Custom(ty):
		err = s.decodeCustom(r, v, m)

	case ty.Kind() == reflect.Ptr:
		if v.IsNil() {
			v.Set(reflect.New(ty.Elem()))
		}
		return s.decode(r, v.Elem(), m)

	case ty.Kind() == reflect.Interface:
		err = s.decodePolymorphic(r, v, m)

	case ty.Kind() == reflect.Struct:
		err = s.decodeRecord(r, v, m)

	default:
		if leaf := s.leaf(ty, m); leaf != nil {
			err = s.decodeLeaf(r, v, m, leaf)
		} else {
			err = s.decodeSequence(r, v, m)
		}
	}

	return encio.At(err, m.path, r.Offset())
}

func (s *Serializer) decodeLeaf(r *encio.Reader, v reflect.Value, m member, leaf encode.Encodable) error {
	if v.Kind() == reflect.Slice && m.count >= 0 {
		// counted byte strings are exactly count bytes long.
		child := r.Limit(m.count)
		if err := leaf.Decode(v, child); err != nil {
			return err
		}
		return child.Drain()
	}

	if err := leaf.Decode(v, r); err != nil {
		return err
	}
	if v.Kind() == reflect.Slice && v.Len() == 0 {
		// as with other uncounted sequences, nothing decodes to nil.
		v.Set(reflect.Zero(v.Type()))
	}
	return nil
}

func (s *Serializer) decodeSequence(r *encio.Reader, v reflect.Value, m member) error {
	switch v.Kind() {
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := s.decode(r, v.Index(i), m.elem(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Slice:
		if m.count >= 0 {
			if m.count > encio.TooBig {
				return encio.Errorf(encio.ErrInvalidLength, "count %v is too big", m.count)
			}
			slice := reflect.MakeSlice(v.Type(), int(m.count), int(m.count))
			for i := 0; i < slice.Len(); i++ {
				if err := s.decode(r, slice.Index(i), m.elem(i)); err != nil {
					return err
				}
			}
			v.Set(slice)
			return nil
		}

		// uncounted sequences run to the end of the region they're in.
		// With nothing there, the slice is left nil.
		var slice reflect.Value
		for i := 0; ; i++ {
			more, err := r.More()
			if err != nil {
				return err
			}
			if !more {
				break
			}
			if int64(i) >= encio.TooBig {
				return encio.Errorf(encio.ErrInvalidLength, "more than %v elements", encio.TooBig)
			}

			if i == 0 {
				slice = reflect.MakeSlice(v.Type(), 0, 1)
			}
			slice = reflect.Append(slice, reflect.Zero(v.Type().Elem()))

			start := r.N()
			if err := s.decode(r, slice.Index(i), m.elem(i)); err != nil {
				return err
			}
			if r.N() == start {
				// the next element would start in the same place.
				return encio.At(encio.Errorf(encio.ErrMalformed, "element of %v consumed no bytes", v.Type()), m.elem(i).path, r.Offset())
			}
		}

		if !slice.IsValid() {
			slice = reflect.Zero(v.Type())
		}
		v.Set(slice)
		return nil

	default:
		return encio.Errorf(encio.ErrBadType, "cannot decode %v", v.Type())
	}
}

func (s *Serializer) decodePolymorphic(r *encio.Reader, v reflect.Value, m member) error {
	if m.field == nil || !m.field.Polymorphic() {
		return encio.Errorf(encio.ErrBadType, "cannot decode %v outside of a field with subtypes", v.Type())
	}

	ty, err := selectSubtype(m.frame, m.field)
	if err != nil {
		return err
	}

	var concrete reflect.Value
	if ty.Kind() == reflect.Ptr {
		concrete = reflect.New(ty.Elem())
		if err := s.decode(r, concrete.Elem(), m.concrete(ty)); err != nil {
			return err
		}
	} else {
		concrete = reflect.New(ty).Elem()
		if err := s.decode(r, concrete, m.concrete(ty)); err != nil {
			return err
		}
	}

	v.Set(concrete)
	return nil
}

func (s *Serializer) decodeRecord(r *encio.Reader, v reflect.Value, m member) error {
	rec, err := s.table.Record(v.Type())
	if err != nil {
		return err
	}

	v.Set(reflect.Zero(v.Type()))
	frame := &Context{
		s:      s,
		parent: m.frame,
		record: rec,
		value:  v,
		path:   m.path,
		order:  m.order,
	}

	for i := range rec.Fields {
		frame.done = i
		if err := s.decodeField(r, frame, i); err != nil {
			return err
		}
	}
	frame.done = len(rec.Fields)

	return nil
}

// decodeField reads the i'th field of frame's record from r.
func (s *Serializer) decodeField(r *encio.Reader, frame *Context, i int) error {
	f := frame.record.Fields[i]
	v := frame.value.Field(f.Index)
	m := frame.member(f)

	var err error
	if m.count, err = resolve(frame, f.Count); err != nil {
		return encio.At(err, m.path, r.Offset())
	}
	if m.length, err = resolve(frame, f.Length); err != nil {
		return encio.At(err, m.path, r.Offset())
	}

	if m.length < 0 {
		return s.decode(r, v, m)
	}

	child := r.Limit(m.length)
	err = s.decode(child, v, m)
	if child.Overrun() {
		// asking for more than the bound is an error even when the EOF was ignored.
		if err != nil {
			return encio.At(encio.Errorf(encio.ErrLengthOverrun, "needed more than the %v bytes bound to the field; %v", m.length, err), m.path, r.Offset())
		}
		return encio.At(encio.Errorf(encio.ErrLengthOverrun, "read past the %v bytes bound to the field", m.length), m.path, r.Offset())
	}
	if err != nil {
		return err
	}

	if left := child.Remaining(); left > 0 && s.config.WarnUnderread {
		encio.Fwarnf(s.config.Warnings, "%v: %v of %v bytes left unread", m.path, left, m.length)
	}
	return encio.At(child.Drain(), m.path, r.Offset())
}
