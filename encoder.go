package binser

import (
	"io"
	"reflect"

	"github.com/stewi1014/binser/encio"
	"github.com/stewi1014/binser/schema"
)

// encode writes v to w.
func (s *Serializer) encode(w io.Writer, v reflect.Value, m member) error {
	ty := v.Type()

	var err error
	switch {
	case s.table.Custom(ty):
		err = s.encodeCustom(w, v, m)

	case ty.Kind() == reflect.Ptr:
		if v.IsNil() {
			// nil pointers encode as the zero value they would decode to.
			v = reflect.New(ty.Elem())
		}
		return s.encode(w, v.Elem(), m)

	case ty.Kind() == reflect.Interface:
		err = s.encodePolymorphic(w, v, m)

	case ty.Kind() == reflect.Struct:
		err = s.encodeRecord(w, v, m)

	default:
		if leaf := s.leaf(ty, m); leaf != nil {
			err = leaf.Encode(v, w)
		} else {
			err = s.encodeSequence(w, v, m)
		}
	}

	return encio.At(err, m.path, offset(w))
}

func (s *Serializer) encodeSequence(w io.Writer, v reflect.Value, m member) error {
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return encio.Errorf(encio.ErrBadType, "cannot encode %v", v.Type())
	}

	for i := 0; i < v.Len(); i++ {
		if err := s.encode(w, v.Index(i), m.elem(i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) encodePolymorphic(w io.Writer, v reflect.Value, m member) error {
	if v.IsNil() {
		return encio.NewError(encio.ErrNilPointer, "cannot encode nil polymorphic value")
	}
	if m.field == nil || !m.field.Polymorphic() {
		return encio.Errorf(encio.ErrBadType, "cannot encode %v outside of a field with subtypes", v.Type())
	}

	elem := v.Elem()
	if _, err := subtypeOf(m.field, elem.Type()); err != nil {
		return err
	}
	return s.encode(w, elem, m.concrete(elem.Type()))
}

func (s *Serializer) encodeRecord(w io.Writer, v reflect.Value, m member) error {
	rec, err := s.table.Record(v.Type())
	if err != nil {
		return err
	}

	// Work on a copy; derived lengths, counts and selectors are written to it, not to the caller's value.
	work := reflect.New(v.Type()).Elem()
	work.Set(v)

	frame := &Context{
		s:      s,
		parent: m.frame,
		record: rec,
		value:  work,
		done:   len(rec.Fields),
		path:   m.path,
		order:  m.order,
	}

	for _, f := range rec.Fields {
		if f.Selector < 0 {
			continue
		}
		if err := selectFor(frame, f); err != nil {
			return encio.At(err, m.path+"."+f.Name, offset(w))
		}
	}

	// Fields sizing other fields come before them, so walking backwards
	// gives every field its final value before it is measured itself.
	// Nothing of the record has been written yet, so errors in measured fields
	// carry offsets counted from the start of the record.
	measured := make(map[int]*encio.Buffer)
	for i := len(rec.Fields) - 1; i >= 0; i-- {
		f := rec.Fields[i]

		if f.Count.Kind == schema.Reference {
			if err := writeBack(frame, f.Count, int64(work.Field(f.Index).Len())); err != nil {
				return encio.At(err, m.path+"."+f.Name, offset(w))
			}
		}

		if f.Length.Kind == schema.Reference {
			sw, buff := scratch(w)
			if err := s.encodeField(sw, frame, i); err != nil {
				return err
			}
			if err := writeBack(frame, f.Length, int64(buff.Len())); err != nil {
				return encio.At(err, m.path+"."+f.Name, offset(w))
			}
			measured[i] = buff
		}
	}

	for i := range rec.Fields {
		if buff, ok := measured[i]; ok {
			if err := encio.Write(buff.Bytes(), w); err != nil {
				return err
			}
			continue
		}

		if err := s.encodeField(w, frame, i); err != nil {
			return err
		}
	}

	return nil
}

// encodeField writes the i'th field of frame's record to w.
func (s *Serializer) encodeField(w io.Writer, frame *Context, i int) error {
	f := frame.record.Fields[i]
	v := frame.value.Field(f.Index)
	m := frame.member(f)

	if f.Count.Kind == schema.Fixed && int64(v.Len()) != f.Count.N {
		return encio.At(encio.Errorf(encio.ErrInvalidLength, "%v elements given for a count of %v", v.Len(), f.Count.N), m.path, offset(w))
	}

	if f.Length.Kind != schema.Fixed {
		return s.encode(w, v, m)
	}

	sw, buff := scratch(w)
	if err := s.encode(sw, v, m); err != nil {
		return err
	}

	if pad := m.length - int64(buff.Len()); pad < 0 {
		return encio.At(encio.Errorf(encio.ErrLengthOverrun, "encoded %v bytes into a field of %v", buff.Len(), m.length), m.path, offset(w))
	} else if pad > 0 {
		buff.Write(make([]byte, pad))
	}

	return encio.Write(buff.Bytes(), w)
}

// offset returns the position of w in the stream, or -1 if w doesn't count.
func offset(w io.Writer) int64 {
	if cw, ok := w.(*encio.Writer); ok {
		return cw.Offset()
	}
	return -1
}

// scratch returns a writer collecting into a buffer, keeping count from w when w counts.
func scratch(w io.Writer) (io.Writer, *encio.Buffer) {
	if cw, ok := w.(*encio.Writer); ok {
		return cw.Scratch()
	}
	buff := new(encio.Buffer)
	return buff, buff
}
