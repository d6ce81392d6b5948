package binser

import (
	"encoding/binary"
	"fmt"
	"io"
	"reflect"

	"golang.org/x/text/encoding"

	"github.com/stewi1014/binser/encio"
	"github.com/stewi1014/binser/schema"
)

// Context is the state of an encode or decode call at some point in the record graph.
// Custom codecs are given one describing the field they're encoding, and through it can reach
// the fields of every record enclosing them.
//
// A Context is only valid for the duration of the call it was given to.
type Context struct {
	s      *Serializer
	parent *Context

	// set on record frames
	record *schema.Record
	value  reflect.Value
	done   int

	field   *schema.Field
	bounded bool
	length  int64
	path    string
	order   binary.ByteOrder
}

// Length returns the number of bytes bound to the current field, or -1 if it is unbounded.
// When encoding a field whose length is taken from another field, the length is measured
// from what is written, and Length returns -1.
func (c *Context) Length() int64 {
	return c.length
}

// Bounded returns true if the current field is length bound.
func (c *Context) Bounded() bool {
	return c.bounded
}

// Field returns the name of the current field, or an empty string at the root.
func (c *Context) Field() string {
	if c.field == nil {
		return ""
	}
	return c.field.Name
}

// Path returns the record type and field chain of the current field.
func (c *Context) Path() string {
	return c.path
}

// ByteOrder returns the byte order in effect for the current field.
func (c *Context) ByteOrder() binary.ByteOrder {
	return c.order
}

// Parent returns the Context of the enclosing record, or nil at the root.
func (c *Context) Parent() *Context {
	return c.parent
}

// Lookup returns the value of the named field of the nearest enclosing record that has one.
// When decoding, only fields that have already been decoded can be looked up;
// ErrMissingDependency is returned for fields that have not, and for names no enclosing record has.
func (c *Context) Lookup(name string) (interface{}, error) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if ctx.record == nil {
			continue
		}

		pos, ok := ctx.record.Lookup(name)
		if !ok {
			continue
		}
		if pos >= ctx.done {
			return nil, encio.Errorf(encio.ErrMissingDependency, "%v.%v has not been decoded yet", ctx.record.Name(), name)
		}
		return ctx.value.Field(ctx.record.Fields[pos].Index).Interface(), nil
	}

	return nil, encio.Errorf(encio.ErrMissingDependency, "no enclosing record of %v has a field %v", c.path, name)
}

// Encode encodes v to w as part of the current call, with c as the enclosing context.
func (c *Context) Encode(w io.Writer, v interface{}) error {
	if v == nil {
		return encio.NewError(encio.ErrNilPointer, "cannot encode nil interface")
	}

	val := reflect.ValueOf(v)
	return c.s.encode(w, val, c.child(val.Type()))
}

// Decode decodes from r into v as part of the current call, with c as the enclosing context.
// v must be a non-nil pointer.
func (c *Context) Decode(r io.Reader, v interface{}) error {
	val, err := settable(v)
	if err != nil {
		return err
	}
	return c.s.decode(encio.NewReader(r), val, c.child(val.Type()))
}

func (c *Context) child(ty reflect.Type) member {
	return member{
		frame:  c,
		path:   fmt.Sprintf("%v(%v)", c.path, typeName(ty)),
		order:  c.order,
		length: -1,
		count:  -1,
	}
}

// member returns the member for field f of the record c is a frame of.
func (c *Context) member(f *schema.Field) member {
	m := member{
		frame:  c,
		field:  f,
		path:   c.path + "." + f.Name,
		order:  c.order,
		length: -1,
		count:  -1,
	}
	if f.ByteOrder != nil {
		m.order = f.ByteOrder
	}
	if f.Length.Kind == schema.Fixed {
		m.length = f.Length.N
	}
	m.bound = f.Length.Bound()
	return m
}

// member describes the value being encoded or decoded.
type member struct {
	frame *Context
	field *schema.Field
	path  string
	order binary.ByteOrder

	// bound is true when the value has a length binding,
	// and length is the byte bound of the value, or -1 if it isn't known.
	bound  bool
	length int64

	// count is the number of elements of a sequence, or -1.
	count int64
}

// elem returns the member for the i'th element of a sequence.
func (m member) elem(i int) member {
	m.path = fmt.Sprintf("%v[%v]", m.path, i)
	m.bound = false
	m.length = -1
	m.count = -1
	return m
}

// concrete returns the member for the concrete value of a polymorphic field.
func (m member) concrete(ty reflect.Type) member {
	m.path = fmt.Sprintf("%v(%v)", m.path, typeName(ty))
	return m
}

func (m member) context(s *Serializer) *Context {
	return &Context{
		s:       s,
		parent:  m.frame,
		field:   m.field,
		bounded: m.bound,
		length:  m.length,
		path:    m.path,
		order:   m.order,
	}
}

// charset returns the character set of string members, or nil.
func (m member) charset() encoding.Encoding {
	if m.field == nil {
		return nil
	}
	return m.field.Charset
}

// terminated returns true if a string member must carry its own end.
func (m member) terminated() bool {
	return !m.bound
}

func typeName(ty reflect.Type) string {
	for ty.Kind() == reflect.Ptr {
		ty = ty.Elem()
	}
	if ty.Name() != "" {
		return ty.Name()
	}
	return ty.String()
}
