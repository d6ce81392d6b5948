// Package schema compiles Go struct types into the ordered field descriptors binser walks.
//
// Fields are declared with the `bin` struct tag (see TagName), and polymorphic fields are given
// their concrete types through a Registry. A Table compiles each type once, validating the
// declaration as it goes; a malformed type fails with encio.ErrSchemaDefinition on first use.
package schema

import (
	"encoding/binary"
	"reflect"

	"golang.org/x/text/encoding"
)

// BindingKind says where a Binding gets its number from.
type BindingKind uint8

const (
	// Unbound means the field has no binding.
	Unbound BindingKind = iota

	// Fixed bindings hold a constant.
	Fixed

	// Reference bindings take their number from an earlier field of the same record.
	Reference
)

// Binding is a length or count binding.
type Binding struct {
	Kind BindingKind

	// N is the constant of a Fixed binding.
	N int64

	// Ref is the name of the field a Reference binding takes its number from,
	// and Target its position in Record.Fields.
	Ref    string
	Target int
}

// Bound returns true if the binding is not Unbound.
func (b Binding) Bound() bool {
	return b.Kind != Unbound
}

// Subtype binds a selector value to the concrete type of a polymorphic field.
// Create them with Case and Default.
type Subtype struct {
	// Selector is the name of the earlier field whose value selects the type.
	// It is empty for the default subtype.
	Selector string

	// Value is the selector value the type is chosen for.
	Value interface{}

	// Type is the concrete type. If it is a pointer type, the field holds a pointer to the decoded record.
	Type reflect.Type

	// value is Value converted to the type of the selector field.
	value reflect.Value
}

// Case returns a Subtype choosing the type of sample when the field named selector holds value.
// sample may be a value or a pointer; the decoded field will hold the same.
func Case(selector string, value interface{}, sample interface{}) Subtype {
	return Subtype{
		Selector: selector,
		Value:    value,
		Type:     reflect.TypeOf(sample),
	}
}

// Default returns a Subtype choosing the type of sample when no Case matches.
func Default(sample interface{}) Subtype {
	return Subtype{
		Type: reflect.TypeOf(sample),
	}
}

// Literal returns the selector value converted to the selector field's type.
func (s Subtype) Literal() reflect.Value {
	return s.value
}

// Field describes a single field of a Record.
type Field struct {
	// Name is the Go name of the field.
	Name string

	// Index is the index of the field in its struct, as given to reflect.Value.Field.
	Index int

	// Order is the declared order of the field.
	Order int

	// Type is the Go type of the field.
	Type reflect.Type

	// Length is the number of bytes the field occupies.
	Length Binding

	// Count is the number of elements in a slice field.
	Count Binding

	// Selector is the position in Record.Fields of the field selecting a polymorphic field's type,
	// or -1 if no Case binding exists.
	Selector int

	// Subtypes are the Case bindings of a polymorphic field, in the order they were bound.
	Subtypes []Subtype

	// Default is the type chosen when no Case matches, or nil.
	Default reflect.Type

	// ByteOrder overrides the byte order of numbers in the field. It is nil if not overridden.
	ByteOrder binary.ByteOrder

	// Charset is the character set of a string field, or nil for raw bytes.
	Charset encoding.Encoding

	// Custom is true when the field's type encodes itself.
	Custom bool

	// Sized is true when another field's Length or Count binding refers to this field,
	// and Sizes is the position of that field.
	Sized bool
	Sizes int

	// Selects is true when this field selects the type of a polymorphic field.
	Selects bool
}

// Polymorphic returns true if the field's concrete type is chosen at runtime.
func (f *Field) Polymorphic() bool {
	return len(f.Subtypes) > 0 || f.Default != nil
}

// Record is the compiled schema of a type.
type Record struct {
	// Type is the type the record describes.
	Type reflect.Type

	// Fields are the encoded fields, in order. It is empty for Custom records.
	Fields []*Field

	// Custom is true when the type encodes itself; its fields are not walked.
	Custom bool

	byName map[string]int
}

// Name returns the name of the record's type.
func (r *Record) Name() string {
	if r.Type.Name() != "" {
		return r.Type.Name()
	}
	return r.Type.String()
}

// Lookup returns the position in Fields of the field with the given name.
func (r *Record) Lookup(name string) (int, bool) {
	i, ok := r.byName[name]
	return i, ok
}
