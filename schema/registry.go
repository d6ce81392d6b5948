package schema

import (
	"reflect"
	"sync"

	"github.com/stewi1014/binser/encio"
)

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[reflect.Type]map[string][]Subtype),
		sealed:   make(map[reflect.Type]bool),
	}
}

// Registry holds the subtype bindings of polymorphic fields.
// Bindings must be made before a record type is first used; after that its schema is fixed.
// It is safe for concurrent use.
type Registry struct {
	mutex    sync.RWMutex
	bindings map[reflect.Type]map[string][]Subtype
	sealed   map[reflect.Type]bool
}

// Bind adds subtypes to the field of the given record.
// record may be a struct value, a pointer to one, or its reflect.Type.
//
//	registry.Bind(ChunkContainer{}, "Chunk",
//		schema.Case("ChunkType", "IHDR", &ImageHeaderChunk{}),
//		schema.Case("ChunkType", "TEST", &TestChunk{}),
//	)
func (r *Registry) Bind(record interface{}, field string, subtypes ...Subtype) error {
	ty, ok := record.(reflect.Type)
	if !ok {
		ty = reflect.TypeOf(record)
	}
	for ty != nil && ty.Kind() == reflect.Ptr {
		ty = ty.Elem()
	}
	if ty == nil || ty.Kind() != reflect.Struct {
		return encio.Errorf(encio.ErrSchemaDefinition, "cannot bind subtypes to %v; it is not a struct", ty)
	}

	if _, ok := ty.FieldByName(field); !ok {
		return encio.Errorf(encio.ErrSchemaDefinition, "%v has no field %v", ty, field)
	}

	for _, s := range subtypes {
		if s.Type == nil {
			return encio.Errorf(encio.ErrSchemaDefinition, "subtype of %v.%v for %v has no type", ty.Name(), field, s.Value)
		}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.sealed[ty] {
		return encio.Errorf(encio.ErrSchemaDefinition, "%v is already in use; subtypes must be bound before first use", ty)
	}

	fields, ok := r.bindings[ty]
	if !ok {
		fields = make(map[string][]Subtype)
		r.bindings[ty] = fields
	}
	fields[field] = append(fields[field], subtypes...)
	return nil
}

// MustBind is like Bind, but panics on error. It is intended for package initialisation.
func (r *Registry) MustBind(record interface{}, field string, subtypes ...Subtype) {
	if err := r.Bind(record, field, subtypes...); err != nil {
		panic(err)
	}
}

// seal fixes the bindings of ty, returning them.
func (r *Registry) seal(ty reflect.Type) map[string][]Subtype {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sealed[ty] = true
	return r.bindings[ty]
}

