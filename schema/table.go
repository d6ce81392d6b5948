package schema

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/stewi1014/binser/encio"
)

// NewTable returns a new Table taking subtype bindings from registry.
// isCustom reports whether a type encodes itself, in which case its fields are never walked.
// Warnings about degenerate declarations are written to warnings, or encio.Warnings if nil.
func NewTable(registry *Registry, isCustom func(reflect.Type) bool, warnings io.Writer) *Table {
	if registry == nil {
		registry = NewRegistry()
	}
	if isCustom == nil {
		isCustom = func(reflect.Type) bool { return false }
	}
	return &Table{
		registry: registry,
		isCustom: isCustom,
		warnings: warnings,
	}
}

// Table is a cache of compiled Records.
// Each type is compiled at most once, even when first used from many goroutines at the same time;
// after that, lookups don't lock. Types that fail to compile keep failing with the same error.
type Table struct {
	registry *Registry
	isCustom func(reflect.Type) bool
	warnings io.Writer

	records sync.Map // reflect.Type -> *compiled
	group   singleflight.Group
}

type compiled struct {
	record *Record
	err    error
}

// Record returns the compiled Record for ty.
func (t *Table) Record(ty reflect.Type) (*Record, error) {
	if c, ok := t.records.Load(ty); ok {
		return c.(*compiled).record, c.(*compiled).err
	}

	v, _, _ := t.group.Do(fmt.Sprintf("%p", ty), func() (interface{}, error) {
		if c, ok := t.records.Load(ty); ok {
			return c, nil
		}

		c := new(compiled)
		c.record, c.err = t.compile(ty)
		t.records.Store(ty, c)
		return c, nil
	})

	c := v.(*compiled)
	return c.record, c.err
}

// Custom returns true if ty encodes itself.
func (t *Table) Custom(ty reflect.Type) bool {
	return t.isCustom(ty)
}

func (t *Table) compile(ty reflect.Type) (*Record, error) {
	if t.isCustom(ty) {
		return &Record{Type: ty, Custom: true}, nil
	}
	if ty.Kind() != reflect.Struct {
		return nil, encio.At(encio.Errorf(encio.ErrSchemaDefinition, "%v is not a struct and does not encode itself", ty), ty.String(), -1)
	}

	rec := &Record{
		Type:   ty,
		byName: make(map[string]int),
	}
	bindings := t.registry.seal(ty)

	exported := 0
	for i := 0; i < ty.NumField(); i++ {
		if ty.Field(i).IsExported() {
			exported++
		}
	}

	for i := 0; i < ty.NumField(); i++ {
		sf := ty.Field(i)
		path := rec.Name() + "." + sf.Name

		raw, tagged := sf.Tag.Lookup(TagName)
		var tg tag
		switch {
		case !sf.IsExported():
			tg.ignore = true
		case tagged:
			var err error
			if tg, err = parseTag(raw); err != nil {
				return nil, encio.At(err, path, -1)
			}
		case exported != 1:
			return nil, encio.At(encio.Errorf(encio.ErrSchemaDefinition, "field has no %q tag giving its order", TagName), path, -1)
		}

		if tg.ignore {
			if _, ok := bindings[sf.Name]; ok {
				return nil, encio.At(encio.NewError(encio.ErrSchemaDefinition, "subtypes are bound to a field that is not encoded"), path, -1)
			}
			continue
		}

		if err := t.checkType(sf.Type); err != nil {
			return nil, encio.At(err, path, -1)
		}

		f := &Field{
			Name:      sf.Name,
			Index:     i,
			Order:     tg.order,
			Type:      sf.Type,
			Length:    tg.length,
			Count:     tg.count,
			Selector:  -1,
			ByteOrder: tg.endian,
			Custom:    t.isCustom(deref(sf.Type)),
		}

		if tg.charset != "" {
			if elem(sf.Type).Kind() != reflect.String {
				return nil, encio.At(encio.Errorf(encio.ErrSchemaDefinition, "charset %v given for non-string type %v", tg.charset, sf.Type), path, -1)
			}
			enc, err := ianaindex.IANA.Encoding(tg.charset)
			if err != nil || enc == nil {
				return nil, encio.At(encio.Errorf(encio.ErrSchemaDefinition, "unsupported charset %q", tg.charset), path, -1)
			}
			f.Charset = enc
		}

		if f.Count.Bound() && sf.Type.Kind() != reflect.Slice {
			return nil, encio.At(encio.Errorf(encio.ErrSchemaDefinition, "count given for %v, which is not a slice", sf.Type), path, -1)
		}

		rec.Fields = append(rec.Fields, f)
	}

	sort.SliceStable(rec.Fields, func(i, j int) bool {
		return rec.Fields[i].Order < rec.Fields[j].Order
	})

	for i, f := range rec.Fields {
		if i > 0 && rec.Fields[i-1].Order == f.Order {
			return nil, encio.At(
				encio.Errorf(encio.ErrSchemaDefinition, "fields %v and %v share order %v", rec.Fields[i-1].Name, f.Name, f.Order),
				rec.Name(),
				-1,
			)
		}
		rec.byName[f.Name] = i
	}

	for i, f := range rec.Fields {
		path := rec.Name() + "." + f.Name

		if err := rec.bind(i, &f.Length, "length"); err != nil {
			return nil, encio.At(err, path, -1)
		}
		if err := rec.bind(i, &f.Count, "count"); err != nil {
			return nil, encio.At(err, path, -1)
		}
		if err := t.subtypes(rec, i, bindings[f.Name]); err != nil {
			return nil, encio.At(err, path, -1)
		}
	}

	return rec, nil
}

// bind resolves a Reference binding of the field at pos.
func (r *Record) bind(pos int, b *Binding, what string) error {
	if b.Kind != Reference {
		return nil
	}

	target, ok := r.byName[b.Ref]
	switch {
	case !ok:
		return encio.Errorf(encio.ErrSchemaDefinition, "%v refers to %v, which is not an encoded field", what, b.Ref)
	case target >= pos:
		return encio.Errorf(encio.ErrSchemaDefinition, "%v refers to %v, which does not come before it", what, b.Ref)
	case !numeric(r.Fields[target].Type):
		return encio.Errorf(encio.ErrSchemaDefinition, "%v refers to %v, which is of non-numeric type %v", what, b.Ref, r.Fields[target].Type)
	case r.Fields[target].Sized:
		return encio.Errorf(encio.ErrSchemaDefinition, "%v refers to %v, which already sizes %v", what, b.Ref, r.Fields[r.Fields[target].Sizes].Name)
	}

	r.Fields[target].Sized = true
	r.Fields[target].Sizes = pos
	b.Target = target
	return nil
}

// subtypes checks and attaches subtype bindings to the field at pos.
func (t *Table) subtypes(rec *Record, pos int, subtypes []Subtype) error {
	f := rec.Fields[pos]
	base := elem(f.Type)

	if base.Kind() != reflect.Interface {
		if len(subtypes) > 0 {
			return encio.Errorf(encio.ErrSchemaDefinition, "subtypes bound to %v, which is not an interface", f.Type)
		}
		return nil
	}
	if len(subtypes) == 0 {
		return encio.Errorf(encio.ErrSchemaDefinition, "interface %v has no subtypes bound", f.Type)
	}

	for _, s := range subtypes {
		if !s.Type.Implements(base) {
			return encio.Errorf(encio.ErrSchemaDefinition, "subtype %v does not implement %v", s.Type, base)
		}
		if err := t.checkType(s.Type); err != nil {
			return err
		}

		if s.Selector == "" {
			if f.Default != nil {
				return encio.Errorf(encio.ErrSchemaDefinition, "more than one default subtype; %v and %v", f.Default, s.Type)
			}
			f.Default = s.Type
			continue
		}

		sel, ok := rec.byName[s.Selector]
		switch {
		case !ok:
			return encio.Errorf(encio.ErrSchemaDefinition, "selector %v is not an encoded field", s.Selector)
		case sel >= pos:
			return encio.Errorf(encio.ErrSchemaDefinition, "selector %v does not come before the field it selects for", s.Selector)
		case f.Selector >= 0 && f.Selector != sel:
			return encio.Errorf(encio.ErrSchemaDefinition, "subtypes use more than one selector; %v and %v", rec.Fields[f.Selector].Name, s.Selector)
		case rec.Fields[sel].Selects && f.Selector != sel:
			return encio.Errorf(encio.ErrSchemaDefinition, "selector %v already selects for another field", s.Selector)
		}

		selType := rec.Fields[sel].Type
		lit, ok := convertLiteral(s.Value, selType)
		if !ok {
			return encio.Errorf(encio.ErrSchemaDefinition, "selector value %#v of subtype %v cannot be compared with %v of type %v", s.Value, s.Type, s.Selector, selType)
		}
		s.value = lit

		for _, existing := range f.Subtypes {
			if existing.value.Interface() == lit.Interface() {
				encio.Fwarnf(t.warnings, "%v.%v binds selector value %#v to both %v and %v; %v wins", rec.Name(), f.Name, s.Value, existing.Type, s.Type, existing.Type)
			}
		}

		f.Selector = sel
		rec.Fields[sel].Selects = true
		f.Subtypes = append(f.Subtypes, s)
	}

	return nil
}

// checkType returns an error if ty cannot be encoded.
func (t *Table) checkType(ty reflect.Type) error {
	if t.isCustom(ty) {
		return nil
	}

	switch ty.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String, reflect.Struct, reflect.Interface:
		return nil
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return encio.Errorf(encio.ErrSchemaDefinition, "%v is platform sized; use a sized integer type", ty)
	case reflect.Ptr:
		if ty.Elem().Kind() == reflect.Ptr {
			return encio.Errorf(encio.ErrSchemaDefinition, "%v is a pointer to a pointer", ty)
		}
		return t.checkType(ty.Elem())
	case reflect.Slice, reflect.Array:
		return t.checkType(ty.Elem())
	default:
		return encio.Errorf(encio.ErrSchemaDefinition, "cannot encode %v of kind %v", ty, ty.Kind())
	}
}

func numeric(ty reflect.Type) bool {
	switch ty.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	default:
		return false
	}
}

// deref returns the type pointed to by ty, or ty if it is not a pointer.
func deref(ty reflect.Type) reflect.Type {
	if ty.Kind() == reflect.Ptr {
		return ty.Elem()
	}
	return ty
}

// elem returns the element type of slices and arrays, all the way down.
func elem(ty reflect.Type) reflect.Type {
	for ty.Kind() == reflect.Slice || ty.Kind() == reflect.Array {
		ty = ty.Elem()
	}
	return ty
}

// convertLiteral converts a selector value to the type of the selector field.
// Numbers convert to numbers, strings to strings, and strings to byte arrays of the same length.
func convertLiteral(v interface{}, ty reflect.Type) (reflect.Value, bool) {
	val := reflect.ValueOf(v)
	if !val.IsValid() || !ty.Comparable() {
		return reflect.Value{}, false
	}
	if val.Type() == ty {
		return val, true
	}

	switch {
	case ty.Kind() == reflect.Array && ty.Elem().Kind() == reflect.Uint8 && val.Kind() == reflect.String:
		if val.Len() != ty.Len() {
			return reflect.Value{}, false
		}
		arr := reflect.New(ty).Elem()
		reflect.Copy(arr, reflect.ValueOf([]byte(val.String())))
		return arr, true

	case val.Kind() == reflect.String && ty.Kind() == reflect.String,
		val.Kind() == reflect.Bool && ty.Kind() == reflect.Bool:
		return val.Convert(ty), true

	case isNumber(val.Kind()) && isNumber(ty.Kind()):
		conv := val.Convert(ty)
		if conv.Convert(val.Type()).Interface() != val.Interface() {
			// doesn't fit
			return reflect.Value{}, false
		}
		return conv, true
	}

	return reflect.Value{}, false
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}
