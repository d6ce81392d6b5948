package schema

import (
	"encoding/binary"
	"strconv"
	"strings"
	"unicode"

	"github.com/stewi1014/binser/encio"
)

const (
	// TagName is the struct tag binser reads field declarations from.
	//
	// The tag holds the field's order, optionally followed by comma separated options:
	//
	//	len=<n|Field>       the field occupies exactly n bytes, or as many as the named earlier field holds.
	//	count=<n|Field>     a slice field holds n elements, or as many as the named earlier field holds.
	//	endian=big|little   overrides the byte order of numbers in the field.
	//	charset=<name>      IANA character set of a string field, i.e. ISO-8859-1 or UTF-16LE.
	//
	// A tag of "-" excludes the field from encoding and decoding entirely.
	TagName = "bin"

	ignoreTag = "-"
)

type tag struct {
	order   int
	ignore  bool
	length  Binding
	count   Binding
	endian  binary.ByteOrder
	charset string
}

func parseTag(s string) (t tag, err error) {
	if s == ignoreTag {
		t.ignore = true
		return
	}

	parts := strings.Split(s, ",")
	t.order, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return t, encio.Errorf(encio.ErrSchemaDefinition, "field order %q is not an integer", parts[0])
	}
	if t.order < 0 {
		return t, encio.Errorf(encio.ErrSchemaDefinition, "field order %v is negative", t.order)
	}

	for _, opt := range parts[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(opt), "=")
		if !ok || value == "" {
			return t, encio.Errorf(encio.ErrSchemaDefinition, "tag option %q has no value", opt)
		}

		switch key {
		case "len":
			if t.length.Kind != Unbound {
				return t, encio.Errorf(encio.ErrSchemaDefinition, "more than one length binding in tag %q", s)
			}
			t.length, err = parseBinding(value)
		case "count":
			if t.count.Kind != Unbound {
				return t, encio.Errorf(encio.ErrSchemaDefinition, "more than one count binding in tag %q", s)
			}
			t.count, err = parseBinding(value)
		case "endian":
			switch strings.ToLower(value) {
			case "big":
				t.endian = binary.BigEndian
			case "little":
				t.endian = binary.LittleEndian
			default:
				err = encio.Errorf(encio.ErrSchemaDefinition, "unknown byte order %q", value)
			}
		case "charset":
			t.charset = value
		default:
			err = encio.Errorf(encio.ErrSchemaDefinition, "unknown tag option %q", key)
		}

		if err != nil {
			return t, err
		}
	}

	return t, nil
}

func parseBinding(s string) (Binding, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return Binding{}, encio.Errorf(encio.ErrSchemaDefinition, "fixed length %v is negative", n)
		}
		return Binding{Kind: Fixed, N: n}, nil
	}

	for i, r := range s {
		if !(unicode.IsLetter(r) || r == '_' || (i > 0 && unicode.IsDigit(r))) {
			return Binding{}, encio.Errorf(encio.ErrSchemaDefinition, "%q is neither a length nor a field name", s)
		}
	}

	return Binding{Kind: Reference, Ref: s}, nil
}

