package binser

import (
	"encoding/binary"
	"io"

	"github.com/stewi1014/binser/schema"
)

// Config defines configuration for Serializers.
// Nil values are default.
type Config struct {
	// ByteOrder is the byte order of numbers, unless overridden by a field's `endian` option.
	// If nil, binary.LittleEndian is used.
	ByteOrder binary.ByteOrder

	// Registry holds the subtype bindings of polymorphic fields.
	// If nil, DefaultRegistry is used, and subtypes should be bound with the package-level Register().
	Registry *schema.Registry

	// Warnings is where warnings are written. If nil, encio.Warnings is used.
	Warnings io.Writer

	// WarnUnderread enables a warning whenever a length bound field is decoded without consuming all of its bytes.
	// The remaining bytes are always skipped, warning or not.
	WarnUnderread bool
}

func (c *Config) copyAndFill() *Config {
	config := new(Config)
	if c != nil {
		*config = *c
	}

	if config.ByteOrder == nil {
		config.ByteOrder = binary.LittleEndian
	}
	if config.Registry == nil {
		config.Registry = DefaultRegistry
	}

	return config
}
