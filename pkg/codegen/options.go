package codegen

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leaptmpl/pkg/stream"
)

// DefaultStreamImport is the import path of the runtime package generated
// code depends on.
const DefaultStreamImport = "github.com/leapstack-labs/leaptmpl/pkg/stream"

// Escape is the escaping policy for computed values. Literal text is never
// escaped.
type Escape string

// Escape constants.
const (
	EscapeHTML Escape = "html"
	EscapeNone Escape = "none"
)

// ItemType is the type of the items a generated template emits.
type ItemType string

// ItemType constants.
const (
	ItemString ItemType = "string"
	ItemBytes  ItemType = "bytes"
)

// GoType returns the Go spelling of t.
func (t ItemType) GoType() string {
	if t == ItemBytes {
		return "[]byte"
	}
	return "string"
}

// Options controls code generation.
type Options struct {
	ItemType       ItemType
	Bridge         stream.Bridge
	Escape         Escape
	LineDirectives bool   // Emit /*line*/ comments mapping host code to the template
	StreamImport   string // Defaults to DefaultStreamImport
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ItemType:     ItemString,
		Bridge:       stream.Cooperative,
		Escape:       EscapeHTML,
		StreamImport: DefaultStreamImport,
	}
}

// WithDefaults returns o with every unset field taken from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.ItemType == "" {
		o.ItemType = d.ItemType
	}
	if o.Bridge == "" {
		o.Bridge = d.Bridge
	}
	if o.Escape == "" {
		o.Escape = d.Escape
	}
	if o.StreamImport == "" {
		o.StreamImport = d.StreamImport
	}
	return o
}

// Validate checks that every option has a known value.
func (o Options) Validate() error {
	if o.ItemType != ItemString && o.ItemType != ItemBytes {
		return fmt.Errorf("invalid item type %q: must be %q or %q", o.ItemType, ItemString, ItemBytes)
	}
	if !slices.Contains(stream.Bridges, o.Bridge) {
		return fmt.Errorf("invalid bridge %q: must be %q or %q", o.Bridge, stream.Cooperative, stream.Channel)
	}
	if o.Escape != EscapeHTML && o.Escape != EscapeNone {
		return fmt.Errorf("invalid escape policy %q: must be %q or %q", o.Escape, EscapeHTML, EscapeNone)
	}
	return nil
}

func (o Options) constructor() string {
	if o.Bridge == stream.Channel {
		return "NewChannel"
	}
	return "NewCooperative"
}

func (o Options) streamImport() string {
	if o.StreamImport == "" {
		return DefaultStreamImport
	}
	return o.StreamImport
}
