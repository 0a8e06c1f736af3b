package starlark

import (
	"errors"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/leapstack-labs/leaptmpl/pkg/codegen"
	"github.com/leapstack-labs/leaptmpl/pkg/stream"
)

// emitterKey is the thread-local slot holding the render's output.
const emitterKey = "leaptmpl.emitter"

// Predeclared returns the globals every generated program sees: the
// output builtins and struct.
func Predeclared(escape codegen.Escape) starlark.StringDict {
	return starlark.StringDict{
		"__emit":  starlark.NewBuiltin("__emit", emit),
		"__value": starlark.NewBuiltin("__value", value(escape)),
		"struct":  starlark.NewBuiltin("struct", starlarkstruct.Make),
	}
}

// emit outputs template literal text unchanged.
func emit(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &s); err != nil {
		return nil, err
	}
	return starlark.None, send(thread, s)
}

// value outputs a computed str or bytes value under the escape policy.
func value(escape codegen.Escape) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var v starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
			return nil, err
		}

		var s string
		switch v := v.(type) {
		case starlark.String:
			s = string(v)
		case starlark.Bytes:
			s = string(v)
		default:
			return nil, fmt.Errorf("template value must be str or bytes, got %s", v.Type())
		}
		if escape == codegen.EscapeHTML {
			s = stream.Escape(s)
		}
		return starlark.None, send(thread, s)
	}
}

func send(thread *starlark.Thread, s string) error {
	out, ok := thread.Local(emitterKey).(stream.Emitter[string])
	if !ok {
		return errors.New("no output attached to thread")
	}
	if !out.Emit(s) {
		return stream.ErrStopped
	}
	return nil
}
