package starlark

import (
	"fmt"
	"maps"
	"slices"

	"go.starlark.net/starlark"
)

// GoToStarlark converts a Go value to a Starlark value. It covers what
// YAML and flag parsing produce: strings, numbers, bools, lists and
// string-keyed maps.
func GoToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case starlark.Value:
		return val, nil

	case string:
		return starlark.String(val), nil

	case []byte:
		return starlark.Bytes(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case uint64:
		return starlark.MakeUint64(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[string]string:
		dict := starlark.NewDict(len(val))
		for _, k := range sortedKeys(val) {
			if err := dict.SetKey(starlark.String(k), starlark.String(val[k])); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	case map[string]any:
		dict := starlark.NewDict(len(val))
		for _, k := range sortedKeys(val) {
			sv, err := GoToStarlark(val[k])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	case fmt.Stringer:
		return starlark.String(val.String()), nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// Args converts data into keyword arguments for a template. Keys the
// template does not declare are dropped; the result is sorted by name.
func Args(params Params, data map[string]any) ([]starlark.Tuple, error) {
	var kwargs []starlark.Tuple
	for _, k := range sortedKeys(data) {
		if !params.Accepts(k) {
			continue
		}
		v, err := GoToStarlark(data[k])
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", k, err)
		}
		kwargs = append(kwargs, starlark.Tuple{starlark.String(k), v})
	}
	return kwargs, nil
}

// Missing returns the required parameters data does not provide.
func Missing(params Params, data map[string]any) []string {
	var out []string
	for _, name := range params.Required {
		if _, ok := data[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
