package starlark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestGoToStarlark(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantStr string
		wantErr bool
	}{
		{name: "string", input: "hello", wantStr: `"hello"`},
		{name: "bytes", input: []byte("hi"), wantStr: `b"hi"`},
		{name: "int", input: 42, wantStr: "42"},
		{name: "int64", input: int64(123456789), wantStr: "123456789"},
		{name: "uint64", input: uint64(7), wantStr: "7"},
		{name: "float64", input: 3.14, wantStr: "3.14"},
		{name: "bool true", input: true, wantStr: "True"},
		{name: "bool false", input: false, wantStr: "False"},
		{name: "nil", input: nil, wantStr: "None"},
		{name: "string slice", input: []string{"a", "b", "c"}, wantStr: `["a", "b", "c"]`},
		{name: "empty string slice", input: []string{}, wantStr: "[]"},
		{name: "any slice", input: []any{"x", 1, true}, wantStr: `["x", 1, True]`},
		{name: "map", input: map[string]any{"key": "value"}, wantStr: `{"key": "value"}`},
		{name: "map sorted", input: map[string]any{"b": 2, "a": 1}, wantStr: `{"a": 1, "b": 2}`},
		{name: "string map", input: map[string]string{"k": "v"}, wantStr: `{"k": "v"}`},
		{name: "nested", input: map[string]any{"items": []any{map[string]any{"n": 1}}}, wantStr: `{"items": [{"n": 1}]}`},
		{name: "starlark value", input: starlark.MakeInt(5), wantStr: "5"},
		{name: "stringer", input: 2 * time.Second, wantStr: `"2s"`},
		{name: "unsupported", input: struct{}{}, wantErr: true},
		{name: "unsupported in list", input: []any{struct{}{}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GoToStarlark(tt.input)
			if tt.wantErr {
				assert.Error(t, err, "expected error")
				return
			}
			require.NoError(t, err, "unexpected error")
			assert.Equal(t, tt.wantStr, got.String(), "GoToStarlark()")
		})
	}
}

func TestArgs(t *testing.T) {
	params := Params{Names: []string{"title", "items"}, Required: []string{"title"}}
	data := map[string]any{"title": "T", "items": []string{"a"}, "extra": 1}

	kwargs, err := Args(params, data)
	require.NoError(t, err)
	require.Len(t, kwargs, 2, "undeclared keys are dropped")
	assert.Equal(t, starlark.String("items"), kwargs[0][0])
	assert.Equal(t, starlark.String("title"), kwargs[1][0])

	all, err := Args(Params{Kwargs: true}, data)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = Args(params, map[string]any{"title": struct{}{}})
	assert.ErrorContains(t, err, `argument "title"`)
}

func TestMissing(t *testing.T) {
	params := Params{Names: []string{"a", "b", "c"}, Required: []string{"a", "b"}}
	assert.Equal(t, []string{"b"}, Missing(params, map[string]any{"a": 1}))
	assert.Empty(t, Missing(params, map[string]any{"a": 1, "b": 2}))
}
