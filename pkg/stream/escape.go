package stream

import "html"

// Escape escapes the five HTML special characters in v. Generated code
// applies it to computed values; template literals are never escaped.
func Escape[T Chunk](v T) T {
	return T(html.EscapeString(string(v)))
}
