// Package golden holds templates compiled with the default options. The
// generated file is checked in and kept current by the codegen tests.
package golden
