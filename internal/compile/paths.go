package compile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Host is the host language of a template file, chosen by extension.
type Host string

// Host constants.
const (
	HostGo       Host = "go"
	HostStarlark Host = "starlark"
)

// Template file extensions.
const (
	ExtGo       = ".gtpl"
	ExtStarlark = ".stpl"
)

// HostFor returns the host language of path.
func HostFor(path string) (Host, bool) {
	switch filepath.Ext(path) {
	case ExtGo:
		return HostGo, true
	case ExtStarlark:
		return HostStarlark, true
	}
	return "", false
}

// Collect expands path patterns into absolute template file paths,
// relative to cwd. A pattern is a file, a directory (its templates, not
// recursive) or a recursive `dir/...`. Only files with one of exts are
// returned; a named file with another extension is an error. Each path
// appears once, in discovery order.
func Collect(cwd string, patterns []string, exts ...string) ([]string, error) {
	if len(exts) == 0 {
		exts = []string{ExtGo, ExtStarlark}
	}
	match := func(name string) bool {
		for _, ext := range exts {
			if strings.HasSuffix(name, ext) {
				return true
			}
		}
		return false
	}

	seen := map[string]bool{}
	var out []string
	add := func(p string) error {
		abs, err := absFrom(cwd, p)
		if err != nil {
			return err
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
		return nil
	}

	for _, raw := range patterns {
		pat := strings.TrimSpace(raw)
		if pat == "" {
			continue
		}

		if strings.HasSuffix(pat, "/...") || pat == "..." {
			base := strings.TrimSuffix(strings.TrimSuffix(pat, "..."), "/")
			if base == "" {
				base = "."
			}
			dir, err := absFrom(cwd, base)
			if err != nil {
				return nil, err
			}
			if err := walk(dir, match, add); err != nil {
				return nil, err
			}
			continue
		}

		target, err := absFrom(cwd, pat)
		if err != nil {
			return nil, err
		}
		st, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			entries, err := os.ReadDir(target)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !e.IsDir() && match(e.Name()) {
					if err := add(filepath.Join(target, e.Name())); err != nil {
						return nil, err
					}
				}
			}
			continue
		}
		if !match(target) {
			return nil, fmt.Errorf("not a template file (want %s): %s", strings.Join(exts, " or "), target)
		}
		if err := add(target); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// walk visits template files under root, skipping hidden, vendor and
// node_modules directories.
func walk(root string, match func(string) bool, add func(string) error) error {
	return filepath.WalkDir(root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			if path != root && SkipDir(de.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if match(de.Name()) {
			return add(path)
		}
		return nil
	})
}

// SkipDir reports whether a directory is never searched for templates.
func SkipDir(name string) bool {
	return name == "vendor" || name == "node_modules" || (strings.HasPrefix(name, ".") && name != ".")
}

func absFrom(cwd, p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(cwd, p)
	}
	return filepath.Abs(p)
}
