package stage

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ParentPath returns "/" for root prims.
func ParentPath(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

// PrimName is the last element of a prim path.
func PrimName(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r)) {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

// ValidatePath checks an absolute prim path like "/Root/box_0".
func ValidatePath(path string) error {
	if !strings.HasPrefix(path, "/") || path == "/" {
		return errors.Errorf("prim path %q is not an absolute prim path", path)
	}
	for _, name := range strings.Split(path[1:], "/") {
		if !isIdentifier(name) {
			return errors.Errorf("prim path %q has invalid element %q", path, name)
		}
	}
	return nil
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// MakeValidIdentifier turns any string into a prim name: accents are
// dropped, other invalid characters become '_' and a leading digit is prefixed.
func MakeValidIdentifier(s string) string {
	if plain, _, err := transform.String(stripMarks, s); err == nil {
		s = plain
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_', r < unicode.MaxASCII && unicode.IsLetter(r):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
