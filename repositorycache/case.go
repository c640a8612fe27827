package repositorycache

import (
	"strings"
	"unicode"
)

// EntityName normalises an entity name for use as a cache namespace.
// Package qualifiers and pointer markers are dropped and the remainder is
// converted to snake_case: "*models.ProductCategory" becomes "product_category".
func EntityName(name string) string {
	name = strings.TrimLeft(name, "*")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return toSnake(name)
}

// toSnake converts s to snake_case. Any rune that is not a letter or digit
// becomes a single separator so the result is safe inside redis keys.
func toSnake(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	pending := false
	sep := func() {
		if b.Len() > 0 {
			pending = true
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sep()
				}
			}
			r = unicode.ToLower(r)
		case unicode.IsLower(r):
		case unicode.IsDigit(r):
			if i > 0 && unicode.IsLetter(runes[i-1]) {
				sep()
			}
		default:
			sep()
			continue
		}

		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(r)
	}

	return b.String()
}
