package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain decodes content as UTF-8, or as Latin-1 when it is not valid UTF-8.
func extractPlain(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	var b strings.Builder
	b.Grow(len(content))
	for _, c := range content {
		b.WriteRune(rune(c))
	}
	return b.String()
}
