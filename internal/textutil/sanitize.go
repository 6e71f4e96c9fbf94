package textutil

import (
	"path/filepath"
	"strings"
	"unicode"
)

// FileStem returns the base of name without its extension, made safe for use
// in a directory or file name. Separators, colons and asterisks become
// dashes; quotes, wildcards, pipes and control characters are dropped. An
// empty or dot-only stem yields fallback.
func FileStem(name, fallback string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	stem := strings.TrimSpace(strings.Map(stemRune, base))
	if strings.Trim(stem, ".") == "" {
		return fallback
	}
	return stem
}

func stemRune(r rune) rune {
	switch r {
	case '/', '\\', ':', '*':
		return '-'
	case '?', '"', '<', '>', '|':
		return -1
	}
	if unicode.IsControl(r) {
		return -1
	}
	return r
}
