package export

import (
	"fmt"
	"strings"
	"unicode"
)

const maxEntryTitleRunes = 80

// SanitizeName replaces characters outside the archive-safe allow-list
// (letters, digits, space, hyphen, underscore, parentheses, brackets,
// period, comma) with underscores, drops control characters, trims
// surrounding whitespace and truncates to maxLen runes. Idempotent.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')', '[', ']':
		return true
	default:
		return false
	}
}

// EntryName builds a collision-resistant archive entry name of the form
// "NN - Title.ext" from a human-supplied title, a 1-based ordinal and
// the source locator the extension is derived from. Never fails; an
// empty title falls back to "Track NN" and an underivable extension to
// "mp3".
func EntryName(rawTitle string, index int, locator string) string {
	idx := fmt.Sprintf("%02d", index)

	title := SanitizeName(rawTitle, maxEntryTitleRunes)
	if title == "" {
		title = "Track " + idx
	}

	return idx + " - " + title + "." + ExtensionFromLocator(locator)
}

// ExtensionFromLocator derives a lowercase file extension from the path
// component of a URL or storage key: query string stripped, last
// dot-delimited segment. Falls back to "mp3".
func ExtensionFromLocator(locator string) string {
	path := locator
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}

	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || dot == len(path)-1 {
		return "mp3"
	}
	ext := strings.ToLower(path[dot+1:])
	if len(ext) > 8 {
		return "mp3"
	}
	for _, r := range ext {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "mp3"
		}
	}
	return ext
}

// Slugify folds a title to a URL- and key-safe slug: lowercase ASCII,
// runs of non-alphanumerics collapsed to single hyphens, capped at 60
// characters, "item" when nothing survives.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if folded := foldASCII(r); folded != 0 {
				b.WriteRune(folded)
				lastHyphen = false
			} else if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	if slug == "" {
		return "item"
	}
	return slug
}

// foldASCII maps common accented Latin letters to their base letter,
// returning 0 for runes with no mapping.
func foldASCII(r rune) rune {
	switch r {
	case 'à', 'á', 'â', 'ã', 'ä', 'å':
		return 'a'
	case 'è', 'é', 'ê', 'ë':
		return 'e'
	case 'ì', 'í', 'î', 'ï':
		return 'i'
	case 'ò', 'ó', 'ô', 'õ', 'ö':
		return 'o'
	case 'ù', 'ú', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	case 'ñ':
		return 'n'
	default:
		return 0
	}
}
