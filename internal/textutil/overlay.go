package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var titleCaser = cases.Title(language.Und)

// NormalizeOverlayText prepares user text for burn-in: NFC composed, control
// characters dropped, whitespace runs collapsed to one space.
func NormalizeOverlayText(value string) string {
	value = norm.NFC.String(value)
	var b strings.Builder
	b.Grow(len(value))
	space := false
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Title converts a dash or underscore separated token into a display label,
// e.g. "overwrite-all" becomes "Overwrite All".
func Title(token string) string {
	token = strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(token))
	return titleCaser.String(token)
}
