package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength is the maximum length of a generated slug
const MaxSlugLength = 220

// Slugify converts an arbitrary string into a URL-safe slug:
// lowercase ASCII letters, digits and hyphens. Accented characters
// are folded to their base form; everything else collapses to a
// single hyphen.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	lastHyphen := true // suppress leading hyphens
	for _, r := range strings.ToLower(folded) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > MaxSlugLength {
		slug = strings.Trim(slug[:MaxSlugLength], "-")
	}
	return slug
}

// UniqueSlug generates a slug for base that does not collide with
// existing slugs, appending -1, -2, ... until a free one is found.
// The exists func reports whether a candidate slug is already taken.
func UniqueSlug(base string, exists func(slug string) (bool, error)) (string, error) {
	slug := Slugify(base)
	if slug == "" {
		slug = "item"
	}

	candidate := slug
	for n := 1; ; n++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", slug, n)
	}
}
