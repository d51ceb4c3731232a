// Package slug derives unique URL-safe identifiers from report names.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is the base used when a name has no alphanumeric characters.
const Fallback = "untitled"

var nonAlnum = regexp.MustCompile("[^a-z0-9]+")

// Options tunes slug derivation.
type Options struct {
	// Transliterate folds accented letters to their ASCII base ("Café" ->
	// "cafe") before filtering. Off by default: non-ASCII letters become
	// hyphens.
	Transliterate bool
}

// Base returns the slug base of name, without collision handling.
func Base(name string) string {
	return Options{}.Base(name)
}

// Generate returns the slug for name that is not in existing.
//
// The base is tried first, then base-2, base-3, ... The result depends only
// on the arguments.
func Generate(name string, existing map[string]struct{}) string {
	return Options{}.Generate(name, existing)
}

// Base returns the slug base of name, without collision handling.
func (o Options) Base(name string) string {
	if o.Transliterate {
		name = fold(name)
	}
	s := strings.ToLower(name)
	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// Generate returns the slug for name that is not in existing.
func (o Options) Generate(name string, existing map[string]struct{}) string {
	base := o.Base(name)
	if _, ok := existing[base]; !ok {
		return base
	}
	for i := 2; ; i++ {
		s := base + "-" + strconv.Itoa(i)
		if _, ok := existing[s]; !ok {
			return s
		}
	}
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
