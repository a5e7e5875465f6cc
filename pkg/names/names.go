// Package names normalizes and validates the names used throughout a catalog:
// dataset short names, table short names, and column names.
// Canonical names are underscore-cased: see dfapi.NameFormat.
package names

import (
	"regexp"
	"strings"

	"github.com/dataforge/dataforge/dfapi"
)

// replacer converts meaning-bearing symbols to tokens before the remaining
// punctuation is flattened to underscores.
// Order matters: "US$" must win over "$".
var replacer = strings.NewReplacer(
	"US$", "usd",
	"$", "dollar",
	"%", "pct",
	"+", "plus",
	"&", "_and_",
	"<", "_lt_",
	">", "_gt_",
	"≥", "_gte_",
	"≤", "_lte_",
	"'", "",
	"’", "",
	"‘", "",
	"“", "",
	"”", "",
	"\"", "",
	"(", "__",
	")", "__",
	"[", "__",
	"]", "__",
	":", "__",
	";", "__",
)

var (
	reNonAlnum    = regexp.MustCompile(`[^a-z0-9_]`)
	reUnderscores = regexp.MustCompile(`___+`)
)

// Underscore converts a human readable title into an underscore-cased name,
// e.g. "GDP per capita, PPP (current international $)"
// becomes "gdp_per_capita__ppp__current_international_dollar".
// Parenthesized phrases keep a double underscore as their seam.
func Underscore(name string) string {
	s := replacer.Replace(name)
	s = strings.ToLower(s)
	s = reNonAlnum.ReplaceAllString(s, "_")
	s = reUnderscores.ReplaceAllString(s, "__")
	return strings.Trim(s, "_")
}

// ValidateUnderscore errors unless the given name is already in canonical
// underscore form. The context string names the thing being validated and
// is included in the error message.
//
// Errors:
//
//    - dataforge-error-name -- when the name is not underscore-cased
func ValidateUnderscore(name string, context string) error {
	if !dfapi.ValidName(name) {
		return dfapi.ErrorName(name, context+" must be underscore-cased")
	}
	return nil
}
