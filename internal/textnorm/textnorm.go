// Package textnorm folds Turkish text into the comparable form used by every
// matching step: Turkish lower-casing, a fixed diacritic fold table and
// whitespace collapsing.
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// foldTable maps the Turkish letters that users and upstream pages write
// interchangeably with their ASCII base letter. An "i" followed by a
// combining dot above is what a non-Turkish lower-casing of "İ" leaves
// behind; the dot is kept after any other letter.
var foldTable = strings.NewReplacer(
	"ı", "i",
	"ğ", "g",
	"ü", "u",
	"ş", "s",
	"ö", "o",
	"ç", "c",
	"i\u0307", "i",
)

// Normalize lower-cases s with Turkish rules, folds the confusable letters and
// collapses whitespace runs to a single space. It is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// A Caser keeps state between calls, so each call gets its own.
	lowered := cases.Lower(language.Turkish).String(s)
	return strings.Join(strings.Fields(foldTable.Replace(lowered)), " ")
}

// ContainsAny reports whether the normalized text contains any normalized needle.
func ContainsAny(text string, needles []string) bool {
	_, ok := FirstMatch(text, needles)
	return ok
}

// FirstMatch returns the first needle (in list order) whose normalized form
// occurs in the normalized text.
func FirstMatch(text string, needles []string) (string, bool) {
	t := Normalize(text)
	if t == "" {
		return "", false
	}
	for _, n := range needles {
		nn := Normalize(n)
		if nn != "" && strings.Contains(t, nn) {
			return n, true
		}
	}
	return "", false
}

// Unique normalizes every entry and drops empty values and duplicates,
// keeping first-occurrence order.
func Unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := Normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
