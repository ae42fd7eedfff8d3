// Package ident validates the names used for generators, configuration
// values and arguments, and converts them into Go identifiers for generated
// source.
package ident

import (
	"go/token"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z_0-9]*$`)

// Valid reports whether name starts with a letter, continues with letters,
// digits or underscores, and never contains a double underscore.
func Valid(name string) bool {
	return namePattern.MatchString(name) && !strings.Contains(name, "__")
}

// Exported converts a snake_case name to an exported Go identifier:
// "bag_type" becomes "BagType".
func Exported(name string) string {
	title := cases.Title(language.English, cases.NoLower)
	var sb strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		sb.WriteString(title.String(part))
	}
	return sb.String()
}

// Unexported converts a snake_case name to an unexported Go identifier,
// avoiding keywords and the names in reserved.
func Unexported(name string, reserved ...string) string {
	exp := Exported(name)
	if exp == "" {
		return "_"
	}
	out := strings.ToLower(exp[:1]) + exp[1:]
	for token.IsKeyword(out) || contains(reserved, out) {
		out += "Arg"
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
