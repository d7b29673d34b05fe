// Package util provides small string helpers for cleaning command arguments.
package util

import (
	"strconv"
	"strings"
)

// TrimQuotes removes one enclosing pair of double quotes. Inner quotes,
// including escaped ones at either end, are left alone.
func TrimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArgs trims whitespace and the enclosing quote pair from every
// argument, then unescapes doubled quotes. It works in place and returns
// the slice.
func CleanArgs(args []string) []string {
	for i, v := range args {
		args[i] = FixEscapeQuotes(TrimQuotes(strings.TrimSpace(v)))
	}
	return args
}

// ParseOptionalFloat parses s as a float. An empty string yields nil.
func ParseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
