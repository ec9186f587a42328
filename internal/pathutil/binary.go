/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pathutil

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ResolveBinary lists the absolute paths name can refer to. When name is an
// existing path it comes first; every PATH entry holding a file with the same
// base name follows, in PATH order and without duplicates.
func ResolveBinary(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	var found []string
	seen := make(map[string]struct{})
	add := func(candidate string) {
		if abs, err := filepath.Abs(candidate); err == nil {
			candidate = abs
		}
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		found = append(found, candidate)
	}

	expanded := ExpandUser(name)
	if strings.ContainsRune(expanded, os.PathSeparator) || filepath.IsAbs(expanded) {
		if isFile(expanded) {
			add(expanded)
		}
	}

	base := filepath.Base(expanded)
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, base)
		if isFile(candidate) {
			add(candidate)
		}
	}

	return found
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ExtensionPattern turns an extension into a glob fragment matching both case
// variants of every letter, e.g. "nes" becomes "[nN][eE][sS]". The dot and
// other characters pass through literally; glob metacharacters are escaped.
func ExtensionPattern(ext string) string {
	var b strings.Builder
	for _, r := range ext {
		lower, upper := unicode.ToLower(r), unicode.ToUpper(r)
		switch {
		case lower != upper:
			b.WriteByte('[')
			b.WriteRune(lower)
			b.WriteRune(upper)
			b.WriteByte(']')
		case strings.ContainsRune(`*?[]{}\`, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
