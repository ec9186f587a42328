/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package pathutil holds the small helpers the library engine builds on:
// identifier slugs, duration and date parsing, binary lookup and extension
// patterns.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Slug lowercases text, collapses every run of characters that are neither
// letters nor digits into a single dash and trims dashes at both ends.
func Slug(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingDash := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	return b.String()
}

// PathSlug returns the slug of the file stem followed by the file's inode
// number (or an equivalent unique number on platforms without inodes), so two
// files sharing a name in different directories get distinct identifiers.
func PathSlug(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if info.IsDir() {
		stem = base
	}

	unique, err := fileIdentity(path, info)
	if err != nil {
		return "", err
	}

	slug := Slug(stem)
	if slug == "" {
		return fmt.Sprintf("%d", unique), nil
	}
	return fmt.Sprintf("%s-%d", slug, unique), nil
}

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ExpandUser replaces a leading "~" with the current user's home directory.
// The path is returned unchanged when the home directory is unknown.
func ExpandUser(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
