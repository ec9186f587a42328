/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build !linux

package pathutil

import (
	"hash/fnv"
	"os"
	"path/filepath"
	"time"
)

// fileIdentity hashes the absolute path; the inode is only read on linux.
func fileIdentity(path string, _ os.FileInfo) (uint64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(abs))
	return h.Sum64() >> 16, nil
}

// CreationTime falls back to the modification time.
func CreationTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
