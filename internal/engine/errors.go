/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/pingax/gem-sub001/internal/db"
)

var (
	ErrLockedInstance        = errors.New("another instance holds the lock")
	ErrMissingFile           = errors.New("missing file")
	ErrNotADirectory         = errors.New("not a directory")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrMigrationRequired     = errors.New("database migration required")
	ErrMigrationFailed       = db.ErrMigrationFailed
	ErrDuplicateID           = errors.New("duplicate identifier")
	ErrUnknownID             = errors.New("unknown identifier")
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrInvalidValue          = errors.New("invalid value")
	ErrEmulatorBinaryMissing = errors.New("emulator binary not found")
)

// fileError maps a filesystem error on path to the engine error kinds.
func fileError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrMissingFile, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return fmt.Errorf("%s: %w", path, err)
	}
}
