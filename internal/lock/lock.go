/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package lock implements the per-user instance lock: a pid file that a
// second instance of the same program refuses to overwrite.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Lock is the state of the pid file after an acquisition attempt.
type Lock struct {
	path    string
	program string
	pid     int
	locked  bool
	logger  zerolog.Logger
}

// Acquire reads the pid file at path. When the recorded process is still
// running and its command line mentions program, the lock is reported as held
// by that process and the file is left alone. Otherwise the current pid is
// written.
func Acquire(path, program string, logger zerolog.Logger) (*Lock, error) {
	l := &Lock{
		path:    path,
		program: program,
		pid:     os.Getpid(),
		logger:  logger.With().Str("component", "lock").Logger(),
	}

	if holder, ok := readPID(path); ok {
		if isRunning(holder) && commandLineMentions(holder, program) {
			l.pid = holder
			l.locked = true
			l.logger.Warn().Int("pid", holder).Str("path", path).Msg("instance lock held by another process")
			return l, nil
		}
		l.logger.Debug().Int("pid", holder).Msg("overwriting stale lock")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(l.pid)), 0o644); err != nil {
		return nil, fmt.Errorf("write lock %s: %w", path, err)
	}
	return l, nil
}

// Locked reports whether another instance holds the lock.
func (l *Lock) Locked() bool {
	return l.locked
}

// PID returns the pid recorded in the lock: the holder's when Locked, the
// current process otherwise.
func (l *Lock) PID() int {
	return l.pid
}

// Path returns the pid file path.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the pid file. A lock held by another process is never
// removed.
func (l *Lock) Release() error {
	if l.locked {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock %s: %w", l.path, err)
	}
	return nil
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
