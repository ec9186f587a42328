/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build unix

package lock

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

func isRunning(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// commandLineMentions reads /proc/<pid>/cmdline, falling back to ps(1) where
// procfs is not mounted. When neither is available the process is assumed to
// be ours.
func commandLineMentions(pid int, program string) bool {
	if program == "" {
		return true
	}

	raw, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err == nil {
		return strings.Contains(string(bytes.ReplaceAll(raw, []byte{0}, []byte{' '})), program)
	}

	out, err := exec.Command("ps", "-o", "command=", "-p", fmt.Sprint(pid)).Output()
	if err != nil {
		return true
	}
	return strings.Contains(string(out), program)
}
