/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build !unix

package lock

import "os"

func isRunning(pid int) bool {
	p, err := os.FindProcess(pid)
	return err == nil && p != nil
}

func commandLineMentions(int, string) bool {
	return true
}
