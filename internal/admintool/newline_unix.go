//go:build !windows
// +build !windows

package admintool

const lineSeparator = "\n"
