package testhelper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FakeAdminTool describes the behaviour of a fake administration tool.
type FakeAdminTool struct {
	// MergedContent is written to the path of every SaveAs command.
	MergedContent string
	// ComparisonCSV is written to the output path of every Compare command.
	ComparisonCSV []byte
	// Stdout is printed to the standard output before exiting.
	Stdout string
	// Stderr is printed to the standard error before exiting.
	Stderr string
	// ExitCode is the exit code of the tool.
	ExitCode int
}

// FakeAdminToolInvocation gives access to what the fake tool recorded
// during its last run.
type FakeAdminToolInvocation struct {
	stateDir string
}

// Script returns the script file passed to the last invocation.
func (i FakeAdminToolInvocation) Script(tb testing.TB) string {
	return string(MustReadFile(tb, filepath.Join(i.stateDir, "last-commands.usa")))
}

// Args returns the command line arguments of the last invocation.
func (i FakeAdminToolInvocation) Args(tb testing.TB) []string {
	return strings.Fields(string(MustReadFile(tb, filepath.Join(i.stateDir, "last-args"))))
}

// Dir returns the working directory of the last invocation.
func (i FakeAdminToolInvocation) Dir(tb testing.TB) string {
	return strings.TrimSpace(string(MustReadFile(tb, filepath.Join(i.stateDir, "last-dir"))))
}

// Ran reports whether the tool was invoked at all.
func (i FakeAdminToolInvocation) Ran() bool {
	_, err := os.Stat(filepath.Join(i.stateDir, "last-args"))
	return err == nil
}

// WriteFakeAdminTool writes a shell script behaving like the administration
// tool: it executes the `/Command <file>` script it is given, writing
// MergedContent for SaveAs and ComparisonCSV for Compare. OpenOffline fails
// with exit code 5 if the repository file does not exist.
func WriteFakeAdminTool(tb testing.TB, tool FakeAdminTool) (string, FakeAdminToolInvocation) {
	dir := TempDir(tb)

	csvPath := filepath.Join(dir, "comparison.csv")
	MustWriteFile(tb, csvPath, tool.ComparisonCSV)

	mergedPath := filepath.Join(dir, "merged.rpd")
	MustWriteFile(tb, mergedPath, []byte(tool.MergedContent))

	var output string
	if tool.Stdout != "" {
		output = fmt.Sprintf("echo %q\n", tool.Stdout)
	}
	if tool.Stderr != "" {
		output += fmt.Sprintf("echo %q >&2", tool.Stderr)
	}

	script := fmt.Sprintf(`#!/bin/sh
state=%[1]q
cp "$2" "$state/last-commands.usa"
echo "$@" >"$state/last-args"
pwd >"$state/last-dir"
while read -r verb a1 a2 a3 a4 a5 a6 || [ -n "$verb" ]; do
	case "$verb" in
	OpenOffline) test -f "$a1" || exit 5 ;;
	SaveAs) cp %[2]q "$a1" ;;
	Compare) test -f "$a1" || exit 6; cp %[3]q "$a3" ;;
	esac
done <"$2"
%[4]s
exit %[5]d
`, dir, mergedPath, csvPath, output, tool.ExitCode)

	path := WriteExecutable(tb, filepath.Join(dir, "bin", "admintool"), []byte(script))
	return path, FakeAdminToolInvocation{stateDir: dir}
}
