//go:build windows
// +build windows

package config

import (
	"fmt"
	"os"
)

// Windows has no executable bit; existence of a regular file is all that can
// be checked.
func checkExecutable(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("not executable: %v", path)
	}
	return nil
}
