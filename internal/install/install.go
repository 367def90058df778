// Package install registers the driver with git.
package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"gitlab.com/us-analytics/merge-rpd/internal/command"
	"gitlab.com/us-analytics/merge-rpd/internal/log"
)

const (
	// DefaultName is the default name of the driver in git configuration
	// and attributes.
	DefaultName = "rpd"
	// DefaultPattern is the default attributes pattern selecting repository
	// files.
	DefaultPattern = "*.rpd"
	// DriverDescription is the human readable name of the merge driver.
	DriverDescription = "RPD merge driver"
	// AttributesFileName is the name of the attributes file in the root of
	// the repository.
	AttributesFileName = ".gitattributes"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][-A-Za-z0-9_]*$`)

// ErrInvalidName is returned for driver names git would not accept as a
// configuration subsection in attributes.
var ErrInvalidName = errors.New("invalid driver name")

// Options controls what Install writes.
type Options struct {
	// GitBinPath is the git executable used to write the configuration.
	GitBinPath string
	// Executable is the path of the driver executable git will run.
	Executable string
	// ConfigPath is passed to the driver with -config when set.
	ConfigPath string
	// Name is the driver name. Defaults to DefaultName.
	Name string
	// Global writes the user's global configuration instead of the
	// repository's.
	Global bool
	// Attributes is the attributes file to update. Defaults to
	// .gitattributes in the root of the repository containing Dir.
	Attributes string
	// Pattern selects the files handled by the driver. Defaults to
	// DefaultPattern.
	Pattern string
	// Dir is the directory git runs in.
	Dir string
}

// ConfigEntry is a single git configuration value.
type ConfigEntry struct {
	Key   string
	Value string
}

// Result describes the changes made by Install.
type Result struct {
	Config          []ConfigEntry
	Attributes      string
	AttributesAdded []string
}

// ConfigEntries returns the git configuration registering the driver.
func ConfigEntries(opts Options) []ConfigEntry {
	driver := quote(filepath.ToSlash(opts.Executable))
	if opts.ConfigPath != "" {
		driver += " -config " + quote(filepath.ToSlash(opts.ConfigPath))
	}

	return []ConfigEntry{
		{Key: "merge." + opts.Name + ".name", Value: DriverDescription},
		{Key: "merge." + opts.Name + ".driver", Value: driver + " merge %O %A %B %P"},
		{Key: "diff." + opts.Name + ".command", Value: driver + " diff"},
		{Key: "difftool." + opts.Name + ".cmd", Value: driver + ` difftool "$LOCAL" "$REMOTE"`},
	}
}

// AttributeLines returns the attributes assigning the driver to files
// matching the pattern.
func AttributeLines(opts Options) []string {
	return []string{
		opts.Pattern + " merge=" + opts.Name,
		opts.Pattern + " diff=" + opts.Name,
	}
}

// Install writes the git configuration and attributes for the driver.
func Install(ctx context.Context, opts Options) (Result, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}

	if !validName.MatchString(opts.Name) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidName, opts.Name)
	}
	if strings.ContainsAny(opts.Pattern, "\r\n") {
		return Result{}, fmt.Errorf("invalid pattern: %q", opts.Pattern)
	}

	result := Result{Config: ConfigEntries(opts)}

	for _, entry := range result.Config {
		args := []string{"config"}
		if opts.Global {
			args = append(args, "--global")
		}
		args = append(args, entry.Key, entry.Value)

		if _, err := runGit(ctx, opts, args...); err != nil {
			return Result{}, fmt.Errorf("set %s: %w", entry.Key, err)
		}
	}

	attributes := opts.Attributes
	if attributes == "" {
		toplevel, err := runGit(ctx, opts, "rev-parse", "--show-toplevel")
		if err != nil {
			return Result{}, fmt.Errorf("locate repository: %w", err)
		}
		attributes = filepath.Join(filepath.FromSlash(strings.TrimSpace(toplevel)), AttributesFileName)
	}

	added, err := appendLines(attributes, AttributeLines(opts))
	if err != nil {
		return Result{}, fmt.Errorf("update attributes: %w", err)
	}
	result.Attributes = attributes
	result.AttributesAdded = added

	log.FromContext(ctx).WithFields(logrus.Fields{
		"name":       opts.Name,
		"global":     opts.Global,
		"attributes": attributes,
		"added":      len(added),
	}).Info("driver installed")

	return result, nil
}

func runGit(ctx context.Context, opts Options, args ...string) (string, error) {
	cmd := exec.Command(opts.GitBinPath, args...)
	cmd.Dir = opts.Dir

	c, err := command.New(ctx, cmd, nil, nil, nil)
	if err != nil {
		return "", err
	}

	stdout, readErr := io.ReadAll(c)

	if err := c.Wait(); err != nil {
		if stderr := strings.TrimSpace(c.Stderr()); stderr != "" {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, stderr)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}

	if readErr != nil {
		return "", fmt.Errorf("git %s: read output: %w", args[0], readErr)
	}

	return string(stdout), nil
}

// appendLines appends the lines missing from path and returns them. The
// file is created if it does not exist.
func appendLines(path string, lines []string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, line := range lines {
		if !present[line] {
			missing = append(missing, line)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var b strings.Builder
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		b.WriteString("\n")
	}
	for _, line := range missing {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if _, err := io.WriteString(f, b.String()); err != nil {
		return nil, err
	}

	return missing, f.Close()
}

// quote wraps s in double quotes when git's shell would split it.
func quote(s string) string {
	if !strings.ContainsAny(s, " \t'\"$&;|()<>`") {
		return s
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`").Replace(s) + `"`
}
