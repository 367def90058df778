package testhelper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	rpdlog "gitlab.com/us-analytics/merge-rpd/internal/log"
)

var testDirectory string

// RunOption is an option that can be passed to Run.
type RunOption func(*runConfig)

type runConfig struct {
	setup                  func() error
	disableGoroutineChecks bool
}

// WithSetup allows the caller of Run to pass a setup function that will be called after global
// test state has been configured.
func WithSetup(setup func() error) RunOption {
	return func(cfg *runConfig) {
		cfg.setup = setup
	}
}

// WithDisabledGoroutineChecker disables checking for leaked Goroutines after tests have run.
func WithDisabledGoroutineChecker() RunOption {
	return func(cfg *runConfig) {
		cfg.disableGoroutineChecks = true
	}
}

// Run sets up required testing state and executes the given test suite. It can optionally receive a
// variable number of RunOptions.
func Run(m *testing.M, opts ...RunOption) {
	// Run tests in a separate function such that we can use deferred statements and still
	// (indirectly) call `os.Exit()` in case the test setup failed.
	code, err := func() (int, error) {
		var cfg runConfig
		for _, opt := range opts {
			opt(&cfg)
		}

		defer mustHaveNoChildProcess()
		if !cfg.disableGoroutineChecks {
			defer mustHaveNoGoroutines()
		}

		cleanup, err := configure()
		if err != nil {
			return 1, fmt.Errorf("test configuration: %w", err)
		}
		defer cleanup()

		if cfg.setup != nil {
			if err := cfg.setup(); err != nil {
				return 1, fmt.Errorf("error calling setup function: %w", err)
			}
		}

		return m.Run(), nil
	}()
	if err != nil {
		fmt.Printf("%s", err)
		os.Exit(1)
	}

	os.Exit(code)
}

// configure sets up the global test configuration.
func configure() (_ func(), returnedErr error) {
	rpdlog.Configure(rpdlog.Loggers, "json", "panic")

	if testDirectory != "" {
		return nil, errors.New("test directory has already been configured")
	}

	testDirectory = getTestTmpDir()
	defer func() {
		if returnedErr != nil {
			if err := os.RemoveAll(testDirectory); err != nil {
				log.Error(err)
			}
		}
	}()

	// overwrite HOME so that the user's global .gitconfig doesn't influence tests
	testHome := filepath.Join(testDirectory, "home")
	if err := os.MkdirAll(testHome, 0755); err != nil {
		return nil, err
	}
	if err := os.Setenv("HOME", testHome); err != nil {
		return nil, err
	}

	for _, envvar := range []string{"MERGE_RPD_CONFIG", "LOCAL", "REMOTE", "MERGED"} {
		if err := os.Unsetenv(envvar); err != nil {
			return nil, fmt.Errorf("error unsetting envvar: %w", err)
		}
	}

	return func() {
		if err := os.RemoveAll(testDirectory); err != nil {
			log.Errorf("error removing test directory: %v", err)
		}
	}, nil
}

func getTestTmpDir() string {
	testTmpDir := os.Getenv("TEST_TMP_DIR")
	if testTmpDir != "" {
		return testTmpDir
	}

	testTmpDir, err := os.MkdirTemp("", "merge-rpd-")
	if err != nil {
		log.Fatal(err)
	}

	// macOS symlinks /tmp/ to /private/tmp/ which can cause some check to fail
	tmpDir, err := filepath.EvalSymlinks(testTmpDir)
	if err != nil {
		log.Fatal(err)
	}

	return tmpDir
}
