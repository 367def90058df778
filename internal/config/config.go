package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml"
	log "github.com/sirupsen/logrus"
)

const (
	// EnvPrefix is the prefix of environment variables overriding values of
	// the configuration file.
	EnvPrefix = "rpd"
	// EnvConfigPath names the environment variable pointing at the
	// configuration file when no -config flag was given.
	EnvConfigPath = "MERGE_RPD_CONFIG"
	// DefaultFileName is the configuration file looked up next to the
	// executable.
	DefaultFileName = "merge-rpd.toml"

	defaultAdminToolTimeout = 30 * time.Minute
)

// Cfg is a container for all config derived from merge-rpd.toml.
type Cfg struct {
	WorkDir    string     `toml:"work_dir" split_words:"true"`
	AdminTool  AdminTool  `toml:"admin_tool" envconfig:"admin_tool"`
	Git        Git        `toml:"git" envconfig:"git"`
	Logging    Logging    `toml:"logging" envconfig:"logging"`
	Prometheus Prometheus `toml:"prometheus" envconfig:"prometheus"`
}

// AdminTool contains the settings for the vendor administration tool which
// does the actual merging and comparing of repository files.
type AdminTool struct {
	BinPath      string   `toml:"bin_path" split_words:"true"`
	Password     string   `toml:"password"`
	PasswordFile string   `toml:"password_file" split_words:"true"`
	Timeout      Duration `toml:"timeout"`
}

// Git contains the settings for the Git executable
type Git struct {
	BinPath string `toml:"bin_path" split_words:"true"`
}

// Logging contains the logging configuration. Git displays both stdout and
// stderr of drivers, so logs are written to a file in Dir.
type Logging struct {
	Dir      string `toml:"dir,omitempty"`
	Format   string `toml:"format,omitempty"`
	Level    string `toml:"level,omitempty"`
	Disabled bool   `toml:"disabled"`
	Sentry
}

// Sentry configures error reporting.
type Sentry struct {
	DSN         string `toml:"sentry_dsn" envconfig:"sentry_dsn"`
	Environment string `toml:"sentry_environment" envconfig:"sentry_environment"`
}

// Prometheus configures where metrics are dumped when the process exits.
type Prometheus struct {
	Textfile string `toml:"textfile"`
}

// Load initializes the Config variable from file and the environment.
//  Environment variables take precedence over the file.
func Load(file io.Reader) (Cfg, error) {
	var cfg Cfg

	if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
		return Cfg{}, fmt.Errorf("load toml: %v", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Cfg{}, fmt.Errorf("envconfig: %v", err)
	}

	if err := cfg.setDefaults(); err != nil {
		return Cfg{}, err
	}

	if err := cfg.makeAbsolute(); err != nil {
		return Cfg{}, err
	}

	return cfg, nil
}

// makeAbsolute resolves relative paths against the current working
// directory. Child processes run inside session directories, where relative
// paths would point elsewhere. Executables given by bare name are left to
// the PATH lookup.
func (cfg *Cfg) makeAbsolute() error {
	for _, p := range []struct {
		name       string
		path       *string
		executable bool
	}{
		{name: "work_dir", path: &cfg.WorkDir},
		{name: "logging.dir", path: &cfg.Logging.Dir},
		{name: "admin_tool.bin_path", path: &cfg.AdminTool.BinPath, executable: true},
		{name: "admin_tool.password_file", path: &cfg.AdminTool.PasswordFile},
		{name: "git.bin_path", path: &cfg.Git.BinPath, executable: true},
		{name: "prometheus.textfile", path: &cfg.Prometheus.Textfile},
	} {
		if *p.path == "" {
			continue
		}
		if p.executable && !strings.ContainsAny(*p.path, `/\`) {
			continue
		}

		abs, err := filepath.Abs(*p.path)
		if err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
		*p.path = abs
	}

	return nil
}

// LoadFile resolves the configuration file and loads it. An explicit path
// must exist. Without one, $MERGE_RPD_CONFIG is consulted and then the
// default file next to the executable; if neither exists, defaults and the
// environment are used.
func LoadFile(path string) (Cfg, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if !explicit {
		if dir, err := executableDir(); err == nil {
			path = filepath.Join(dir, DefaultFileName)
		}
	}

	if path == "" {
		return Load(strings.NewReader(""))
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Load(strings.NewReader(""))
		}
		return Cfg{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Load(f)
}

func (cfg *Cfg) setDefaults() error {
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}

	if cfg.AdminTool.Timeout.Duration() == 0 {
		cfg.AdminTool.Timeout = Duration(defaultAdminToolTimeout)
	}

	if cfg.Logging.Dir == "" {
		dir, err := executableDir()
		if err != nil {
			return fmt.Errorf("resolve log directory: %w", err)
		}
		cfg.Logging.Dir = dir
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return nil
}

// Validate checks the current Config for sanity.
func (cfg *Cfg) Validate() error {
	for _, run := range []func() error{
		cfg.validateAdminTool,
		cfg.validatePassword,
		cfg.validateWorkDir,
		cfg.validateLogging,
	} {
		if err := run(); err != nil {
			return err
		}
	}

	return nil
}

func (cfg *Cfg) validateAdminTool() error {
	if cfg.AdminTool.BinPath == "" {
		return fmt.Errorf("admin_tool.bin_path is not set")
	}

	if err := checkExecutable(cfg.AdminTool.BinPath); err != nil {
		return fmt.Errorf("admin_tool.bin_path: %w", err)
	}

	return nil
}

func (cfg *Cfg) validatePassword() error {
	if _, err := cfg.AdminTool.ResolvePassword(); err != nil {
		return fmt.Errorf("admin_tool: %w", err)
	}
	return nil
}

func (cfg *Cfg) validateWorkDir() error {
	return validateIsDirectory(cfg.WorkDir, "work_dir")
}

func (cfg *Cfg) validateLogging() error {
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q", cfg.Logging.Format)
	}

	if _, err := log.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}

	if cfg.Logging.Disabled {
		return nil
	}

	return validateIsDirectory(cfg.Logging.Dir, "logging.dir")
}

// ResolvePassword returns the repository password, reading it from
// PasswordFile when Password is empty.
func (a AdminTool) ResolvePassword() (string, error) {
	if a.Password != "" {
		return a.Password, nil
	}

	if a.PasswordFile == "" {
		return "", errors.New("neither password nor password_file is set")
	}

	contents, err := os.ReadFile(a.PasswordFile)
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}

	password := strings.TrimRight(string(contents), "\r\n")
	if password == "" {
		return "", fmt.Errorf("password file %q is empty", a.PasswordFile)
	}

	return password, nil
}

func validateIsDirectory(path, name string) error {
	s, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !s.IsDir() {
		return fmt.Errorf("%s: not a directory: %q", name, path)
	}

	log.WithField("dir", path).
		Debugf("%s set", name)

	return nil
}

// SetGitPath populates Git.BinPath with the path to the `git` executable. It
// warns if no path was specified in the configuration.
func (cfg *Cfg) SetGitPath() error {
	if cfg.Git.BinPath != "" {
		return nil
	}

	resolvedPath, err := exec.LookPath("git")
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"resolvedPath": resolvedPath,
	}).Warn("git path not configured. Using default path resolution")

	cfg.Git.BinPath = resolvedPath

	return nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}

	return filepath.Dir(exe), nil
}
