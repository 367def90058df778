package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBrokenConfig(t *testing.T) {
	_, err := Load(strings.NewReader(`work_dir = "/tmp"\nlevel=`))
	assert.Error(t, err)
}

func TestLoadEmptyConfig(t *testing.T) {
	cfg, err := Load(strings.NewReader(``))
	require.NoError(t, err)

	exeDir, err := executableDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Clean(os.TempDir()), cfg.WorkDir)
	assert.Equal(t, defaultAdminToolTimeout, cfg.AdminTool.Timeout.Duration())
	assert.Equal(t, exeDir, cfg.Logging.Dir)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Disabled)
}

func TestLoadFullConfig(t *testing.T) {
	tmpFile := strings.NewReader(`
work_dir = "/var/tmp/rpd/"

[admin_tool]
bin_path = "/opt/obiee/admintool"
password = "Password01"
timeout = "90s"

[git]
bin_path = "/usr/bin/git"

[logging]
dir = "/var/log/rpd"
format = "json"
level = "info"
sentry_dsn = "https://key@sentry.example.com/1"
sentry_environment = "ci"

[prometheus]
textfile = "/var/lib/node_exporter/merge-rpd.prom"
`)

	cfg, err := Load(tmpFile)
	require.NoError(t, err)

	require.Equal(t, Cfg{
		WorkDir: "/var/tmp/rpd",
		AdminTool: AdminTool{
			BinPath:  "/opt/obiee/admintool",
			Password: "Password01",
			Timeout:  Duration(90 * time.Second),
		},
		Git: Git{BinPath: "/usr/bin/git"},
		Logging: Logging{
			Dir:    "/var/log/rpd",
			Format: "json",
			Level:  "info",
			Sentry: Sentry{
				DSN:         "https://key@sentry.example.com/1",
				Environment: "ci",
			},
		},
		Prometheus: Prometheus{Textfile: "/var/lib/node_exporter/merge-rpd.prom"},
	}, cfg)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RPD_ADMIN_TOOL_PASSWORD", "from-env")
	t.Setenv("RPD_WORK_DIR", "/srv/work")
	t.Setenv("RPD_LOGGING_LEVEL", "warn")
	t.Setenv("RPD_LOGGING_SENTRY_DSN", "https://env@sentry.example.com/2")

	cfg, err := Load(strings.NewReader(`
work_dir = "/from/file"

[admin_tool]
password = "from-file"

[logging]
level = "error"
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.AdminTool.Password)
	assert.Equal(t, "/srv/work", cfg.WorkDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "https://env@sentry.example.com/2", cfg.Logging.Sentry.DSN)
}

func TestLoadRelativePaths(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(previous)) })

	cfg, err := Load(strings.NewReader(`
work_dir = ".merge-rpd"

[admin_tool]
bin_path = "tools/admintool"
password_file = "secrets/password"

[git]
bin_path = "git"

[logging]
dir = "logs/../logs"
`))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ".merge-rpd"), cfg.WorkDir)
	assert.Equal(t, filepath.Join(dir, "tools", "admintool"), cfg.AdminTool.BinPath)
	assert.Equal(t, filepath.Join(dir, "secrets", "password"), cfg.AdminTool.PasswordFile)
	assert.Equal(t, filepath.Join(dir, "logs"), cfg.Logging.Dir)
	assert.Equal(t, "git", cfg.Git.BinPath)
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.toml")
		require.NoError(t, os.WriteFile(path, []byte("[admin_tool]\npassword = \"secret\"\n"), 0644))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		require.Equal(t, "secret", cfg.AdminTool.Password)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("path from environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "env.toml")
		require.NoError(t, os.WriteFile(path, []byte("work_dir = \"/env/dir\"\n"), 0644))
		t.Setenv(EnvConfigPath, path)

		cfg, err := LoadFile("")
		require.NoError(t, err)
		require.Equal(t, "/env/dir", cfg.WorkDir)
	})
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	adminTool := filepath.Join(dir, "admintool")
	require.NoError(t, os.WriteFile(adminTool, []byte("#!/bin/sh\nexit 0\n"), 0755))

	notExecutable := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(notExecutable, []byte("data"), 0644))

	passwordFile := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("Password01\n"), 0600))

	emptyPasswordFile := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(emptyPasswordFile, []byte("\n"), 0600))

	valid := func() Cfg {
		return Cfg{
			WorkDir: dir,
			AdminTool: AdminTool{
				BinPath:  adminTool,
				Password: "Password01",
			},
			Logging: Logging{
				Dir:    dir,
				Format: "text",
				Level:  "debug",
			},
		}
	}

	for _, tc := range []struct {
		desc        string
		modify      func(*Cfg)
		expectedErr string
	}{
		{
			desc:   "valid",
			modify: func(*Cfg) {},
		},
		{
			desc:        "missing admin tool",
			modify:      func(cfg *Cfg) { cfg.AdminTool.BinPath = "" },
			expectedErr: "admin_tool.bin_path is not set",
		},
		{
			desc:        "admin tool not executable",
			modify:      func(cfg *Cfg) { cfg.AdminTool.BinPath = notExecutable },
			expectedErr: "admin_tool.bin_path: not executable: " + notExecutable,
		},
		{
			desc: "password from file",
			modify: func(cfg *Cfg) {
				cfg.AdminTool.Password = ""
				cfg.AdminTool.PasswordFile = passwordFile
			},
		},
		{
			desc:        "no password",
			modify:      func(cfg *Cfg) { cfg.AdminTool.Password = "" },
			expectedErr: "admin_tool: neither password nor password_file is set",
		},
		{
			desc: "empty password file",
			modify: func(cfg *Cfg) {
				cfg.AdminTool.Password = ""
				cfg.AdminTool.PasswordFile = emptyPasswordFile
			},
			expectedErr: "admin_tool: password file \"" + emptyPasswordFile + "\" is empty",
		},
		{
			desc:        "work dir is a file",
			modify:      func(cfg *Cfg) { cfg.WorkDir = passwordFile },
			expectedErr: "work_dir: not a directory: \"" + passwordFile + "\"",
		},
		{
			desc:        "unknown log format",
			modify:      func(cfg *Cfg) { cfg.Logging.Format = "xml" },
			expectedErr: "invalid logging.format \"xml\"",
		},
		{
			desc:        "unknown log level",
			modify:      func(cfg *Cfg) { cfg.Logging.Level = "loud" },
			expectedErr: "invalid logging.level: not a valid logrus Level: \"loud\"",
		},
		{
			desc: "missing log dir is fine when logging is disabled",
			modify: func(cfg *Cfg) {
				cfg.Logging.Dir = filepath.Join(dir, "does-not-exist")
				cfg.Logging.Disabled = true
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := valid()
			tc.modify(&cfg)

			err := cfg.Validate()
			if tc.expectedErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tc.expectedErr)
		})
	}
}

func TestResolvePassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(path, []byte("s3cret\r\n"), 0600))

	password, err := AdminTool{Password: "inline", PasswordFile: path}.ResolvePassword()
	require.NoError(t, err)
	require.Equal(t, "inline", password)

	password, err = AdminTool{PasswordFile: path}.ResolvePassword()
	require.NoError(t, err)
	require.Equal(t, "s3cret", password)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("2m30s")))
	require.Equal(t, 150*time.Second, d.Duration())

	text, err := d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "2m30s", string(text))

	require.Error(t, d.UnmarshalText([]byte("soon")))
}
