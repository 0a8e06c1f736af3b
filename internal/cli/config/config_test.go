package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project creates a directory with the given config file content and
// makes it the working directory.
func project(t *testing.T, content string) string {
	t.Helper()
	ResetConfig()
	dir := t.TempDir()
	if content != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "leaptmpl.yaml"), []byte(content), 0o644))
	}
	t.Chdir(dir)
	return dir
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("escape", "", "")
	flags.String("bridge", "", "")
	flags.Int("jobs", 0, "")
	flags.Bool("line-directives", false, "")
	flags.Int("port", 0, "")
	flags.Bool("watch", true, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := project(t, "")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "html", cfg.Escape)
	assert.Equal(t, "string", cfg.ItemType)
	assert.Equal(t, "cooperative", cfg.Bridge)
	assert.Equal(t, DefaultJobs, cfg.Jobs)
	assert.Equal(t, "auto", cfg.Color)
	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, 8765, cfg.Preview.Port)
	assert.True(t, cfg.Preview.Watch)
	assert.Empty(t, GetConfigFileUsed())

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadConfig_FileFoundUpward(t *testing.T) {
	dir := project(t, "bridge: channel\npreview:\n  port: 9000\n")
	sub := filepath.Join(dir, "views", "pages")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "channel", cfg.Bridge)
	assert.Equal(t, 9000, cfg.Preview.Port)
	assert.NotEmpty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	project(t, "")
	other := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(other, []byte("escape: none\n"), 0o644))

	cfg, err := LoadConfig(other, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Escape)
	assert.Equal(t, filepath.Dir(other), cfg.ProjectRoot)
	assert.Equal(t, other, GetConfigFileUsed())
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		env   map[string]string
		flags []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "env over file",
			file: "escape: none\n",
			env:  map[string]string{"LEAPTMPL_ESCAPE": "html"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "html", cfg.Escape)
			},
		},
		{
			name:  "flag over env",
			env:   map[string]string{"LEAPTMPL_BRIDGE": "channel"},
			flags: []string{"--bridge=cooperative"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "cooperative", cfg.Bridge)
			},
		},
		{
			name:  "unset flag keeps env",
			env:   map[string]string{"LEAPTMPL_JOBS": "7"},
			flags: []string{"--escape=none"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7, cfg.Jobs)
				assert.Equal(t, "none", cfg.Escape)
			},
		},
		{
			name: "nested env key",
			env:  map[string]string{"LEAPTMPL_PREVIEW__PORT": "9100"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9100, cfg.Preview.Port)
			},
		},
		{
			name:  "kebab flag",
			flags: []string{"--line-directives"},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.LineDirectives)
			},
		},
		{
			name:  "mapped flags",
			file:  "preview:\n  port: 9000\n",
			flags: []string{"--port=9200", "--watch=false"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9200, cfg.Preview.Port)
				assert.False(t, cfg.Preview.Watch)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project(t, tt.file)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			flags := testFlags()
			require.NoError(t, flags.Parse(tt.flags))

			cfg, err := LoadConfig("", flags)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"escape", "escape: url\n", "invalid escape policy"},
		{"item type", "item_type: runes\n", "invalid item type"},
		{"color", "color: sometimes\n", "invalid color"},
		{"output", "output: markdown\n", "invalid output"},
		{"jobs", "jobs: -2\n", "invalid jobs"},
		{"yaml", "escape: [\n", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project(t, tt.file)
			_, err := LoadConfig("", nil)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestConfig_UseColor(t *testing.T) {
	cfg := Default()

	cfg.Color = "always"
	assert.True(t, cfg.UseColor(nil))

	cfg.Color = "never"
	assert.False(t, cfg.UseColor(os.Stderr))

	cfg.Color = "auto"
	t.Setenv("NO_COLOR", "1")
	assert.False(t, cfg.UseColor(os.Stderr))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	os.Unsetenv("NO_COLOR")
	assert.False(t, cfg.UseColor(f), "regular files are not terminals")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")

	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Same(t, logger, ctx.Value(LoggerKey()))
}

func TestGetCurrentConfig_Default(t *testing.T) {
	ResetConfig()
	cfg := GetCurrentConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "html", cfg.Escape)
}
