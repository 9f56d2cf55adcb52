package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
)

// CurrentVersion is the only configuration format version understood by Load.
const CurrentVersion = "1.0"

// DefaultPath is the configuration file used when --config is not given.
const DefaultPath = "coverpack.yaml"

// Config represents a package definition: who it is for, which sources make it up,
// and how they are turned into the merged document.
type Config struct {
	Version   string          `yaml:"version"`
	Recipient string          `yaml:"recipient"`
	Files     FilesConfig     `yaml:"files"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Journal   JournalConfig   `yaml:"journal,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`

	// path is the file the configuration was loaded from (empty for in-memory configs).
	path string
}

// FilesConfig names the two source documents. Letter is always merged first.
type FilesConfig struct {
	Letter string `yaml:"letter"`
	Resume string `yaml:"resume"`
}

// ToolchainConfig configures the external compile and merge programs.
type ToolchainConfig struct {
	Compiler        CompilerConfig `yaml:"compiler"`
	Merger          MergerConfig   `yaml:"merger"`
	OutputExtension string         `yaml:"output_extension,omitempty"`
}

// CompilerConfig configures the TeX compiler invocation.
type CompilerConfig struct {
	Binary  string   `yaml:"binary"`
	Args    []string `yaml:"args,omitempty"`
	Timeout string   `yaml:"timeout,omitempty"` // Go duration; empty or "0" disables
}

// MergerConfig configures the PDF merge invocation.
type MergerConfig struct {
	Binary  string `yaml:"binary"`
	Timeout string `yaml:"timeout,omitempty"`
}

// JournalConfig configures the build journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// TimeoutDuration returns the parsed compiler timeout (0 when unset).
func (c CompilerConfig) TimeoutDuration() time.Duration { return parseTimeout(c.Timeout) }

// TimeoutDuration returns the parsed merger timeout (0 when unset).
func (m MergerConfig) TimeoutDuration() time.Duration { return parseTimeout(m.Timeout) }

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

// Sources returns the source documents in merge order.
func (c *Config) Sources() []string { return []string{c.Files.Letter, c.Files.Resume} }

// Load reads, normalizes, defaults and validates the configuration at configPath.
// Relative paths inside the file are resolved against the file's directory.
func Load(configPath string) (*Config, error) {
	dir := filepath.Dir(configPath)
	loadEnvFiles(dir)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithCause(err).
				WithContext("path", configPath).
				Build()
		}
		return nil, ferrors.IOError("read configuration file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = configPath
	if err := cfg.resolvePaths(dir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration from YAML after expanding ${VAR} references, then
// normalizes, defaults and validates it. Paths are left as written.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.ConfigError("failed to unmarshal configuration").WithCause(err).Build()
	}

	if cfg.Version != CurrentVersion {
		return nil, ferrors.ConfigError(fmt.Sprintf("unsupported configuration version %q (expected %s)", cfg.Version, CurrentVersion)).
			WithContext("version", cfg.Version).
			Build()
	}

	// canonical enum values drive defaults
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(dir string) error {
	base, err := filepath.Abs(dir)
	if err != nil {
		return ferrors.IOError("resolve configuration directory").WithCause(err).WithContext("path", dir).Build()
	}
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Files.Letter = resolve(c.Files.Letter)
	c.Files.Resume = resolve(c.Files.Resume)
	c.Journal.Path = resolve(c.Journal.Path)
	return nil
}

// Example returns the configuration written by Init.
func Example() *Config {
	return &Config{
		Version:   CurrentVersion,
		Recipient: "Jane Doe",
		Files: FilesConfig{
			Letter: "letters/acme/coverletter.tex",
			Resume: "resume/resume.tex",
		},
		Toolchain: ToolchainConfig{
			Compiler: CompilerConfig{
				Binary:  DefaultCompilerBinary,
				Args:    []string{"-interaction=nonstopmode", "-halt-on-error"},
				Timeout: "2m",
			},
			Merger: MergerConfig{
				Binary:  DefaultMergerBinary,
				Timeout: "1m",
			},
			OutputExtension: DefaultOutputExtension,
		},
		Journal: JournalConfig{Path: DefaultJournalPath},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return ferrors.InternalError("failed to marshal example configuration").WithCause(err).Build()
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.IOError("create configuration directory").WithCause(err).WithContext("path", dir).Build()
		}
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return ferrors.IOError("write configuration file").WithCause(err).WithContext("path", configPath).Build()
	}
	return nil
}

func parseTimeout(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}
