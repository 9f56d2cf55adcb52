package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/coverpack/internal/config"
)

// ConfigBuilder provides a fluent interface for creating test configurations.
type ConfigBuilder struct {
	config *config.Config
	t      *testing.T
}

// NewConfigBuilder returns a builder for the golden package with the journal disabled.
func NewConfigBuilder(t *testing.T) *ConfigBuilder {
	return &ConfigBuilder{
		config: &config.Config{
			Version:   config.CurrentVersion,
			Recipient: GoldenLabel,
			Files: config.FilesConfig{
				Letter: "coverletter.tex",
				Resume: "resume.tex",
			},
			Toolchain: config.ToolchainConfig{
				Compiler: config.CompilerConfig{Binary: config.DefaultCompilerBinary},
				Merger:   config.MergerConfig{Binary: config.DefaultMergerBinary},
			},
		},
		t: t,
	}
}

// WithRecipient sets the recipient label.
func (cb *ConfigBuilder) WithRecipient(label string) *ConfigBuilder {
	cb.config.Recipient = label
	return cb
}

// WithFiles sets the letter and resume paths.
func (cb *ConfigBuilder) WithFiles(letter, resume string) *ConfigBuilder {
	cb.config.Files = config.FilesConfig{Letter: letter, Resume: resume}
	return cb
}

// WithToolchain sets the compiler and merger binaries.
func (cb *ConfigBuilder) WithToolchain(compiler, merger string) *ConfigBuilder {
	cb.config.Toolchain.Compiler.Binary = compiler
	cb.config.Toolchain.Merger.Binary = merger
	return cb
}

// WithJournal enables the build journal at path.
func (cb *ConfigBuilder) WithJournal(path string) *ConfigBuilder {
	cb.config.Journal.Path = path
	return cb
}

// Build returns the configuration as built, without defaults or validation.
func (cb *ConfigBuilder) Build() *config.Config {
	return cb.config
}

// WriteTo marshals the configuration to dir/coverpack.yaml and returns the file path.
func (cb *ConfigBuilder) WriteTo(dir string) string {
	cb.t.Helper()
	data, err := yaml.Marshal(cb.config)
	if err != nil {
		cb.t.Fatalf("marshal config: %v", err)
	}
	p := filepath.Join(dir, config.DefaultPath)
	if err := os.WriteFile(p, data, testFilePermissions); err != nil {
		cb.t.Fatalf("write config: %v", err)
	}
	return p
}
