package config

import "strings"

// Toolchain defaults.
const (
	DefaultCompilerBinary  = "pdflatex"
	DefaultMergerBinary    = "gs"
	DefaultOutputExtension = "pdf"
	DefaultJournalPath     = ".coverpack/journal.db"
)

// normalize canonicalizes enumerations. Unknown values are errors.
func normalize(cfg *Config) error {
	level, err := logLevelNormalizer.NormalizeWithError(string(cfg.Logging.Level))
	if err != nil {
		return configError("logging.level", err)
	}
	cfg.Logging.Level = level

	format, err := logFormatNormalizer.NormalizeWithError(string(cfg.Logging.Format))
	if err != nil {
		return configError("logging.format", err)
	}
	cfg.Logging.Format = format

	cfg.Recipient = strings.TrimSpace(cfg.Recipient)
	cfg.Toolchain.OutputExtension = strings.TrimPrefix(strings.TrimSpace(cfg.Toolchain.OutputExtension), ".")
	return nil
}

// applyDefaults fills in everything the file may omit.
func applyDefaults(cfg *Config) {
	if cfg.Toolchain.Compiler.Binary == "" {
		cfg.Toolchain.Compiler.Binary = DefaultCompilerBinary
	}
	if cfg.Toolchain.Merger.Binary == "" {
		cfg.Toolchain.Merger.Binary = DefaultMergerBinary
	}
	if cfg.Toolchain.OutputExtension == "" {
		cfg.Toolchain.OutputExtension = DefaultOutputExtension
	}
}
