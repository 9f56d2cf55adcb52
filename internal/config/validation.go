package config

import (
	"fmt"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
	"git.home.luguber.info/inful/coverpack/internal/foundation/normalization"
)

// validate checks a normalized and defaulted configuration.
func validate(cfg *Config) error {
	if cfg.Recipient == "" {
		return ferrors.ConfigError("recipient cannot be empty").WithContext("field", "recipient").Build()
	}
	if normalization.ParamCase(cfg.Recipient) == "" {
		return ferrors.ConfigError("recipient must contain at least one letter or digit").
			WithContext("field", "recipient").
			WithContext("value", cfg.Recipient).
			Build()
	}

	if err := validateFiles(cfg.Files); err != nil {
		return err
	}

	if err := validateTimeout("toolchain.compiler.timeout", cfg.Toolchain.Compiler.Timeout); err != nil {
		return err
	}
	return validateTimeout("toolchain.merger.timeout", cfg.Toolchain.Merger.Timeout)
}

func validateFiles(files FilesConfig) error {
	if files.Letter == "" {
		return ferrors.ConfigError("files.letter cannot be empty").WithContext("field", "files.letter").Build()
	}
	if files.Resume == "" {
		return ferrors.ConfigError("files.resume cannot be empty").WithContext("field", "files.resume").Build()
	}
	if filepath.Clean(files.Letter) == filepath.Clean(files.Resume) {
		return ferrors.ConfigError("files.letter and files.resume must be different documents").
			WithContext("path", files.Letter).
			Build()
	}
	return nil
}

func validateTimeout(field, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return configError(field, err)
	}
	if d < 0 {
		return configError(field, fmt.Errorf("timeout cannot be negative: %s", raw))
	}
	return nil
}

func configError(field string, err error) error {
	return ferrors.ConfigError(fmt.Sprintf("invalid %s", field)).
		WithCause(err).
		WithContext("field", field).
		Build()
}
