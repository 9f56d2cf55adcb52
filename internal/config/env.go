package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/coverpack/internal/logfields"
)

// envFiles are tried in precedence order; godotenv never overrides a variable that is
// already set, so earlier files win over later ones and the process environment wins
// over all of them.
var envFiles = []string{".env.local", ".env"}

// loadEnvFiles loads .env.local and .env from dir and, if different, the working
// directory. Missing files are skipped.
func loadEnvFiles(dir string) []string {
	dirs := []string{dir}
	if abs, err := filepath.Abs(dir); err == nil {
		if wd, err := os.Getwd(); err == nil && wd != abs {
			dirs = append(dirs, wd)
		}
	}

	var loaded []string
	for _, d := range dirs {
		for _, name := range envFiles {
			p := filepath.Join(d, name)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := godotenv.Load(p); err != nil {
				slog.Warn("Failed to load environment file", logfields.Path(p), logfields.Error(err))
				continue
			}
			loaded = append(loaded, p)
		}
	}
	if len(loaded) > 0 {
		slog.Debug("Loaded environment files", slog.Any("paths", loaded))
	}
	return loaded
}
