package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvFiles populates the process environment from dotenv files. Missing
// files are skipped and variables already present in the environment win.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		expanded, err := expandPath(path)
		if err != nil {
			return err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat env file: %w", err)
		}
		if err := godotenv.Load(expanded); err != nil {
			return fmt.Errorf("load env file %q: %w", expanded, err)
		}
	}
	return nil
}

// DefaultEnvFiles lists the dotenv files consulted before configuration load.
func DefaultEnvFiles() []string {
	return []string{".env", "~/.config/hookreel/.env"}
}
