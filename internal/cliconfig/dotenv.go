package cliconfig

import (
	"fmt"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads each existing file into the process environment.
// Variables that are already set are not overridden, and missing files are
// skipped.
func LoadDotEnv(paths ...string) ([]string, error) {
	var loaded []string
	for _, p := range paths {
		if p == "" || !FileExists(p) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, fmt.Errorf("load %s: %w", p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}
