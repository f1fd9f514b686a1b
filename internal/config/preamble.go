package config

import (
	"os"
	"path/filepath"
)

// PreambleFileName is the system-preamble file looked up from the working
// directory towards the filesystem root.
const PreambleFileName = "LUCIUS.md"

// LoadPreamble walks parent directories starting from the current working
// directory looking for LUCIUS.md. Returns its content, or "" when no file
// is found or readable.
func LoadPreamble() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return loadPreambleFrom(dir)
}

func loadPreambleFrom(dir string) string {
	for {
		candidate := filepath.Join(dir, PreambleFileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			data, err := os.ReadFile(candidate)
			if err == nil {
				return string(data)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
