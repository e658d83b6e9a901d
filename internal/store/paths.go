package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the gfcm state directory.
const DirName = ".gfcm"

// GlobalGfcmPath returns the path to the global .gfcm directory.
// On Unix: ~/.gfcm
// On Windows: %USERPROFILE%\.gfcm
func GlobalGfcmPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LocalGfcmPath returns the path to the local .gfcm directory
// for the given project root.
func LocalGfcmPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// EnsureGlobalGfcmDir creates the global .gfcm directory if it doesn't exist.
func EnsureGlobalGfcmDir() error {
	globalPath, err := GlobalGfcmPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(globalPath, 0755); err != nil {
		return fmt.Errorf("failed to create global .gfcm directory: %w", err)
	}

	return nil
}
