// Package dotdir manages the .gemi/ and ~/.gemi directories where gemi
// keeps its config file and on-disk databases.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the gemi directory.
	dirName = ".gemi"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .gemi/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.gemi/ dir
//  3. Home ~/.gemi/ dir
//  4. If none found, attempt to create ~/.gemi/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating gemi directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// DatabasePath resolves the path of a SQLite database file inside the
// resolved .gemi/ directory.
func (m *Manager) DatabasePath(overrideDir, filename string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(target, filename), nil
}

// localDirExists checks whether a .gemi/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
