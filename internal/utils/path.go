package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver resolves catalog and learning data paths relative to the binary
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	// symlinked installs should still find data next to the real binary
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  filepath.Dir(execPath),
		homeDir:        homeDir,
		configDir:      platformConfigDir(homeDir),
	}
	log.Debugf("PathResolver initialized: exec=%s, execDir=%s, configDir=%s",
		pr.executablePath, pr.executableDir, pr.configDir)
	return pr, nil
}

func platformConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "booksearch")
		}
		return filepath.Join(homeDir, ".config", "booksearch")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "booksearch")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "booksearch")
	default:
		return filepath.Join(homeDir, ".config", "booksearch")
	}
}

// ResolveFile finds a data file trying, in order:
// 1. the path itself (absolute or relative to cwd)
// 2. relative to the executable directory
// 3. inside the config directory
// The first candidate is returned when none of them exist, so callers can report it.
func (pr *PathResolver) ResolveFile(path string) string {
	if path == "" {
		return ""
	}
	candidates := pr.candidates(path)
	for _, candidate := range candidates {
		if FileExists(candidate) {
			log.Debugf("Resolved %s to %s", path, candidate)
			return candidate
		}
		log.Debugf("Candidate not found: %s", candidate)
	}
	return candidates[0]
}

func (pr *PathResolver) candidates(path string) []string {
	if filepath.IsAbs(path) {
		return []string{path}
	}
	candidates := []string{AbsPath(path)}
	candidates = append(candidates, filepath.Join(pr.executableDir, path))
	candidates = append(candidates, filepath.Join(pr.configDir, path))
	return candidates
}

// HasCatalogFiles reports whether dir holds at least one JSON catalog.
func HasCatalogFiles(dir string) bool {
	if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
		return false
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	return err == nil && len(matches) > 0
}
