package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrCreosote/contigfilter/internal/config"
	"github.com/MrCreosote/contigfilter/internal/errors"
)

// fastaExtensions lists the file suffixes accepted by import.
var fastaExtensions = []string{".fa", ".fasta", ".fna", ".fa.gz", ".fasta.gz", ".fna.gz"}

// ValidateImportPath checks a FASTA file path before import:
// 1. No directory traversal (..)
// 2. A FASTA extension (optionally gzipped)
// 3. The file sits directly in importsDir or one of cfg.AllowedPaths
// 4. Neither the file nor its parent directory is a symlink
//
// Requiring the file to be directly in an allowed directory leaves no
// intermediate directory that could be swapped for a symlink between this
// check and the O_NOFOLLOW open.
func ValidateImportPath(path, importsDir string, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidParameter("path", "path is required")
	}

	if containsTraversal(path) {
		return errors.NewInvalidParameter("path", "path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if !hasFastaExtension(cleaned) {
		return errors.NewInvalidParameter("path",
			fmt.Sprintf("path must have one of the extensions %s", strings.Join(fastaExtensions, ", ")))
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidParameter("path", fmt.Sprintf("invalid path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		allowedDirs, err := getAllowedDirs(importsDir, cfg)
		if err != nil {
			return err
		}

		parentDir := filepath.Dir(absPath)
		if !isDirectlyInAllowedDir(parentDir, allowedDirs) {
			return errors.NewInvalidParameter("path",
				fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v",
					allowedDirs))
		}

		if info, err := os.Lstat(parentDir); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidParameter("path", "parent directory must not be a symlink")
		}
	}

	info, err := os.Lstat(absPath)
	if os.IsNotExist(err) {
		return errors.NewFileNotFound(path)
	}
	if err != nil {
		return errors.NewInternal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidParameter("path", "path must not be a symlink")
	}
	if !info.Mode().IsRegular() {
		return errors.NewInvalidParameter("path", "path must be a regular file")
	}
	return nil
}

func hasFastaExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range fastaExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// getAllowedDirs returns importsDir plus the absolute entries of
// cfg.AllowedPaths, cleaned. Symlinked entries are resolved so they match the
// real parent directory.
func getAllowedDirs(importsDir string, cfg *config.Config) ([]string, error) {
	dirs := []string{importsDir}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidParameter("allowed_paths", fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidParameter("allowed_paths",
					fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}
	return result, nil
}

func isDirectlyInAllowedDir(parentDir string, allowedDirs []string) bool {
	parentDir = filepath.Clean(parentDir)
	for _, dir := range allowedDirs {
		if parentDir == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
