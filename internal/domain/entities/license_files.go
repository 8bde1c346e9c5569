package entities

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// LicenseFilePrefixes are the file name prefixes treated as license texts.
// Matching is case-sensitive.
var LicenseFilePrefixes = []string{"LICENSE", "UNLICENSE", "COPYRIGHT"} //nolint:gochecknoglobals // fixed lookup table

// LicenseFileSet is a sorted list of unique paths holding license texts.
type LicenseFileSet []string

// LocateLicenseFiles collects the license files of a package: the declared
// license file (when it exists) plus every immediate entry of manifestDir
// whose name starts with one of LicenseFilePrefixes. Symlinks are followed;
// only regular files are kept.
func LocateLicenseFiles(manifestDir, declared string) (LicenseFileSet, error) {
	found := make(map[string]struct{})

	if declared != "" {
		path := declared
		if !filepath.IsAbs(path) {
			path = filepath.Join(manifestDir, declared)
		}
		if isRegularFile(path) {
			found[filepath.Clean(path)] = struct{}{}
		} else {
			logger.Debugf("Declared license file %q is not a readable file, skipping", path)
		}
	}

	entries, err := os.ReadDir(manifestDir)
	if err != nil {
		return nil, &FilesystemError{Path: manifestDir, Err: err}
	}

	for _, entry := range entries {
		if entry.IsDir() || !hasLicensePrefix(entry.Name()) {
			continue
		}
		path := filepath.Join(manifestDir, entry.Name())
		if !isRegularFile(path) {
			logger.Debugf("License candidate %q is not a regular file, skipping", path)
			continue
		}
		found[path] = struct{}{}
	}

	result := make(LicenseFileSet, 0, len(found))
	for path := range found {
		result = append(result, path)
	}
	slices.Sort(result)
	return result, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func hasLicensePrefix(name string) bool {
	for _, prefix := range LicenseFilePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
