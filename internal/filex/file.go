// Package filex holds filesystem helpers for attachment staging.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureSubDir creates (if needed) and returns a subdirectory of the current
// working directory. Captured attachments are staged under such a directory
// until their upload action completes.
func EnsureSubDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// StageFile copies src into dir under the given name and returns the staged
// path. The original file is left untouched.
func StageFile(dir, name, src string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", src, err)
	}

	dst := filepath.Join(dir, name)
	if err := os.WriteFile(dst, data, 0o660); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}

	return dst, nil
}
