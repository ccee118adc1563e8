package nativehost

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const maxUniquify = 100

var (
	errNullByte    = errors.New("path contains null byte")
	errTraversal   = errors.New("path contains ..")
	errOutsideHome = errors.New("path is outside home directory")
)

// ValidatePath expands ~, resolves symlinks and requires the result to stay
// inside home. Any ".." component is rejected before resolution.
func ValidatePath(raw, home string) (string, error) {
	if strings.ContainsRune(raw, 0) {
		return "", errNullByte
	}
	for _, part := range strings.Split(strings.ReplaceAll(raw, `\`, "/"), "/") {
		if part == ".." {
			return "", errTraversal
		}
	}

	expanded := raw
	if raw == "~" || strings.HasPrefix(raw, "~/") {
		expanded = filepath.Join(home, strings.TrimPrefix(raw, "~"))
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}

	resolved, err := realpath(abs)
	if err != nil {
		return "", err
	}
	root, err := realpath(home)
	if err != nil {
		return "", err
	}

	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return "", errOutsideHome
	}
	return resolved, nil
}

// realpath resolves symlinks in the longest existing prefix of p and keeps
// the missing tail as is.
func realpath(p string) (string, error) {
	p = filepath.Clean(p)
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return filepath.Join(append([]string{p}, tail...)...), nil
		}
		tail = append([]string{filepath.Base(p)}, tail...)
		p = parent
	}
}

// WriteUnique creates the parent directories and writes content to path, or
// to "name (N).ext" when path is taken. Existing files are never replaced.
func WriteUnique(path string, content []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	ext := filepath.Ext(path)
	if ext == filepath.Base(path) {
		ext = ""
	}
	base := strings.TrimSuffix(path, ext)

	for i := 0; i <= maxUniquify; i++ {
		candidate := path
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
		}

		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		_, err = f.Write(content)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return "", err
		}
		return candidate, nil
	}
	return "", fmt.Errorf("too many files named %s", filepath.Base(path))
}
