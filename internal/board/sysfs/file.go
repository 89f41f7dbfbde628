// SPDX-License-Identifier: Apache-2.0

package sysfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// readFile reads the contents of a file at path. Returns an error if the
// file doesn't exist, is a symlink, or can't be read.
func readFile(path string) ([]byte, error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file %q: %w", path, err)
	}
	return content, nil
}

// readUint reads path and parses its trimmed content as a base-10 uint64.
func readUint(path string) (uint64, error) {
	content, err := readFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(content)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing contents of file %q: %w", path, err)
	}
	return v, nil
}

// readInt reads path and parses its trimmed content as a base-10 int64.
func readInt(path string) (int64, error) {
	content, err := readFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(content)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing contents of file %q: %w", path, err)
	}
	return v, nil
}

// checkFile returns nil if path exists and is not a symlink.
func checkFile(path string) error {
	if len(path) == 0 {
		return errors.New("file path is empty")
	}
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("file %q does not exist", path)
		}
		return fmt.Errorf("could not stat file %q: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("file %q is a symlink", path)
	}
	return nil
}

// writeFile writes content to path, creating it if necessary.
func writeFile(path string, content []byte) error {
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("error writing file %q: %w", path, err)
	}
	return nil
}
