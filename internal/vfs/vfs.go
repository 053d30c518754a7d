// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package vfs provides the virtual file map user code is evaluated against.
// User code can read only the files in the map; there is no fallback to the
// host file system.
package vfs

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Map is an immutable set of virtual source files keyed by normalized path.
type Map struct {
	files map[string]string
}

// New copies files into a Map, normalizing every path.
func New(files map[string]string) Map {
	m := Map{files: make(map[string]string, len(files))}
	for p, content := range files {
		m.files[Clean(p)] = content
	}
	return m
}

// Clean normalizes a virtual path: forward slashes, no leading "./" or "/",
// and ".." segments resolved.
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// Resolve interprets ref relative to the directory of the file from.
// Absolute refs ("/a.json") are relative to the map root.
func Resolve(from, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return Clean(ref)
	}
	return Clean(path.Join(path.Dir(Clean(from)), ref))
}

// Read returns the content of a file.
func (m Map) Read(p string) (string, bool) {
	content, ok := m.files[Clean(p)]
	return content, ok
}

// ReadRelative resolves ref against from and reads it.
func (m Map) ReadRelative(from, ref string) (string, string, error) {
	resolved := Resolve(from, ref)
	content, ok := m.files[resolved]
	if !ok {
		return "", resolved, fmt.Errorf("file %q (resolved from %q in %q) is not in the virtual file map", resolved, ref, from)
	}
	return content, resolved, nil
}

// Paths returns all file paths in sorted order.
func (m Map) Paths() []string {
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of files.
func (m Map) Len() int {
	return len(m.files)
}

// LoadDir recursively reads every file under root whose name ends with one of
// the given extensions. Paths in the returned map are relative to root.
func LoadDir(root string, extensions ...string) (Map, error) {
	if len(extensions) == 0 {
		panic("at least one extension is required")
	}

	files := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasExtension(d.Name(), extensions) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return Map{}, fmt.Errorf("failed to load %s: %w", root, err)
	}
	return New(files), nil
}

func hasExtension(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
