// Package content loads YAML catalogue files. Each file holds a YAML list
// of entries; a directory is the concatenation of its files in name order.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDirectory decodes every *.yaml / *.yml file in dir as a list of T.
//
// Precondition: dir must be a readable directory.
// Postcondition: entries are returned in file-name order, then file order.
// Unknown YAML fields are an error.
func LoadDirectory[T any](dir string) ([]T, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		items, err := Decode[T](bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		out = append(out, items...)
	}
	return out, nil
}

// Decode decodes a single YAML list of T from r.
func Decode[T any](r io.Reader) ([]T, error) {
	var items []T
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&items); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}
