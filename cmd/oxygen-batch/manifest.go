// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest lists the source files a batch run cooks, following the
// config.Load YAML-file idiom (oxygen/config).
type Manifest struct {
	Sources []SourceEntry `yaml:"sources"`
}

// SourceEntry is one manifest-listed source file. Path is relative to
// the manifest's --root unless absolute.
type SourceEntry struct {
	Path string `yaml:"path"`
}

func loadManifest(path, root string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oxygen-batch: read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("oxygen-batch: parse manifest %s: %w", path, err)
	}
	for i, s := range m.Sources {
		if root != "" && !filepath.IsAbs(s.Path) {
			m.Sources[i].Path = filepath.Join(root, s.Path)
		}
	}
	return &m, nil
}
