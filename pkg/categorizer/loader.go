package categorizer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tableFile is the on-disk layout of a category table.
type tableFile struct {
	Categories []Rule `yaml:"categories"`
}

// LoadFile reads an ordered category table from a YAML file.
func LoadFile(path string) (*Categorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category file %s: %w", path, err)
	}

	c, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("category file %s: %w", path, err)
	}
	return c, nil
}

// LoadBytes parses an ordered category table from raw YAML.
func LoadBytes(data []byte) (*Categorizer, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse category table: %w", err)
	}
	if len(tf.Categories) == 0 {
		return nil, fmt.Errorf("no categories defined")
	}
	for i, r := range tf.Categories {
		if r.Category == "" {
			return nil, fmt.Errorf("category %d: missing name", i+1)
		}
	}
	return New(tf.Categories), nil
}

// FromConfig returns the table at path, or the built-in table when path is empty.
func FromConfig(path string) (*Categorizer, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
