package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AliasEntry maps an extra verb to the input it expands to.
type AliasEntry struct {
	Verb      string `yaml:"verb"`
	Expansion string `yaml:"expansion"`
}

// AliasTable holds operator-defined command aliases layered on top of the
// built-in ones.
type AliasTable struct {
	entries []AliasEntry
}

// LoadAliasTable loads aliases.yaml. A missing file yields an empty table.
func LoadAliasTable(path string) (*AliasTable, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &AliasTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read alias table: %w", err)
	}
	var entries []AliasEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}
	return &AliasTable{entries: entries}, nil
}

// All returns the alias entries in file order.
func (t *AliasTable) All() []AliasEntry {
	return t.entries
}

// Count returns the number of aliases loaded.
func (t *AliasTable) Count() int {
	return len(t.entries)
}
