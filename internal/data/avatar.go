package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StartItem is one stack granted to a freshly created avatar.
type StartItem struct {
	Proto string `yaml:"proto"`
	Count int    `yaml:"count"`
}

// StartSkill is one skill rank granted to a freshly created avatar.
type StartSkill struct {
	Skill string `yaml:"skill"`
	Rank  int    `yaml:"rank"`
}

// AvatarDefaults is the tuning block applied at account creation.
type AvatarDefaults struct {
	Icon        string       `yaml:"icon"`
	Level       int          `yaml:"level"`
	Race        string       `yaml:"race"`
	Capacity    int          `yaml:"capacity"`
	TutorialsOn bool         `yaml:"tutorials_on"`
	Items       []StartItem  `yaml:"items"`
	Skills      []StartSkill `yaml:"skills"`
}

// LoadAvatarDefaults loads avatar_defaults.yaml. A missing file returns
// the built-in defaults rather than an error.
func LoadAvatarDefaults(path string) (*AvatarDefaults, error) {
	d := &AvatarDefaults{
		Level:       1,
		Capacity:    16,
		TutorialsOn: true,
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read avatar defaults: %w", err)
	}
	if err := yaml.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("parse avatar defaults: %w", err)
	}
	return d, nil
}
