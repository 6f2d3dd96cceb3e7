package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Profile is a per-board TOML file (conventionally stencil.toml next to
// the Gerber export) that pins the input, the output, and any stencil
// settings that differ from the user's global configuration.
type Profile struct {
	Input   string         `toml:"input"`
	Output  string         `toml:"output"`
	Stencil map[string]any `toml:"stencil"`
}

// LoadProfile parses a board profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Apply writes the profile's stencil overrides onto v. Explicit sets
// outrank config-file values, so a profile wins over the global yaml
// while flags set afterwards still win over the profile.
func (p *Profile) Apply(v *viper.Viper) {
	for key, value := range p.Stencil {
		v.Set(key, value)
	}
}
