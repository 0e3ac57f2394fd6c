package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML policy config from disk. Environment variables in the
// file are expanded before parsing.
func Load(path string) (Config, error) {
	// #nosec G304 -- path comes from operator-configured policy path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return cfg, cfg.Validate()
}
