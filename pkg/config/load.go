package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.FilePath = path
	return c, nil
}

// Parse decodes YAML and expands ${root} in paths, commands and URLs.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.interpolate()
	return &c, nil
}

// Save writes c to path as YAML.
func Save(c *Config, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) interpolate() {
	if c.Root == "" {
		return
	}
	r := strings.NewReplacer("${root}", c.Root)
	for name, f := range c.Feeds {
		f.File = r.Replace(f.File)
		f.Dir = r.Replace(f.Dir)
		f.Command = r.Replace(f.Command)
		f.URL = r.Replace(f.URL)
		for k, v := range f.Env {
			f.Env[k] = r.Replace(v)
		}
		c.Feeds[name] = f
	}
}
