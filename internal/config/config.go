// Package config decodes the engine's on-disk configuration: a plain
// struct tagged with `toml:"..."`, decoded in one shot with
// github.com/BurntSushi/toml, then validated and normalized into the shape
// the rest of the engine consumes.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level on-disk document.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Server   ServerConfig   `toml:"server"`
	Features FeaturesConfig `toml:"features"`
}

// CatalogConfig selects the storage backend and its catalog identity.
type CatalogConfig struct {
	// Name is the catalog_name stamped into every system-table row.
	Name string `toml:"name"`
	// Path is the bbolt database file. Empty means in-memory.
	Path string `toml:"path"`
}

// ServerConfig holds listener defaults for the (out-of-scope) wire layer;
// kept here so operators have one config file for the whole process.
type ServerConfig struct {
	ListenAddress string `toml:"listen_address"`
}

// FeaturesConfig toggles optional engine behavior. Unset fields keep their
// Go zero value, which is always the conservative choice.
type FeaturesConfig struct {
	AllowDurableCatalog bool `toml:"allow_durable_catalog"`
}

const defaultListenAddress = "127.0.0.1:5432"

// Load reads and decodes the TOML file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes TOML content from r and validates the result.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Catalog.Name == "" {
		c.Catalog.Name = "default"
	}
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = defaultListenAddress
	}
}

func (c *Config) validate() error {
	if c.Catalog.Path != "" && !c.Features.AllowDurableCatalog {
		return fmt.Errorf("config: catalog.path set but features.allow_durable_catalog is false")
	}
	return nil
}
