// Package config loads user defaults from a TOML file.
//
// Example file:
//
//	colour = "auto"
//	rainbow_columns = "never"
//	header_colour = "\u001b[1m"
//	pager = "less -RXS"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

// EnvVar names an explicit configuration file.
const EnvVar = "DSV_CONFIG"

// Config holds the settings a file may override. Unset keys stay nil.
type Config struct {
	Colour          *dsv.AutoChoice `toml:"colour"`
	RainbowColumns  *dsv.AutoChoice `toml:"rainbow_columns"`
	NumberedColumns *dsv.AutoChoice `toml:"numbered_columns"`
	Trailer         *dsv.AutoChoice `toml:"trailer"`
	HeaderColour    *string         `toml:"header_colour"`
	HeaderBGColour  *string         `toml:"header_bg_colour"`
	Pager           *string         `toml:"pager"`
	QuoteOutput     *bool           `toml:"quote_output"`
}

// Path returns the configuration file location: $DSV_CONFIG, else
// $XDG_CONFIG_HOME/dsv/config.toml, else ~/.config/dsv/config.toml.
func Path(getenv func(string) string) string {
	if p := getenv(EnvVar); p != "" {
		return p
	}
	if dir := getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "dsv", "config.toml")
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "dsv", "config.toml")
	}
	return ""
}

// Load reads the configuration file. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFile(Path(os.Getenv))
}

// LoadFile reads the configuration from path.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// Apply copies the settings present in the file onto opts.
func (c *Config) Apply(opts *dsv.Options) {
	if c.Colour != nil {
		opts.Colour = *c.Colour
	}
	if c.RainbowColumns != nil {
		opts.RainbowColumns = *c.RainbowColumns
	}
	if c.NumberedColumns != nil {
		opts.NumberedColumns = *c.NumberedColumns
	}
	if c.Trailer != nil {
		opts.Trailer = *c.Trailer
	}
	if c.HeaderColour != nil {
		opts.HeaderColour = *c.HeaderColour
	}
	if c.HeaderBGColour != nil {
		opts.HeaderBGColour = *c.HeaderBGColour
	}
	if c.Pager != nil {
		opts.Pager = *c.Pager
	}
	if c.QuoteOutput != nil {
		opts.QuoteOutput = *c.QuoteOutput
	}
}
