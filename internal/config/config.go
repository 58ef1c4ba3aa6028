// Package config loads the demo CLI's runtime configuration from YAML,
// adapted from the teacher's plain-struct, yaml.v3-tagged config
// loading convention (the teacher embeds no config package of its own;
// this follows the same tagged-struct-plus-defaults shape its stub
// registries and CLI flags use elsewhere in the pack).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/northbridge-labs/cheevos/internal/consoleinfo"
)

// RuntimeConfig is the demo CLI's top-level configuration: which
// server to talk to and the client's default session toggles (spec
// §4.8's hardcore/encore/spectator/test-unofficial flags).
type RuntimeConfig struct {
	Server struct {
		Host string `yaml:"host"`
	} `yaml:"server"`

	Hardcore       bool `yaml:"hardcore"`
	EncoreMode     bool `yaml:"encore_mode"`
	SpectatorMode  bool `yaml:"spectator_mode"`
	TestUnofficial bool `yaml:"test_unofficial"`

	Console string `yaml:"console"`
}

// Default returns the configuration used when no file is present:
// softcore, no encore/spectator/test-unofficial, pointed at the
// reference server host.
func Default() RuntimeConfig {
	var cfg RuntimeConfig
	cfg.Server.Host = "https://retroachievements.org"
	cfg.Console = "nes"
	return cfg
}

// Load reads and parses a RuntimeConfig from path, falling back to
// Default() if the file doesn't exist.
func Load(path string) (RuntimeConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ConsoleID resolves the configured console name to a consoleinfo.ID,
// defaulting to Unknown (which consoleinfo.Lookup reports as absent)
// for unrecognized names.
func (c RuntimeConfig) ConsoleID() consoleinfo.ID {
	switch c.Console {
	case "nes":
		return consoleinfo.NES
	case "snes":
		return consoleinfo.SNES
	case "gb", "gameboy":
		return consoleinfo.GameBoy
	case "gba":
		return consoleinfo.GameBoyAdvance
	case "genesis", "megadrive":
		return consoleinfo.MegaDrive
	case "psx", "playstation":
		return consoleinfo.PlayStation
	case "atari2600":
		return consoleinfo.Atari2600
	default:
		return consoleinfo.Unknown
	}
}
