// Package config declares the platform's machine-description file:
// memory size, PLIC source count, timebase, entry and DTB addresses. A
// zero-value Config falls back to the fixed layout spec.md §6 names,
// matching tinyrange-cc's site-config.yml pattern of "absent file or
// field means built-in default" for deployment description.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes one platform instance. Every field is optional; a
// zero value for a field falls back to its spec.md default.
type Config struct {
	// MemorySize is the RAM size in bytes, mapped at 0x8000_0000. Zero
	// defaults to 256 MiB.
	MemorySize uint64 `yaml:"memory_size"`

	// PLICSources is parsed but not used: the PLIC always exposes
	// plic.NumSources - 1 external lines (source 0 reserved).
	PLICSources int `yaml:"plic_sources"`

	// TimebaseFrequency is the nominal number of mtime ticks per second.
	// Zero defaults to 10_000_000 (10 MHz, the common QEMU virt value).
	// It does not size Tick calls: Platform.Step advances mtime by one
	// tick per retired instruction.
	TimebaseFrequency uint64 `yaml:"timebase_frequency"`

	// EntryAddress is where the boot ROM jumps after setting a1; zero
	// defaults to 0x8000_0000 (start of RAM), the conventional place a
	// firmware payload is loaded.
	EntryAddress uint64 `yaml:"entry_address"`

	// DTBAddress is where the boot command places a loaded devicetree
	// blob before handing its address to the guest in a1. When a blob is
	// given and this is zero or below RAM, the blob goes to RAM offset
	// 0x0210_0000 and a1 holds that address. With no blob, a1 is this
	// value (0 by default).
	DTBAddress uint64 `yaml:"dtb_address"`
}

const (
	defaultMemorySize = 256 << 20
	defaultTimebaseHz = 10_000_000
	defaultEntryAddr  = 0x8000_0000
)

// WithDefaults returns a copy of cfg with every zero-valued field
// replaced by its spec.md default.
func (cfg Config) WithDefaults() Config {
	if cfg.MemorySize == 0 {
		cfg.MemorySize = defaultMemorySize
	}

	if cfg.TimebaseFrequency == 0 {
		cfg.TimebaseFrequency = defaultTimebaseHz
	}

	if cfg.EntryAddress == 0 {
		cfg.EntryAddress = defaultEntryAddr
	}

	return cfg
}

// Load reads and parses a YAML config file at path. A missing file is
// not an error: it returns the zero Config, which WithDefaults then
// resolves to the built-in platform layout.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}

		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}
