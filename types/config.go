package types

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTickLimit is the metering budget of one invocation.
	DefaultTickLimit Ticks = 10_000_000
	// DefaultMemoryLimitPages caps guest linear memory (64 KiB pages, 16 MiB total).
	DefaultMemoryLimitPages uint32 = 256
	// MaxMemoryLimitPages is the largest page count a 32-bit linear memory can have.
	MaxMemoryLimitPages uint32 = 1 << 16
	// DefaultHostModule is the import module name host functions are exported under.
	DefaultHostModule = "env"
	// DefaultImportPrefix is prepended to every host function name.
	DefaultImportPrefix = "eth2_"
	// DefaultEntryPoint is the guest export invoked once per execution.
	DefaultEntryPoint = "main"
	// DefaultMemoryExport is the name of the guest's exported linear memory.
	DefaultMemoryExport = "memory"
)

// VMConfig defines the configuration for the VM.
type VMConfig struct {
	TickLimit        Ticks  `json:"tick_limit" yaml:"tick_limit"`
	MemoryLimitPages uint32 `json:"memory_limit_pages" yaml:"memory_limit_pages"`
	HostModule       string `json:"host_module" yaml:"host_module"`
	ImportPrefix     string `json:"import_prefix" yaml:"import_prefix"`
	EntryPoint       string `json:"entry_point" yaml:"entry_point"`
	MemoryExport     string `json:"memory_export" yaml:"memory_export"`

	// NoImportPrefix exports host functions under their bare names. Without it an
	// empty ImportPrefix means DefaultImportPrefix.
	NoImportPrefix bool `json:"no_import_prefix" yaml:"no_import_prefix"`

	// PrintDebug promotes guest trace output (log, printMem) from debug to info level.
	PrintDebug bool `json:"print_debug" yaml:"print_debug"`
}

// DefaultVMConfig returns the configuration used when nothing is overridden.
func DefaultVMConfig() VMConfig {
	return VMConfig{
		TickLimit:        DefaultTickLimit,
		MemoryLimitPages: DefaultMemoryLimitPages,
		HostModule:       DefaultHostModule,
		ImportPrefix:     DefaultImportPrefix,
		EntryPoint:       DefaultEntryPoint,
		MemoryExport:     DefaultMemoryExport,
	}
}

// WithDefaults returns a copy of c with every zero field replaced by its default.
// An empty ImportPrefix is kept only when NoImportPrefix is set.
func (c VMConfig) WithDefaults() VMConfig {
	d := DefaultVMConfig()
	if c.NoImportPrefix {
		c.ImportPrefix = ""
	} else if c.ImportPrefix == "" {
		c.ImportPrefix = d.ImportPrefix
	}
	if c.TickLimit == 0 {
		c.TickLimit = d.TickLimit
	}
	if c.MemoryLimitPages == 0 {
		c.MemoryLimitPages = d.MemoryLimitPages
	}
	if c.HostModule == "" {
		c.HostModule = d.HostModule
	}
	if c.EntryPoint == "" {
		c.EntryPoint = d.EntryPoint
	}
	if c.MemoryExport == "" {
		c.MemoryExport = d.MemoryExport
	}
	return c
}

// Validate checks that the configuration can be used to build a VM.
func (c VMConfig) Validate() error {
	if c.TickLimit == 0 {
		return errors.New("tick_limit must be positive")
	}
	if c.MemoryLimitPages == 0 || c.MemoryLimitPages > MaxMemoryLimitPages {
		return fmt.Errorf("memory_limit_pages must be in [1, %d], got %d", MaxMemoryLimitPages, c.MemoryLimitPages)
	}
	if c.HostModule == "" {
		return errors.New("host_module must not be empty")
	}
	if c.EntryPoint == "" {
		return errors.New("entry_point must not be empty")
	}
	if c.MemoryExport == "" {
		return errors.New("memory_export must not be empty")
	}
	return nil
}

// LoadVMConfig reads a YAML config file. Fields absent from the file keep their
// defaults; fields set to zero in the file are validated as given.
func LoadVMConfig(path string) (VMConfig, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return VMConfig{}, fmt.Errorf("failed to read config: %w", err)
	}
	config := DefaultVMConfig()
	if err := yaml.Unmarshal(bz, &config); err != nil {
		return VMConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return VMConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}
