package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// InputConfig holds the settings for one record file.
type InputConfig struct {
	// OutputDir is the directory the artifacts are written to.
	OutputDir string `yaml:"outputDir,omitempty"`

	// UserMapFile, KeyMapFile and GraphFile override the artifact file names.
	UserMapFile string `yaml:"userMapFile,omitempty"`
	KeyMapFile  string `yaml:"keyMapFile,omitempty"`
	GraphFile   string `yaml:"graphFile,omitempty"`

	// OnUnknownAddress is "fail" (default) or "skip".
	OnUnknownAddress string `yaml:"onUnknownAddress,omitempty"`

	// OnMissingInput is "fail" (default) or "skip".
	OnMissingInput string `yaml:"onMissingInput,omitempty"`

	// CheckConsistency toggles the inconsistent-inputs warning. Nil means on.
	CheckConsistency *bool `yaml:"checkConsistency,omitempty"`

	// Network is the chain the addresses belong to, "mainnet" by default.
	Network string `yaml:"network,omitempty"`
}

// Validate checks policies and file names.
func (ic InputConfig) Validate() error {
	for _, p := range []string{ic.OnUnknownAddress, ic.OnMissingInput} {
		if p != "" && p != PolicyFail && p != PolicySkip {
			return fmt.Errorf("%w: %q", ErrInvalidPolicy, p)
		}
	}
	for _, name := range []string{ic.UserMapFile, ic.KeyMapFile, ic.GraphFile} {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
		}
	}
	if ic.Network != "" && !validNetwork(ic.Network) {
		return fmt.Errorf("%w: %q", ErrInvalidNetwork, ic.Network)
	}
	return nil
}

// File is the structure of the .addrcluster configuration file.
type File struct {
	// Inputs maps record file paths to their settings. A key matches an
	// input by exact path, cleaned path or base name, in that order.
	Inputs map[string]InputConfig `yaml:"inputs,omitempty"`

	// Defaults apply to every input unless overridden.
	Defaults InputConfig `yaml:"defaults,omitempty"`
}

// Validate checks the defaults and every input entry.
func (cf *File) Validate() error {
	if err := cf.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for path, ic := range cf.Inputs {
		if err := ic.Validate(); err != nil {
			return fmt.Errorf("inputs %s: %w", path, err)
		}
	}
	return nil
}

// lookup finds the entry for input.
func (cf *File) lookup(input string) (InputConfig, bool) {
	for _, key := range []string{input, filepath.Clean(input), filepath.Base(input)} {
		if ic, ok := cf.Inputs[key]; ok {
			return ic, true
		}
	}
	return InputConfig{}, false
}

// GetInputConfig returns the settings for input: the defaults overridden
// by the non-empty fields of the input's entry.
func (cf *File) GetInputConfig(input string) InputConfig {
	result := cf.Defaults

	ic, ok := cf.lookup(input)
	if !ok {
		return result
	}

	if ic.OutputDir != "" {
		result.OutputDir = ic.OutputDir
	}
	if ic.UserMapFile != "" {
		result.UserMapFile = ic.UserMapFile
	}
	if ic.KeyMapFile != "" {
		result.KeyMapFile = ic.KeyMapFile
	}
	if ic.GraphFile != "" {
		result.GraphFile = ic.GraphFile
	}
	if ic.OnUnknownAddress != "" {
		result.OnUnknownAddress = ic.OnUnknownAddress
	}
	if ic.OnMissingInput != "" {
		result.OnMissingInput = ic.OnMissingInput
	}
	if ic.CheckConsistency != nil {
		v := *ic.CheckConsistency
		result.CheckConsistency = &v
	}
	if ic.Network != "" {
		result.Network = ic.Network
	}
	return result
}
