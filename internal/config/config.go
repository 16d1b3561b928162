package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "addrcluster"

	// DefaultOutputDir is where artifacts are written when neither a flag
	// nor the config file names a directory.
	DefaultOutputDir = "."

	// DefaultBatchSize is the number of record files processed concurrently.
	// Each file holds its whole record set in memory, so this stays small.
	DefaultBatchSize = 2

	// DefaultTop is the length of the analysis rankings.
	DefaultTop = 10

	// NoTargetCluster disables the payer report.
	NoTargetCluster = -1

	// PolicyFail aborts graph construction on an unresolved record.
	PolicyFail = "fail"

	// PolicySkip drops an unresolved record with a warning.
	PolicySkip = "skip"
)

// Networks whose address encodings the analysis can classify.
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
	NetworkRegtest = "regtest"
	NetworkSignet  = "signet"

	// DefaultNetwork is used when neither a flag nor the config file names one.
	DefaultNetwork = NetworkMainnet
)

// validNetwork reports whether name is one of the Network constants.
func validNetwork(name string) bool {
	switch name {
	case NetworkMainnet, NetworkTestnet, NetworkRegtest, NetworkSignet:
		return true
	}
	return false
}

// DefaultWorkers is the number of goroutines used to group input records.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// Config holds all options of a cluster run. It is populated from CLI
// flags and passed down explicitly; there is no global state.
type Config struct {
	// Inputs are the record files to process.
	Inputs []string

	// OutputDir overrides the artifact directory of every input.
	// Empty means use the config file or DefaultOutputDir.
	OutputDir string

	// Workers is the number of goroutines grouping input records per file.
	// Unions are always applied by a single goroutine.
	Workers int

	// BatchSize is the number of files processed concurrently.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit path of the config file.
	// If empty, .addrcluster is searched in the current and home directories.
	ConfigFilePath string

	// InputConfigs holds the per-input settings from the config file.
	InputConfigs *File

	// SkipUnknown forces the skip policy for unknown addresses.
	SkipUnknown bool

	// SkipMissingInput forces the skip policy for outputs without inputs.
	SkipMissingInput bool

	// NoConsistencyCheck disables the inconsistent-inputs warning.
	NoConsistencyCheck bool

	// JSONReport selects the JSON report. Exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown report. Exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the report destination; empty means stdout.
	ReportFile string

	// Analyze enables the analysis step.
	Analyze bool

	// Top is the length of the analysis rankings.
	Top int

	// TargetCluster is the cluster whose payers are reported, or
	// NoTargetCluster. Setting it implies Analyze.
	TargetCluster int64

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB stores finished runs in the history database.
	SaveToDB bool

	// Network selects the address encoding used by the analysis.
	// Empty means use the config file or DefaultNetwork.
	Network string

	// LogJSON switches log output to JSON lines.
	LogJSON bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Workers:       DefaultWorkers(),
		BatchSize:     DefaultBatchSize,
		Top:           DefaultTop,
		TargetCluster: NoTargetCluster,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/addrcluster on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/addrcluster on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.Top < 0 {
		return ErrInvalidTop
	}
	if c.Network != "" && !validNetwork(c.Network) {
		return fmt.Errorf("%w: %q", ErrInvalidNetwork, c.Network)
	}
	seen := make(map[string]bool, len(c.Inputs))
	for _, input := range c.Inputs {
		key := filepath.Clean(input)
		if seen[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateInput, input)
		}
		seen[key] = true
	}
	return nil
}

// AnalysisEnabled reports whether the analysis step runs.
func (c *Config) AnalysisEnabled() bool {
	return c.Analyze || c.TargetCluster != NoTargetCluster
}

// InputSettings are the resolved settings of one record file.
type InputSettings struct {
	OutputDir        string
	UserMapFile      string
	KeyMapFile       string
	GraphFile        string
	UnknownAddress   string
	MissingInput     string
	CheckConsistency bool
	Network          string
}

// ForInput resolves the settings of one input: config file defaults, then
// the file's entry for the input, then command line flags. When several
// inputs share an output directory, each gets a subdirectory named after
// the input file so that artifacts do not overwrite each other.
func (c *Config) ForInput(input string) InputSettings {
	var ic InputConfig
	perInputDir := false
	if c.InputConfigs != nil {
		ic = c.InputConfigs.GetInputConfig(input)
		if entry, ok := c.InputConfigs.lookup(input); ok && entry.OutputDir != "" {
			perInputDir = true
		}
	}

	s := InputSettings{
		OutputDir:        ic.OutputDir,
		UserMapFile:      ic.UserMapFile,
		KeyMapFile:       ic.KeyMapFile,
		GraphFile:        ic.GraphFile,
		UnknownAddress:   policyOrDefault(ic.OnUnknownAddress),
		MissingInput:     policyOrDefault(ic.OnMissingInput),
		CheckConsistency: ic.CheckConsistency == nil || *ic.CheckConsistency,
		Network:          ic.Network,
	}

	if c.OutputDir != "" {
		s.OutputDir = c.OutputDir
		perInputDir = false
	}
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	if len(c.Inputs) > 1 && !perInputDir {
		sub, ok := c.inputSubdirs()[filepath.Clean(input)]
		if !ok {
			sub = inputStem(input)
		}
		s.OutputDir = filepath.Join(s.OutputDir, sub)
	}

	if c.SkipUnknown {
		s.UnknownAddress = PolicySkip
	}
	if c.SkipMissingInput {
		s.MissingInput = PolicySkip
	}
	if c.NoConsistencyCheck {
		s.CheckConsistency = false
	}
	if c.Network != "" {
		s.Network = c.Network
	}
	if s.Network == "" {
		s.Network = DefaultNetwork
	}
	return s
}

// inputSubdirs maps each cleaned input path to its artifact subdirectory.
// Inputs sharing a stem, such as 2013/records.txt and 2014/records.txt,
// are numbered in input order: records, records-2, records-3.
// Names are compared case-insensitively for case-folding file systems.
func (c *Config) inputSubdirs() map[string]string {
	dirs := make(map[string]string, len(c.Inputs))
	used := make(map[string]bool, len(c.Inputs))
	for _, input := range c.Inputs {
		key := filepath.Clean(input)
		if _, ok := dirs[key]; ok {
			continue
		}
		stem := inputStem(input)
		name := stem
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = stem + "-" + strconv.Itoa(n)
		}
		used[strings.ToLower(name)] = true
		dirs[key] = name
	}
	return dirs
}

// policyOrDefault returns p, or PolicyFail if p is empty.
func policyOrDefault(p string) string {
	if p == "" {
		return PolicyFail
	}
	return p
}

// inputStem returns the base name of path without its extension.
func inputStem(path string) string {
	base := filepath.Base(path)
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
		return stem
	}
	return base
}
