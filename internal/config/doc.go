// Package config provides configuration for addrcluster runs.
// It defines the flat Config built from command line flags, the optional
// .addrcluster YAML file with per-input overrides, and the XDG directories
// used for the run history database.
package config
