package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// InputConfig.Validate. Callers match them with errors.Is.
var (
	// ErrNoInput is returned when no record file is given.
	ErrNoInput = errors.New("no input specified: provide at least one record file")

	// ErrInvalidWorkers is returned when the grouping worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidBatchSize is returned when the number of concurrently
	// processed files is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidTop is returned when the ranking length is negative.
	ErrInvalidTop = errors.New("invalid top: must be non-negative")

	// ErrInvalidPolicy is returned when a policy is neither "fail" nor "skip".
	ErrInvalidPolicy = errors.New("invalid policy: must be \"fail\" or \"skip\"")

	// ErrInvalidFileName is returned when an artifact file name contains a
	// path separator.
	ErrInvalidFileName = errors.New("invalid artifact file name: must not contain a path separator")

	// ErrInvalidNetwork is returned for an unknown network name.
	ErrInvalidNetwork = errors.New("invalid network: must be mainnet, testnet, regtest or signet")

	// ErrDuplicateInput is returned when a record file is given twice.
	ErrDuplicateInput = errors.New("duplicate input: record file given more than once")
)
