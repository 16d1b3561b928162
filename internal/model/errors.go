package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy.
// Every typed error below matches its sentinel with errors.Is, so callers
// that only care about the category do not need errors.As.
var (
	// ErrMalformedRecord is the category of MalformedRecordError.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUnknownAddress is the category of UnknownAddressError.
	ErrUnknownAddress = errors.New("unknown address")
	// ErrMissingInputCluster is the category of MissingInputClusterError.
	ErrMissingInputCluster = errors.New("missing input cluster")
	// ErrIO is the category of IOError.
	ErrIO = errors.New("i/o failure")
)

// MalformedRecordError is returned by the parser when a line cannot be
// turned into a TransactionRecord.
type MalformedRecordError struct {
	// Line is the 1-based line number in the record file.
	Line int
	// Text is the offending line.
	Text string
	// Reason describes which rule was violated.
	Reason string
	// Err is the underlying conversion error, if any.
	Err error
}

// Error implements error.
func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %q: %v", e.Line, e.Reason, e.Text, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Unwrap returns the underlying conversion error.
func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMalformedRecord.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// UnknownAddressError is returned by the graph builder when an address
// has no cluster in the KeyMap.
type UnknownAddressError struct {
	// Address is the address that was never indexed.
	Address string
	// TransactionID is the transaction of the record that referenced it.
	TransactionID string
	// Record is the 1-based position of the record in the record stream.
	Record int
}

// Error implements error.
func (e *UnknownAddressError) Error() string {
	return fmt.Sprintf("record %d (transaction %s): address %s is not in the key map",
		e.Record, e.TransactionID, e.Address)
}

// Is reports whether target is ErrUnknownAddress.
func (e *UnknownAddressError) Is(target error) bool {
	return target == ErrUnknownAddress
}

// MissingInputClusterError is returned by the graph builder when an output
// belongs to a transaction without any resolved input cluster.
type MissingInputClusterError struct {
	// TransactionID is the transaction that has outputs but no inputs.
	TransactionID string
	// Record is the 1-based position of the output record in the record stream.
	Record int
}

// Error implements error.
func (e *MissingInputClusterError) Error() string {
	return fmt.Sprintf("record %d: did not find input cluster for transaction %s",
		e.Record, e.TransactionID)
}

// Is reports whether target is ErrMissingInputCluster.
func (e *MissingInputClusterError) Is(target error) bool {
	return target == ErrMissingInputCluster
}

// IOError wraps a failure to open, read or write a file.
type IOError struct {
	// Op is the failed operation ("open", "read", "write", ...).
	Op string
	// Path is the file involved.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}
