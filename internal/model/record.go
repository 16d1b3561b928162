package model

import (
	"strconv"
	"strings"
)

// Direction tells whether a record supplies money to a transaction or receives it.
type Direction int

const (
	// DirectionInput marks a record that spends from its address.
	DirectionInput Direction = iota
	// DirectionOutput marks a record that pays to its address.
	DirectionOutput
)

const (
	// InputToken is the direction token of an input record in the record file.
	InputToken = "in"
	// OutputToken is the direction token of an output record in the record file.
	OutputToken = "out"
)

// String returns the record-file token for the direction.
func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return InputToken
	case DirectionOutput:
		return OutputToken
	default:
		return unknownStr
	}
}

// ParseDirection converts a direction token. Tokens are case-sensitive.
func ParseDirection(token string) (Direction, bool) {
	switch token {
	case InputToken:
		return DirectionInput, true
	case OutputToken:
		return DirectionOutput, true
	default:
		return 0, false
	}
}

// unknownStr is the string representation for unknown values.
const unknownStr = "unknown"

// TransactionRecord is one row of the flat transaction dataset.
// It is a comparable value: two records are equal when all five fields are equal,
// so records can be used directly as map keys.
type TransactionRecord struct {
	// TransactionID groups the rows of one transaction.
	TransactionID string
	// TxHash is the transaction hash as reported by the dataset generator.
	TxHash string
	// Address is the spending address (input) or receiving address (output).
	Address string
	// Amount is the value in the smallest currency unit (satoshi).
	Amount uint64
	// Direction is DirectionInput or DirectionOutput.
	Direction Direction
}

// IsInput reports whether the record is an input row.
func (r TransactionRecord) IsInput() bool {
	return r.Direction == DirectionInput
}

// IsOutput reports whether the record is an output row.
func (r TransactionRecord) IsOutput() bool {
	return r.Direction == DirectionOutput
}

// String formats the record as a record-file line without the newline.
func (r TransactionRecord) String() string {
	var sb strings.Builder
	sb.WriteString(r.TransactionID)
	sb.WriteByte(' ')
	sb.WriteString(r.TxHash)
	sb.WriteByte(' ')
	sb.WriteString(r.Address)
	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatUint(r.Amount, 10))
	sb.WriteByte(' ')
	sb.WriteString(r.Direction.String())
	return sb.String()
}
