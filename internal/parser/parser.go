package parser

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nao1215/addrcluster/internal/model"
)

const (
	// fieldCount is the number of fields a record line must have.
	fieldCount = 5

	// maxLineSize bounds the length of a single record line.
	maxLineSize = 1024 * 1024
)

// ParseLine parses one record line. lineNo is only used for error context.
func ParseLine(line string, lineNo int) (model.TransactionRecord, error) {
	fields := strings.Fields(line)
	if len(fields) < fieldCount {
		return model.TransactionRecord{}, &model.MalformedRecordError{
			Line:   lineNo,
			Text:   line,
			Reason: "expected " + strconv.Itoa(fieldCount) + " fields, got " + strconv.Itoa(len(fields)),
		}
	}

	amount, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return model.TransactionRecord{}, &model.MalformedRecordError{
			Line:   lineNo,
			Text:   line,
			Reason: "amount is not a non-negative integer",
			Err:    err,
		}
	}

	direction, ok := model.ParseDirection(fields[4])
	if !ok {
		return model.TransactionRecord{}, &model.MalformedRecordError{
			Line:   lineNo,
			Text:   line,
			Reason: "direction must be \"in\" or \"out\", read " + strconv.Quote(fields[4]),
		}
	}

	return model.TransactionRecord{
		TransactionID: fields[0],
		TxHash:        fields[1],
		Address:       fields[2],
		Amount:        amount,
		Direction:     direction,
	}, nil
}

// Parse reads every record from r in file order.
// The first malformed line aborts parsing; no partial result is returned.
func Parse(r io.Reader) ([]model.TransactionRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	records := make([]model.TransactionRecord, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		record, err := ParseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &model.MalformedRecordError{
				Line:   lineNo + 1,
				Reason: "line exceeds maximum length",
				Err:    err,
			}
		}
		return nil, &model.IOError{Op: "read", Err: err}
	}

	return records, nil
}

// ParseFile opens path and parses all records in it. When digest is not
// nil, every byte read from the file is also written to it.
func ParseFile(path string, digest io.Writer) ([]model.TransactionRecord, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided record file is intentional
	if err != nil {
		return nil, &model.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	if digest != nil {
		r = io.TeeReader(f, digest)
	}

	records, err := Parse(r)
	if err != nil {
		var ioErr *model.IOError
		if errors.As(err, &ioErr) && ioErr.Path == "" {
			ioErr.Path = path
		}
		return nil, err
	}
	return records, nil
}
