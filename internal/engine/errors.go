package engine

// errors.go defines the error taxonomy for a batch run.
//
// SchemaError, ValidationError and ConfigError are batch-fatal: they abort
// the run before any submission and produce no partial output. CarrierError
// and TransportError are scoped to a single unit and become that unit's
// failure outcome without stopping the rest of the batch.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SchemaError reports required columns missing from the input table.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// ValidationError reports bad row data in one column.
// Lines holds the offending 1-based sheet lines when row-specific.
type ValidationError struct {
	Column  string
	Lines   []int
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Lines) > 0 {
		return fmt.Sprintf("%s: %s (lines %s)", e.Column, e.Message, joinLines(e.Lines))
	}
	return fmt.Sprintf("%s: %s", e.Column, e.Message)
}

// ConfigError reports missing or unusable static configuration
// (credentials, origin address block).
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// CarrierError reports a per-unit rejection or unusable reply from the
// pickup service.
type CarrierError struct {
	Remito  int64
	Message string
}

func (e *CarrierError) Error() string {
	return fmt.Sprintf("carrier error for remito %d: %s", e.Remito, e.Message)
}

// TransportError reports a per-unit connectivity, timeout, or HTTP-status
// failure talking to the pickup service.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsBatchFatal reports whether err aborts the whole batch before any
// submission, as opposed to being isolated to one unit.
func IsBatchFatal(err error) bool {
	var se *SchemaError
	var ve *ValidationError
	var ce *ConfigError
	return errors.As(err, &se) || errors.As(err, &ve) || errors.As(err, &ce)
}

func joinLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, n := range lines {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
