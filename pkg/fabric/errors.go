package fabric

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceFabric/pkg/fabric/report"
)

// FormatError is the parse-time structural failure category. It originates
// in the report reader and is re-exported here so consumers can match it
// without importing the report package.
type FormatError = report.FormatError

// AssemblyError is the distinguished usage-error category: an operation
// against a built device or route structure was invalid. The operation names
// what was attempted; the target structure is left unmodified.
type AssemblyError struct {
	Op     string
	Detail string
	Err    error
}

func (e *AssemblyError) Error() string {
	msg := "fabric: " + e.Op
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AssemblyError) Unwrap() error { return e.Err }

func assemblyErrf(op, format string, args ...any) error {
	return &AssemblyError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

func formatErrf(construct, format string, args ...any) error {
	return &FormatError{Construct: construct, Detail: fmt.Sprintf(format, args...)}
}
