package model

import (
	"fmt"
	"strings"
)

// SchemaError reports required input columns that are absent. It aborts an
// allocation run before any group is processed.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// DiagnosticKind classifies a recoverable allocation condition.
type DiagnosticKind string

const (
	// DiagUnmatchedLength: the search chose a length no unassigned piece of the group has.
	DiagUnmatchedLength DiagnosticKind = "unmatched_length"
	// DiagNoFit: a piece does not fit on an empty bar.
	DiagNoFit DiagnosticKind = "no_fit"
	// DiagInvalidRow: a row could not be read into a piece.
	DiagInvalidRow DiagnosticKind = "invalid_row"
)

// Diagnostic is a warning attached to an allocation result.
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	Material  string         `json:"material_name,omitempty"`
	Quantity  int            `json:"qty,omitempty"`
	Length    float64        `json:"length,omitempty"`
	Position  int            `json:"original_position"`
	CuttingID int            `json:"cutting_id,omitempty"`
	Message   string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// CountDiagnostics returns how many diagnostics of the given kind are present.
func CountDiagnostics(diags []Diagnostic, kind DiagnosticKind) int {
	n := 0
	for _, d := range diags {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
