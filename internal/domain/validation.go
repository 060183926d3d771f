package domain

// Severity grades a single validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// DiffEntry is a structured description of one validation problem: the
// offending field path, the issue, and optionally what was expected versus
// what was received.
type DiffEntry struct {
	FieldPath string
	Issue     string
	Expected  string
	Received  string
	Severity  Severity
}

// RecoveryHint suggests the next inspection action a caller should take to
// resolve a validation failure, with pre-filled filter arguments.
type RecoveryHint struct {
	Action  string
	Filters map[string]string
}

// ValidationResult is the outcome of a two-phase validation pass.
// Valid is true exactly when Errors is empty. Score degrades
// proportionally to the fraction of failed checks so partially-correct
// payloads remain rankable; a structural failure pins it to zero.
type ValidationResult struct {
	Valid    bool
	Score    float64
	Errors   []string
	Warnings []string
	Diff     []DiffEntry
	Hint     *RecoveryHint
}
