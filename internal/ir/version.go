package ir

// Version constants for the program tree and the evaluator.
const (
	// IRVersion is the program tree schema version.
	IRVersion = "1"

	// EvaluatorVersion is folded into cache keys so stored results are
	// invalidated when evaluation semantics change.
	EvaluatorVersion = "0.1.0"
)
