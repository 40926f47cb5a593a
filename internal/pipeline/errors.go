package pipeline

import "fmt"

// ErrorKind tags a step failure so the batch driver can tell absorbed
// degradations from surfaced errors.
type ErrorKind string

const (
	// ErrClassification covers completion-provider failures during
	// classification. Unparseable results are absorbed into the default
	// classification and never tagged.
	ErrClassification ErrorKind = "classification_failure"

	// ErrRetrieval covers similarity-search failures. Always absorbed
	// into an empty context.
	ErrRetrieval ErrorKind = "retrieval_failure"

	// ErrGeneration covers completion-provider failures during drafting.
	// Absorbed into the fallback reply template.
	ErrGeneration ErrorKind = "generation_failure"

	// ErrDispatch covers mailbox send failures for the sender-facing
	// reply. Surfaced; the run ends incomplete.
	ErrDispatch ErrorKind = "dispatch_failure"

	// ErrMalformedInput covers messages missing required fields. Fatal;
	// rejected before a run starts.
	ErrMalformedInput ErrorKind = "malformed_input"
)

// StepError is a tagged pipeline error.
type StepError struct {
	Kind ErrorKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// stepErr builds a tagged error from a step failure.
func stepErr(kind ErrorKind, err error) *StepError {
	return &StepError{Kind: kind, Err: err}
}
