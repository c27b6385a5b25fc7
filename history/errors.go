package history

import "errors"

// Construction errors returned by FromHistory. All of them describe permanent
// defects in the input history; none are retryable. Callers branch with
// errors.Is to decide whether a malformed history is a test failure or an
// expected negative case.
var (
	// ErrEmptyHistory indicates the input history contains no events.
	ErrEmptyHistory = errors.New("history: history is empty")

	// ErrMalformedFirstEvent indicates the first event is not
	// WorkflowExecutionStarted, or carries no workflow type.
	ErrMalformedFirstEvent = errors.New("history: malformed first event")

	// ErrDuplicateStartedID indicates two consecutive task closes resolved to
	// the same WorkflowTaskStarted event id.
	ErrDuplicateStartedID = errors.New("history: duplicate workflow task started id")

	// ErrUnexpectedEvent indicates a WorkflowTaskStarted event is followed by
	// something other than WorkflowTaskCompleted, Failed, or TimedOut.
	ErrUnexpectedEvent = errors.New("history: unexpected event after workflow task started")

	// ErrUnexpectedHistoryEnd indicates the history ends mid-task without a
	// terminal execution event and without full retention being requested.
	ErrUnexpectedHistoryEnd = errors.New("history: history ends unexpectedly")
)
