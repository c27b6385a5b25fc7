// Package history validates workflow execution histories and re-materializes
// prefixes of them in the shapes a worker would receive from the Temporal
// service. It exists for replay and testing: given a raw event log, it checks
// the structural invariants workflow tasks must obey (every WorkflowTaskStarted
// event is closed by a Completed, Failed, or TimedOut event; histories end at a
// task boundary or a terminal execution event) and produces an Info aggregate
// that can be truncated to a workflow task boundary, trimmed for sticky-queue
// style incremental delivery, and converted into poll or history responses.
//
// Info is only obtainable through FromHistory, which is what makes the
// invariants trustworthy downstream: a live Info always describes a
// structurally valid history. Operations that could only fail if those
// invariants were already broken (MakeIncremental on a history without a
// completed task, OriginalRunID on a corrupt first event) panic rather than
// return errors, since they indicate corruption and not bad input.
//
// The package does not execute workflow code, evaluate commands, or talk to a
// Temporal server. It is a purely in-memory data-shaping step consumed by
// replay and test tooling.
package history
