package history

import (
	"fmt"

	"github.com/google/uuid"
	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	historypb "go.temporal.io/api/history/v1"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	"go.temporal.io/api/workflowservice/v1"
	"google.golang.org/protobuf/proto"
)

// Info holds a validated, possibly-truncated workflow history along with the
// task-boundary bookkeeping derived during validation. Instances are only
// obtainable through FromHistory; the fields stay private so an Info can never
// describe a structurally invalid history.
//
// An Info owns its event sequence exclusively: the constructor deep-copies
// every retained event, so mutations to the input history after construction
// never leak in. The aggregate is immutable except through MakeIncremental.
type Info struct {
	previousStartedEventID     int64
	workflowTaskStartedEventID int64
	events                     []*historypb.HistoryEvent
	wfTaskCount                int
	wfType                     string
}

// FromHistory validates h and constructs an Info retaining only enough events
// to reach workflow task number toTask (1-based). A toTask of zero or less
// retains the full history.
//
// The scan is a single pass with one event of lookahead; requesting task N
// costs time proportional to the retained prefix, not the whole history. The
// returned errors all wrap the sentinel taxonomy in this package.
func FromHistory(h *historypb.History, toTask int) (*Info, error) {
	src := h.GetEvents()
	if len(src) == 0 {
		return nil, ErrEmptyHistory
	}
	allHist := toTask <= 0

	first := src[0]
	startAttrs := first.GetWorkflowExecutionStartedEventAttributes()
	if startAttrs == nil {
		return nil, fmt.Errorf("%w: event %d is %s, not WorkflowExecutionStarted",
			ErrMalformedFirstEvent, first.GetEventId(), first.GetEventType())
	}
	if startAttrs.GetWorkflowType() == nil {
		return nil, fmt.Errorf("%w: no workflow type in execution started attributes", ErrMalformedFirstEvent)
	}
	wfType := startAttrs.GetWorkflowType().GetName()

	var (
		startedEventID     int64
		prevStartedEventID int64
		taskCount          int
	)
	events := make([]*historypb.HistoryEvent, 0, len(src))

	for i, event := range src {
		events = append(events, proto.Clone(event).(*historypb.HistoryEvent))

		var next *historypb.HistoryEvent
		if i+1 < len(src) {
			next = src[i+1]
		}

		if event.GetEventType() == enumspb.EVENT_TYPE_WORKFLOW_TASK_STARTED {
			nextIsCompleted := next.GetEventType() == enumspb.EVENT_TYPE_WORKFLOW_TASK_COMPLETED
			nextIsFailedOrTimedOut := next.GetEventType() == enumspb.EVENT_TYPE_WORKFLOW_TASK_FAILED ||
				next.GetEventType() == enumspb.EVENT_TYPE_WORKFLOW_TASK_TIMED_OUT

			switch {
			case next == nil || nextIsCompleted:
				// The task closed: shift the started-id markers.
				prevStartedEventID = startedEventID
				startedEventID = event.GetEventId()
				if startedEventID == prevStartedEventID {
					return nil, fmt.Errorf("%w: latest started id %d equals the previous one",
						ErrDuplicateStartedID, startedEventID)
				}
				taskCount++
				if taskCount == toTask || next == nil {
					return &Info{
						previousStartedEventID:     prevStartedEventID,
						workflowTaskStartedEventID: startedEventID,
						events:                     events,
						wfTaskCount:                taskCount,
						wfType:                     wfType,
					}, nil
				}
			case !nextIsFailedOrTimedOut:
				return nil, fmt.Errorf("%w: workflow task started event %d is followed by %s",
					ErrUnexpectedEvent, event.GetEventId(), next.GetEventType())
			}
			// Failed or timed out lookahead: the task will be retried, keep
			// scanning without closing it.
		}

		if next == nil {
			if isFinalExecutionEvent(event) || allHist {
				// End of execution: pretend complete history is being
				// replayed, which makes the previously started id the last
				// task itself.
				return &Info{
					previousStartedEventID:     startedEventID,
					workflowTaskStartedEventID: startedEventID,
					events:                     events,
					wfTaskCount:                taskCount,
					wfType:                     wfType,
				}, nil
			}
			if startedEventID != event.GetEventId() {
				return nil, fmt.Errorf("%w: last event %d is neither a task boundary nor terminal",
					ErrUnexpectedHistoryEnd, event.GetEventId())
			}
		}
	}
	panic("history: event scan fell through without returning")
}

// isFinalExecutionEvent reports whether event marks the end of the workflow
// execution.
func isFinalExecutionEvent(event *historypb.HistoryEvent) bool {
	switch event.GetEventType() {
	case enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_COMPLETED,
		enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_FAILED,
		enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_TIMED_OUT,
		enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_CANCELED,
		enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_TERMINATED,
		enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_CONTINUED_AS_NEW:
		return true
	}
	return false
}

// MakeIncremental removes events from the beginning of the history so it
// looks like what a sticky queue would deliver to a worker that had already
// processed everything up to the last completed workflow task.
//
// Not fully accurate: the retained slice includes the command events recorded
// as part of that task's completion, which the server would normally omit.
// Good enough for testing, and kept that way deliberately.
//
// Panics if the history contains no WorkflowTaskCompleted event; Info only
// exists post-validation, so that is a caller contract violation rather than
// a data error.
func (i *Info) MakeIncremental() {
	for ix := len(i.events) - 1; ix >= 0; ix-- {
		if i.events[ix].GetEventType() == enumspb.EVENT_TYPE_WORKFLOW_TASK_COMPLETED {
			i.events = i.events[ix+1:]
			return
		}
	}
	panic("history: must be a workflow task completed event in history")
}

// Events returns the retained event sequence. The slice is borrowed, not
// copied; callers must not mutate it.
func (i *Info) Events() []*historypb.HistoryEvent {
	return i.events
}

// OriginalRunID extracts the original execution run id from the first event.
// Panics if the first event is not WorkflowExecutionStarted, which is
// impossible for an Info produced by FromHistory and signals corruption.
func (i *Info) OriginalRunID() string {
	attrs := i.events[0].GetWorkflowExecutionStartedEventAttributes()
	if attrs == nil {
		panic("history: first event is wrong type")
	}
	return attrs.GetOriginalExecutionRunId()
}

// TaskCount returns the number of workflow tasks closed up to the truncation
// point.
func (i *Info) TaskCount() int {
	return i.wfTaskCount
}

// PreviousStartedEventID returns the id of the WorkflowTaskStarted event
// preceding the current one, or 0 if none existed.
func (i *Info) PreviousStartedEventID() int64 {
	return i.previousStartedEventID
}

// StartedEventID returns the id of the WorkflowTaskStarted event considered
// current at construction time.
func (i *Info) StartedEventID() int64 {
	return i.workflowTaskStartedEventID
}

// WorkflowType returns the workflow type name recorded in the first event.
func (i *Info) WorkflowType() string {
	return i.wfType
}

// ToPollResponse builds a workflow task polling response containing all
// retained events and a freshly generated random task token. The events are
// deep-copied so the response never aliases the Info. Callers should attach a
// meaningful WorkflowExecution if they need one.
func (i *Info) ToPollResponse(taskQueue string) *workflowservice.PollWorkflowTaskQueueResponse {
	token := uuid.New()
	events := make([]*historypb.HistoryEvent, len(i.events))
	for ix, event := range i.events {
		events[ix] = proto.Clone(event).(*historypb.HistoryEvent)
	}
	return &workflowservice.PollWorkflowTaskQueueResponse{
		TaskToken:    token[:],
		History:      &historypb.History{Events: events},
		WorkflowType: &commonpb.WorkflowType{Name: i.wfType},
		WorkflowExecutionTaskQueue: &taskqueuepb.TaskQueue{
			Name: taskQueue,
			Kind: enumspb.TASK_QUEUE_KIND_NORMAL,
		},
		PreviousStartedEventId: i.previousStartedEventID,
		StartedEventId:         i.workflowTaskStartedEventID,
	}
}

// IntoHistory moves the retained events out into a History message. The Info
// must not be used afterwards.
func (i *Info) IntoHistory() *historypb.History {
	events := i.events
	i.events = nil
	return &historypb.History{Events: events}
}

// IntoHistoryResponse moves the retained events out into a
// GetWorkflowExecutionHistory response. The Info must not be used afterwards.
func (i *Info) IntoHistoryResponse() *workflowservice.GetWorkflowExecutionHistoryResponse {
	return &workflowservice.GetWorkflowExecutionHistoryResponse{
		History: i.IntoHistory(),
	}
}
