// Package historytest generates synthetic workflow execution histories for
// exercising the history package. The builder assigns dense ascending event
// ids and monotonically advancing event times, and provides helpers for the
// common shapes a real history takes: full workflow tasks, retried tasks,
// timers, and terminal execution events.
package historytest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	failurepb "go.temporal.io/api/failure/v1"
	historypb "go.temporal.io/api/history/v1"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	"go.temporal.io/sdk/converter"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/cosm-public/temporal-sdk-core/history"
)

const (
	defaultWorkflowType = "default_wf_type"
	defaultTaskQueue    = "q"
)

// Builder accumulates history events. The zero value is not usable; construct
// via NewBuilder. Builders are not safe for concurrent use.
type Builder struct {
	wfType        string
	taskQueue     string
	originalRunID string
	input         []any

	events    []*historypb.HistoryEvent
	eventTime time.Time

	lastScheduledEventID int64
	lastStartedEventID   int64
}

// Option customizes a Builder.
type Option func(*Builder)

// WithWorkflowType sets the workflow type name recorded in the execution
// started event.
func WithWorkflowType(name string) Option {
	return func(b *Builder) { b.wfType = name }
}

// WithTaskQueue sets the task queue name recorded in started/scheduled events.
func WithTaskQueue(name string) Option {
	return func(b *Builder) { b.taskQueue = name }
}

// WithOriginalRunID sets the original execution run id. A random one is
// generated when unset.
func WithOriginalRunID(runID string) Option {
	return func(b *Builder) { b.originalRunID = runID }
}

// WithInput sets the workflow input values, encoded with the Temporal SDK's
// default data converter when the execution started event is added.
func WithInput(values ...any) Option {
	return func(b *Builder) { b.input = values }
}

// WithStartTime sets the event time of the first event. Subsequent events
// advance one second each.
func WithStartTime(t time.Time) Option {
	return func(b *Builder) { b.eventTime = t }
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		wfType:        defaultWorkflowType,
		taskQueue:     defaultTaskQueue,
		originalRunID: uuid.NewString(),
		eventTime:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// add appends an event of the given type, assigning the next event id and
// advancing event time by one second. setAttributes, when non-nil, populates
// the kind-specific attributes on the freshly created event. Returns the
// assigned id.
func (b *Builder) add(et enumspb.EventType, setAttributes func(*historypb.HistoryEvent)) int64 {
	event := &historypb.HistoryEvent{
		EventId:   int64(len(b.events)) + 1,
		EventTime: timestamppb.New(b.eventTime),
		EventType: et,
	}
	if setAttributes != nil {
		setAttributes(event)
	}
	b.events = append(b.events, event)
	b.eventTime = b.eventTime.Add(time.Second)
	return event.EventId
}

// AddWorkflowExecutionStarted appends the execution started event carrying the
// builder's workflow type, task queue, run id, and input. Panics if the input
// values cannot be encoded; a fixture with unencodable input is a bug in the
// test, not a runtime condition.
func (b *Builder) AddWorkflowExecutionStarted() int64 {
	var input *commonpb.Payloads
	if len(b.input) > 0 {
		payloads, err := converter.GetDefaultDataConverter().ToPayloads(b.input...)
		if err != nil {
			panic(fmt.Sprintf("historytest: encode workflow input: %v", err))
		}
		input = payloads
	}
	return b.AddWorkflowExecutionStartedRaw(&historypb.WorkflowExecutionStartedEventAttributes{
		WorkflowType:           &commonpb.WorkflowType{Name: b.wfType},
		TaskQueue:              &taskqueuepb.TaskQueue{Name: b.taskQueue, Kind: enumspb.TASK_QUEUE_KIND_NORMAL},
		Input:                  input,
		OriginalExecutionRunId: b.originalRunID,
		FirstExecutionRunId:    b.originalRunID,
		Attempt:                1,
		WorkflowTaskTimeout:    durationpb.New(10 * time.Second),
	})
}

// AddWorkflowExecutionStartedRaw appends an execution started event with the
// given attributes verbatim. Used to fabricate malformed first events.
func (b *Builder) AddWorkflowExecutionStartedRaw(attrs *historypb.WorkflowExecutionStartedEventAttributes) int64 {
	return b.add(enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_STARTED, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_WorkflowExecutionStartedEventAttributes{
			WorkflowExecutionStartedEventAttributes: attrs,
		}
	})
}

// AddWorkflowTaskScheduled appends a workflow task scheduled event and returns
// its id.
func (b *Builder) AddWorkflowTaskScheduled() int64 {
	b.lastScheduledEventID = b.add(enumspb.EVENT_TYPE_WORKFLOW_TASK_SCHEDULED, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_WorkflowTaskScheduledEventAttributes{
			WorkflowTaskScheduledEventAttributes: &historypb.WorkflowTaskScheduledEventAttributes{
				TaskQueue:           &taskqueuepb.TaskQueue{Name: b.taskQueue, Kind: enumspb.TASK_QUEUE_KIND_NORMAL},
				StartToCloseTimeout: durationpb.New(10 * time.Second),
				Attempt:             1,
			},
		}
	})
	return b.lastScheduledEventID
}

// AddWorkflowTaskStarted appends a workflow task started event referencing the
// most recently scheduled task and returns its id.
func (b *Builder) AddWorkflowTaskStarted() int64 {
	scheduledID := b.lastScheduledEventID
	b.lastStartedEventID = b.add(enumspb.EVENT_TYPE_WORKFLOW_TASK_STARTED, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_WorkflowTaskStartedEventAttributes{
			WorkflowTaskStartedEventAttributes: &historypb.WorkflowTaskStartedEventAttributes{
				ScheduledEventId: scheduledID,
				Identity:         "historytest",
				RequestId:        uuid.NewString(),
			},
		}
	})
	return b.lastStartedEventID
}

// AddWorkflowTaskCompleted appends a workflow task completed event closing the
// most recently started task and returns its id.
func (b *Builder) AddWorkflowTaskCompleted() int64 {
	return b.add(enumspb.EVENT_TYPE_WORKFLOW_TASK_COMPLETED, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_WorkflowTaskCompletedEventAttributes{
			WorkflowTaskCompletedEventAttributes: &historypb.WorkflowTaskCompletedEventAttributes{
				ScheduledEventId: b.lastScheduledEventID,
				StartedEventId:   b.lastStartedEventID,
				Identity:         "historytest",
			},
		}
	})
}

// AddWorkflowTaskFailed appends a workflow task failed event closing the most
// recently started task (which the service will then retry).
func (b *Builder) AddWorkflowTaskFailed(cause enumspb.WorkflowTaskFailedCause) int64 {
	return b.add(enumspb.EVENT_TYPE_WORKFLOW_TASK_FAILED, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_WorkflowTaskFailedEventAttributes{
			WorkflowTaskFailedEventAttributes: &historypb.WorkflowTaskFailedEventAttributes{
				ScheduledEventId: b.lastScheduledEventID,
				StartedEventId:   b.lastStartedEventID,
				Cause:            cause,
				Failure:          &failurepb.Failure{Message: "workflow task failed"},
			},
		}
	})
}

// AddWorkflowTaskTimedOut appends a workflow task timed out event for the most
// recently started task.
func (b *Builder) AddWorkflowTaskTimedOut() int64 {
	return b.add(enumspb.EVENT_TYPE_WORKFLOW_TASK_TIMED_OUT, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_WorkflowTaskTimedOutEventAttributes{
			WorkflowTaskTimedOutEventAttributes: &historypb.WorkflowTaskTimedOutEventAttributes{
				ScheduledEventId: b.lastScheduledEventID,
				StartedEventId:   b.lastStartedEventID,
				TimeoutType:      enumspb.TIMEOUT_TYPE_START_TO_CLOSE,
			},
		}
	})
}

// AddFullWorkflowTask appends a scheduled/started/completed triple and returns
// the started event id.
func (b *Builder) AddFullWorkflowTask() int64 {
	b.AddWorkflowTaskScheduled()
	started := b.AddWorkflowTaskStarted()
	b.AddWorkflowTaskCompleted()
	return started
}

// AddWorkflowTaskScheduledAndStarted appends a scheduled/started pair without
// closing the task, the shape a history has while a task is being worked on.
// Returns the started event id.
func (b *Builder) AddWorkflowTaskScheduledAndStarted() int64 {
	b.AddWorkflowTaskScheduled()
	return b.AddWorkflowTaskStarted()
}

// AddTimerStarted appends a timer started event and returns its id, which
// TimerFired events reference.
func (b *Builder) AddTimerStarted(timerID string) int64 {
	return b.add(enumspb.EVENT_TYPE_TIMER_STARTED, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_TimerStartedEventAttributes{
			TimerStartedEventAttributes: &historypb.TimerStartedEventAttributes{
				TimerId:            timerID,
				StartToFireTimeout: durationpb.New(time.Second),
			},
		}
	})
}

// AddTimerFired appends a timer fired event referencing the given timer
// started event id.
func (b *Builder) AddTimerFired(startedEventID int64, timerID string) int64 {
	return b.add(enumspb.EVENT_TYPE_TIMER_FIRED, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_TimerFiredEventAttributes{
			TimerFiredEventAttributes: &historypb.TimerFiredEventAttributes{
				TimerId:        timerID,
				StartedEventId: startedEventID,
			},
		}
	})
}

// AddWorkflowExecutionCompleted appends the terminal completed event.
func (b *Builder) AddWorkflowExecutionCompleted() int64 {
	return b.add(enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_COMPLETED, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_WorkflowExecutionCompletedEventAttributes{
			WorkflowExecutionCompletedEventAttributes: &historypb.WorkflowExecutionCompletedEventAttributes{},
		}
	})
}

// AddWorkflowExecutionFailed appends the terminal failed event.
func (b *Builder) AddWorkflowExecutionFailed() int64 {
	return b.add(enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_FAILED, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_WorkflowExecutionFailedEventAttributes{
			WorkflowExecutionFailedEventAttributes: &historypb.WorkflowExecutionFailedEventAttributes{
				Failure: &failurepb.Failure{Message: "workflow failed"},
			},
		}
	})
}

// AddWorkflowExecutionTerminated appends the terminal terminated event.
func (b *Builder) AddWorkflowExecutionTerminated() int64 {
	return b.add(enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_TERMINATED, func(e *historypb.HistoryEvent) {
		e.Attributes = &historypb.HistoryEvent_WorkflowExecutionTerminatedEventAttributes{
			WorkflowExecutionTerminatedEventAttributes: &historypb.WorkflowExecutionTerminatedEventAttributes{
				Reason: "terminated by test",
			},
		}
	})
}

// AddByType appends a bare event of the given type with no attributes. Useful
// for fabricating structurally invalid histories.
func (b *Builder) AddByType(et enumspb.EventType) int64 {
	return b.add(et, nil)
}

// Len returns the number of events added so far.
func (b *Builder) Len() int {
	return len(b.events)
}

// History returns a deep copy of the accumulated events wrapped in a History
// message, so later builder mutations never affect it.
func (b *Builder) History() *historypb.History {
	return proto.Clone(&historypb.History{Events: b.events}).(*historypb.History)
}

// GetHistoryInfo validates the accumulated history, truncated to the given
// workflow task number (0 or less retains everything).
func (b *Builder) GetHistoryInfo(toTask int) (*history.Info, error) {
	return history.FromHistory(b.History(), toTask)
}

// GetFullHistoryInfo validates the accumulated history with full retention.
func (b *Builder) GetFullHistoryInfo() (*history.Info, error) {
	return b.GetHistoryInfo(0)
}

// GetOneWorkflowTask validates the history truncated to the given task number
// and trims it to the sticky-queue incremental shape: only the events a worker
// with the prior task cached would receive.
func (b *Builder) GetOneWorkflowTask(toTask int) (*history.Info, error) {
	info, err := b.GetHistoryInfo(toTask)
	if err != nil {
		return nil, err
	}
	info.MakeIncremental()
	return info, nil
}
