package history_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	enumspb "go.temporal.io/api/enums/v1"

	"github.com/cosm-public/temporal-sdk-core/historytest"
)

// buildTasks assembles a history with n completed workflow tasks, optional
// timer noise between tasks, and an optional terminal event.
func buildTasks(n int, withTimers, terminal bool) *historytest.Builder {
	b := historytest.NewBuilder()
	b.AddWorkflowExecutionStarted()
	for i := 0; i < n; i++ {
		b.AddFullWorkflowTask()
		if withTimers && i < n-1 {
			started := b.AddTimerStarted("t")
			b.AddTimerFired(started, "t")
		}
	}
	if terminal {
		b.AddWorkflowExecutionCompleted()
	}
	return b
}

// TestTaskCountMatchesBuiltTasksProperty verifies that full construction
// counts exactly the workflow tasks the history contains and retains every
// event.
func TestTaskCountMatchesBuiltTasksProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("full construction retains all events and counts all tasks", prop.ForAll(
		func(n int, withTimers, terminal bool) bool {
			b := buildTasks(n, withTimers, terminal)
			info, err := b.GetFullHistoryInfo()
			if err != nil {
				return false
			}
			return info.TaskCount() == n && len(info.Events()) == b.Len()
		},
		gen.IntRange(1, 6),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestTruncationStopsAtRequestedTaskProperty verifies that requesting task k
// retains exactly the prefix ending at the k-th WorkflowTaskStarted event.
func TestTruncationStopsAtRequestedTaskProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("truncated prefix ends at the k-th task started event", prop.ForAll(
		func(n, kSeed int, withTimers bool) bool {
			k := kSeed%n + 1
			b := buildTasks(n, withTimers, true)
			info, err := b.GetHistoryInfo(k)
			if err != nil {
				return false
			}
			if info.TaskCount() != k {
				return false
			}
			events := info.Events()
			last := events[len(events)-1]
			if last.GetEventType() != enumspb.EVENT_TYPE_WORKFLOW_TASK_STARTED {
				return false
			}
			// Event ids are dense in built histories, so the prefix length is
			// exactly the last retained id.
			return last.GetEventId() == int64(len(events))
		},
		gen.IntRange(1, 6),
		gen.IntRange(0, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestStartedIDsStrictlyOrderedProperty verifies that once two or more tasks
// have closed, the previous started id is strictly below the current one.
func TestStartedIDsStrictlyOrderedProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("previous started id stays strictly below the current one", prop.ForAll(
		func(n, kSeed int) bool {
			k := kSeed%(n-1) + 2 // at least two closed tasks
			b := buildTasks(n, false, true)
			info, err := b.GetHistoryInfo(k)
			if err != nil {
				return false
			}
			return info.PreviousStartedEventID() < info.StartedEventID()
		},
		gen.IntRange(2, 6),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

// TestIncrementalCutsAtLastCompletedProperty verifies that MakeIncremental
// retains only events strictly after the last WorkflowTaskCompleted event.
func TestIncrementalCutsAtLastCompletedProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("incremental histories start after the last completed task", prop.ForAll(
		func(n int, withTimers bool) bool {
			b := buildTasks(n, withTimers, true)
			full, err := b.GetFullHistoryInfo()
			if err != nil {
				return false
			}
			var lastCompletedID int64
			for _, event := range full.Events() {
				if event.GetEventType() == enumspb.EVENT_TYPE_WORKFLOW_TASK_COMPLETED {
					lastCompletedID = event.GetEventId()
				}
			}

			info, err := b.GetFullHistoryInfo()
			if err != nil {
				return false
			}
			info.MakeIncremental()
			for _, event := range info.Events() {
				if event.GetEventId() <= lastCompletedID {
					return false
				}
			}
			// Dense ids: everything after the cut is retained.
			return int64(len(full.Events()))-lastCompletedID == int64(len(info.Events()))
		},
		gen.IntRange(1, 6),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
