// Command histinfo validates a workflow execution history JSON dump (the
// protojson encoding of temporal.api.history.v1.History, as produced by
// temporal tooling), reports its workflow task boundaries, and optionally
// writes the retained prefix back out.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	enumspb "go.temporal.io/api/enums/v1"
	historypb "go.temporal.io/api/history/v1"
	"goa.design/clue/log"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/cosm-public/temporal-sdk-core/history"
)

func main() {
	var (
		historyF     = flag.String("history", "", "Path to a workflow history JSON file (required)")
		taskF        = flag.Int("task", 0, "Truncate to workflow task number N (0 retains the full history)")
		incrementalF = flag.Bool("incremental", false, "Trim to the sticky-queue incremental shape")
		outF         = flag.String("out", "", "Write the retained history as JSON to this path")
		dbgF         = flag.Bool("debug", false, "Enable debug logs")
	)
	flag.Parse()

	// Setup logger.
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	if *historyF == "" {
		fmt.Fprintln(os.Stderr, "usage: histinfo -history <file> [-task N] [-incremental] [-out <file>]")
		os.Exit(2)
	}

	if err := run(ctx, *historyF, *taskF, *incrementalF, *outF); err != nil {
		log.Errorf(ctx, err, "history validation failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, toTask int, incremental bool, outPath string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	var h historypb.History
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(data, &h); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}

	info, err := history.FromHistory(&h, toTask)
	if err != nil {
		return err
	}

	log.Print(ctx,
		log.KV{K: "workflow_type", V: info.WorkflowType()},
		log.KV{K: "original_run_id", V: info.OriginalRunID()},
		log.KV{K: "task_count", V: info.TaskCount()},
		log.KV{K: "started_event_id", V: info.StartedEventID()},
		log.KV{K: "previous_started_event_id", V: info.PreviousStartedEventID()},
		log.KV{K: "events", V: len(info.Events())},
	)

	if incremental {
		// MakeIncremental treats a missing completed task as a caller bug, so
		// check before handing it operator input. Trim after reporting:
		// OriginalRunID reads the first event, which an incremental history no
		// longer carries.
		if !hasCompletedTask(info) {
			return fmt.Errorf("history has no completed workflow task to trim at")
		}
		info.MakeIncremental()
		log.Print(ctx, log.KV{K: "incremental_events", V: len(info.Events())})
	}

	if outPath == "" {
		return nil
	}
	out, err := (protojson.MarshalOptions{Multiline: true}).Marshal(info.IntoHistory())
	if err != nil {
		return fmt.Errorf("encode retained history: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0o600); err != nil {
		return fmt.Errorf("write retained history: %w", err)
	}
	log.Debugf(ctx, "wrote retained history to %s", outPath)
	return nil
}

func hasCompletedTask(info *history.Info) bool {
	for _, event := range info.Events() {
		if event.GetEventType() == enumspb.EVENT_TYPE_WORKFLOW_TASK_COMPLETED {
			return true
		}
	}
	return false
}
