// Package coderunner holds the pieces shared by the embedded-language
// runners (javascript, python): the action/workflow dual log split, task
// continuation time units, and the workflow output precedence rule. Both
// language runtimes share this logic rather than each reimplementing it.
package coderunner

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger routes to the two separate log destinations: the workflow log
// (action.log.* plus workflow.log.*) and the API/daemon log. The daemon
// config supplies one *zap.Logger per destination.
type Logger struct {
	Workflow *zap.Logger
	Action   *zap.Logger
}

// NewLogger builds a Logger, defaulting either destination to a no-op
// logger when nil.
func NewLogger(workflow, action *zap.Logger) *Logger {
	if workflow == nil {
		workflow = zap.NewNop()
	}
	if action == nil {
		action = zap.NewNop()
	}
	return &Logger{Workflow: workflow, Action: action}
}

// TimeUnit is a task.continueAfter delay unit.
type TimeUnit string

const (
	TimeUnitMinute      TimeUnit = "MINUTE"
	TimeUnitSecond      TimeUnit = "SECOND"
	TimeUnitMillisecond TimeUnit = "MILLISECOND"
	TimeUnitNanosecond  TimeUnit = "NANOSECOND"
)

// nanosPerUnit gives the nanosecond multiplier for each unit.
var nanosPerUnit = map[TimeUnit]int64{
	TimeUnitMinute:      60_000_000_000,
	TimeUnitSecond:      1_000_000_000,
	TimeUnitMillisecond: 1_000_000,
	TimeUnitNanosecond:  1,
}

// DelayNanos converts delay (in unit) to nanoseconds, returning an error
// on an unrecognized unit or on overflow; any unit can overflow for a
// large enough delay.
func DelayNanos(delay int64, unit TimeUnit) (int64, error) {
	mult, ok := nanosPerUnit[unit]
	if !ok {
		return 0, fmt.Errorf("coderunner: unrecognized time unit %q", unit)
	}
	if delay != 0 && mult > (1<<63-1)/abs64(delay) {
		return 0, fmt.Errorf("coderunner: delay %d %s overflows", delay, unit)
	}
	return delay * mult, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// WorkflowOutput is the {standard, custom} pair a workflow.log.fail/done
// call captures. A non-nil WorkflowOutput means one of them was invoked,
// which is itself significant: the captured output replaces the
// function's return value even when both fields are empty.
type WorkflowOutput struct {
	Standard any
	Custom   map[string]any
}

// Resolve implements the output precedence rule: the function's return
// value (fnResult) wins only when done/fail was never called. Once one
// was, the custom map is used verbatim if supplied; otherwise the result
// is the captured output map, holding the standard output under
// "standard" when one was given and staying empty when not.
func (o *WorkflowOutput) Resolve(fnResult any) any {
	if o == nil {
		return fnResult
	}
	if len(o.Custom) > 0 {
		out := make(map[string]any, len(o.Custom))
		for k, v := range o.Custom {
			out[k] = v
		}
		return out
	}
	out := map[string]any{}
	if o.Standard != nil {
		out["standard"] = o.Standard
	}
	return out
}
