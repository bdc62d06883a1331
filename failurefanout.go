package taskdeck

import (
	"context"

	"pkt.systems/taskdeck/core"
)

type failureFanout struct {
	reporters []core.FailureReporter
}

func (f failureFanout) ReportFailure(ctx context.Context, op string, err error) {
	for _, reporter := range f.reporters {
		if reporter == nil {
			continue
		}
		reporter.ReportFailure(ctx, op, err)
	}
}

// fanoutFailures collapses reporters into one, dropping nils.
func fanoutFailures(reporters ...core.FailureReporter) core.FailureReporter {
	live := make([]core.FailureReporter, 0, len(reporters))
	for _, reporter := range reporters {
		if reporter != nil {
			live = append(live, reporter)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	default:
		return failureFanout{reporters: live}
	}
}
