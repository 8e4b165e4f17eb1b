package platform

import (
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/go-drift/mapbridge/pkg/errors"
)

// Worker runs long native operations (image encoding, file writes,
// recognition) off the caller's goroutine. A panic in one job is reported
// and does not take down the process or other jobs.
//
// The zero value is ready to use.
type Worker struct {
	wg conc.WaitGroup
}

// Go schedules fn on a new goroutine. op names the job in panic reports.
func (w *Worker) Go(op string, fn func()) {
	if fn == nil {
		return
	}
	w.wg.Go(func() {
		var pc panics.Catcher
		pc.Try(fn)
		if r := pc.Recovered(); r != nil {
			errors.ReportPanic(&errors.PanicError{
				Op:         op,
				Value:      r.Value,
				StackTrace: string(r.Stack),
			})
		}
	})
}

// Wait blocks until every scheduled job has returned.
func (w *Worker) Wait() {
	w.wg.Wait()
}
