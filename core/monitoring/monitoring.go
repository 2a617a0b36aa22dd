// Package monitoring abstracts error reporting for long-running components.
package monitoring

import "time"

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// Recover must be deferred directly. It reports a panic and re-raises it.
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

// Report captures err tagged with the failing component and returns it
// unchanged so callers can keep propagating it.
func Report(m Monitor, component string, err error) error {
	if err == nil || m == nil {
		return err
	}
	m.CaptureException(err, map[string]string{"component": component})
	return err
}
