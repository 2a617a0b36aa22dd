package mqtt

import (
	"github.com/kilianp07/robotaxi/core/command"
	"github.com/kilianp07/robotaxi/core/report"
)

// StatusPublisher pushes fleet snapshots to consumers outside the process.
type StatusPublisher interface {
	PublishStatus(snap report.Snapshot) error
}

// CommandQueue accepts commands received from a broker. The engine queue
// satisfies it.
type CommandQueue interface {
	Push(cmd command.Command, source string) command.Envelope
}
