package mqtt

import (
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/robotaxi/core/mqtt"
	"github.com/kilianp07/robotaxi/core/report"
)

// StatusPublisher mirrors the core mqtt.StatusPublisher interface.
type StatusPublisher = coremqtt.StatusPublisher

// MockPublisher records published snapshots. It is used in tests and when
// no broker is configured.
type MockPublisher struct {
	Snapshots []report.Snapshot
	// Fail makes every publish return an error.
	Fail bool
	mu   sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher { return &MockPublisher{} }

// PublishStatus records snap or returns an error if configured to fail.
func (m *MockPublisher) PublishStatus(snap report.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("%w: mock", coremqtt.ErrPublishFailed)
	}
	m.Snapshots = append(m.Snapshots, snap)
	return nil
}

// Published returns the number of recorded snapshots.
func (m *MockPublisher) Published() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Snapshots)
}
