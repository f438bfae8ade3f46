package mqtt

import (
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/saltplan/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// NopPublisher drops every message. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishPlacement(coremqtt.Placement) (string, error) { return "", nil }
func (NopPublisher) PublishDigest(coremqtt.Digest) (string, error)       { return "", nil }
func (NopPublisher) WaitForAck(string, time.Duration) (bool, error)      { return true, nil }

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Placements map[string]coremqtt.Placement
	Digests    []coremqtt.Digest
	FailIDs    map[string]bool
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Placements: make(map[string]coremqtt.Placement),
		FailIDs:    make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// PublishPlacement records the placement or returns an error if its batch is
// configured to fail.
func (m *MockPublisher) PublishPlacement(p coremqtt.Placement) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[p.BatchID] {
		return "", fmt.Errorf("publish failed")
	}
	m.Placements[p.BatchID] = p
	id := fmt.Sprintf("msg-%s", p.BatchID)
	m.AckResults[id] = true
	return id, nil
}

// PublishDigest records the digest.
func (m *MockPublisher) PublishDigest(d coremqtt.Digest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Digests = append(m.Digests, d)
	return fmt.Sprintf("digest-%d", len(m.Digests)), nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(messageID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[messageID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown message")
	}
	return ok, nil
}

// Count returns the number of recorded placements.
func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Placements)
}
