package registry

import (
	"sync"

	"github.com/voicebridge/callout-service/internal/domain"
	"github.com/voicebridge/callout-service/pkg/logger"
	"go.uber.org/zap"
)

// recordState tracks where a call record is in its lifecycle so a
// redelivered call_ended webhook cannot start a second transcript pipeline.
type recordState int

const (
	statePending recordState = iota
	stateProcessing
)

type entry struct {
	record domain.CallRecord
	state  recordState
}

// CallRegistry is the volatile mapping from call ID to recipient metadata.
// It is owned by the handler manager and injected into the handlers that
// need it; nothing here survives a process restart.
type CallRegistry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewCallRegistry creates an empty registry.
func NewCallRegistry() *CallRegistry {
	return &CallRegistry{
		entries: make(map[string]*entry),
	}
}

// Put registers a call record keyed by its call ID. Registering an ID that
// is already present replaces the previous record.
func (r *CallRegistry) Put(record domain.CallRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[record.CallID]; exists {
		logger.Base().Warn("replacing existing call record", zap.String("call_id", record.CallID))
	}
	r.entries[record.CallID] = &entry{record: record}
}

// Get returns the record for the given call ID.
func (r *CallRegistry) Get(callID string) (domain.CallRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[callID]
	if !ok {
		return domain.CallRecord{}, false
	}
	return e.record, true
}

// Claim atomically marks a pending record as processing and returns it.
// A second Claim for the same call ID fails until the record is deleted,
// which guards against duplicate call_ended deliveries from the provider.
func (r *CallRegistry) Claim(callID string) (domain.CallRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[callID]
	if !ok || e.state != statePending {
		return domain.CallRecord{}, false
	}
	e.state = stateProcessing
	return e.record, true
}

// Delete removes the record for the given call ID. Deleting an absent ID
// is a no-op.
func (r *CallRegistry) Delete(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, callID)
}

// Count returns the number of registered calls.
func (r *CallRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
