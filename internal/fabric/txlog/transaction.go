// Package txlog implements the fabric's TransactionLogger: tracking of
// cross-component transactions through a stage machine, with indexing by
// parent, component, and tag, bounded in-memory retention, and optional
// archival of terminal transactions.
package txlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/campusforge/fabric/internal/fabric/component"
)

// Stage is one point in a transaction's lifecycle. COMPLETED, FAILED, and
// CANCELED are terminal/absorbing: once reached, no further stage change
// is accepted.
type Stage string

const (
	StageCreated    Stage = "CREATED"
	StageStarted    Stage = "STARTED"
	StageProcessing Stage = "PROCESSING"
	StageCompleted  Stage = "COMPLETED"
	StageFailed     Stage = "FAILED"
	StageCanceled   Stage = "CANCELED"
)

// Terminal reports whether s is an absorbing end state.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed || s == StageCanceled
}

// StageEntry records one point in a transaction's stage history.
type StageEntry struct {
	Stage       Stage
	ComponentID component.ID
	Timestamp   time.Time
	Metadata    map[string]any
}

// ErrorEntry records a single failure encountered during a transaction.
type ErrorEntry struct {
	ComponentID component.ID
	Timestamp   time.Time
	Message     string
}

// Transaction is a logical unit of work tracked as it flows through
// multiple components.
type Transaction struct {
	mu sync.Mutex

	ID       string
	ParentID string
	Name     string
	Metadata map[string]any

	StartTime time.Time
	EndTime   time.Time
	stage     Stage

	Components []component.ID
	Stages     []StageEntry
	Tags       map[string]struct{}
	Errors     []ErrorEntry
}

func newTransaction(id, parentID, name string, metadata map[string]any) *Transaction {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	t := &Transaction{
		ID:       id,
		ParentID: parentID,
		Name:     name,
		Metadata: metadata,
		stage:    StageCreated,
		Tags:     make(map[string]struct{}),
	}
	t.addStage(StageCreated, "", nil)
	return t
}

// Stage returns the transaction's current stage.
func (t *Transaction) Stage() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

func (t *Transaction) addStage(stage Stage, componentID component.ID, metadata map[string]any) {
	entry := StageEntry{Stage: stage, Timestamp: time.Now(), Metadata: metadata}
	if componentID != "" {
		entry.ComponentID = componentID
		found := false
		for _, c := range t.Components {
			if c == componentID {
				found = true
				break
			}
		}
		if !found {
			t.Components = append(t.Components, componentID)
		}
	}
	t.Stages = append(t.Stages, entry)
}

// transition moves the transaction to stage unless it is already
// terminal; terminal transactions absorb further transitions silently,
// matching the absorbing-state contract callers rely on when a deferred
// Complete races a prior explicit Fail.
func (t *Transaction) transition(stage Stage, componentID component.ID, metadata map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stage.Terminal() {
		return
	}
	t.stage = stage
	t.addStage(stage, componentID, metadata)
}

// Start marks the transaction started, recording the wall-clock start time.
func (t *Transaction) Start(componentID component.ID) *Transaction {
	t.mu.Lock()
	if t.StartTime.IsZero() {
		t.StartTime = time.Now()
	}
	t.mu.Unlock()
	t.transition(StageStarted, componentID, nil)
	return t
}

// Process records a processing step, optionally naming the action taken.
func (t *Transaction) Process(componentID component.ID, action string) *Transaction {
	var metadata map[string]any
	if action != "" {
		metadata = map[string]any{"action": action}
	}
	t.transition(StageProcessing, componentID, metadata)
	return t
}

// Complete marks the transaction COMPLETED.
func (t *Transaction) Complete(componentID component.ID) *Transaction {
	t.mu.Lock()
	t.EndTime = time.Now()
	t.mu.Unlock()
	t.transition(StageCompleted, componentID, nil)
	return t
}

// Fail marks the transaction FAILED, recording err against the component
// where it occurred.
func (t *Transaction) Fail(componentID component.ID, err error) *Transaction {
	t.mu.Lock()
	t.EndTime = time.Now()
	message := ""
	if err != nil {
		message = err.Error()
	}
	t.Errors = append(t.Errors, ErrorEntry{ComponentID: componentID, Timestamp: time.Now(), Message: message})
	t.mu.Unlock()
	t.transition(StageFailed, componentID, map[string]any{"error": message})
	return t
}

// Cancel marks the transaction CANCELED.
func (t *Transaction) Cancel(componentID component.ID, reason string) *Transaction {
	t.mu.Lock()
	t.EndTime = time.Now()
	t.mu.Unlock()
	var metadata map[string]any
	if reason != "" {
		metadata = map[string]any{"reason": reason}
	}
	t.transition(StageCanceled, componentID, metadata)
	return t
}

// AddTag adds a filterable tag to the transaction.
func (t *Transaction) AddTag(tag string) *Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Tags[tag] = struct{}{}
	return t
}

// AddMetadata attaches an arbitrary key/value pair to the transaction.
func (t *Transaction) AddMetadata(key string, value any) *Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Metadata[key] = value
	return t
}

// Duration returns elapsed time since Start; if the transaction has
// ended, the duration is fixed at EndTime - StartTime. Returns 0 if the
// transaction has not started.
func (t *Transaction) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.StartTime.IsZero() {
		return 0
	}
	end := t.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(t.StartTime)
}

// TagList returns the transaction's tags as a slice, for callers that
// need a stable, serializable view.
func (t *Transaction) TagList() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	tags := make([]string, 0, len(t.Tags))
	for tag := range t.Tags {
		tags = append(tags, tag)
	}
	return tags
}

func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction(%s, %s, %s)", t.ID, t.Name, t.Stage())
}
