package txlog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campusforge/fabric/internal/fabric/component"
	"github.com/campusforge/fabric/internal/fabric/events"
	"github.com/campusforge/fabric/internal/metrics"
)

var tracer = otel.Tracer("github.com/campusforge/fabric/internal/fabric/txlog")

// DefaultMaxTransactions bounds in-memory retention before pruning.
const DefaultMaxTransactions = 1000

// Logger tracks cross-component transactions: an in-memory index by
// parent, component, and tag, bounded retention via pruning, and
// optional archival of terminal transactions.
type Logger struct {
	mu sync.RWMutex

	maxTransactions int
	autoPrune       bool

	transactions map[string]*Transaction
	byParent     map[string][]string
	byComponent  map[component.ID][]string
	byTag        map[string][]string

	nextID atomic.Uint64

	bus     events.Bus
	archive Archive
}

// Option configures a Logger.
type Option func(*Logger)

// WithMaxTransactions overrides the default retention bound.
func WithMaxTransactions(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.maxTransactions = n
		}
	}
}

// WithAutoPrune toggles automatic pruning when the retention bound is
// exceeded; enabled by default.
func WithAutoPrune(enabled bool) Option {
	return func(l *Logger) { l.autoPrune = enabled }
}

// WithBus attaches an event bus; every stage transition publishes a
// transaction.stage_changed event.
func WithBus(bus events.Bus) Option {
	return func(l *Logger) { l.bus = bus }
}

// WithArchive attaches a durable archive; terminal transactions are
// saved to it as they complete.
func WithArchive(archive Archive) Option {
	return func(l *Logger) { l.archive = archive }
}

// New constructs a Logger.
func New(opts ...Option) *Logger {
	l := &Logger{
		maxTransactions: DefaultMaxTransactions,
		autoPrune:       true,
		transactions:    make(map[string]*Transaction),
		byParent:        make(map[string][]string),
		byComponent:     make(map[component.ID][]string),
		byTag:           make(map[string][]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateTransaction creates and indexes a new transaction in CREATED
// stage.
func (l *Logger) CreateTransaction(name, parentID string, metadata map[string]any, tags []string) *Transaction {
	id := fmt.Sprintf("tx-%d-%d", time.Now().Unix(), l.nextID.Add(1))
	if name == "" {
		name = "Transaction-" + id
	}
	t := newTransaction(id, parentID, name, metadata)
	for _, tag := range tags {
		t.AddTag(tag)
	}

	l.store(t)
	return t
}

func (l *Logger) store(t *Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.transactions[t.ID] = t

	if t.ParentID != "" {
		l.byParent[t.ParentID] = appendUnique(l.byParent[t.ParentID], t.ID)
	}
	for _, c := range t.Components {
		l.byComponent[c] = appendUnique(l.byComponent[c], t.ID)
	}
	for tag := range t.Tags {
		l.byTag[tag] = appendUnique(l.byTag[tag], t.ID)
	}
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

// UpdateTransaction re-indexes t (picking up any components/tags added
// since it was stored), publishes a stage-change event, archives it if
// terminal, and prunes if the logger is over its retention bound.
func (l *Logger) UpdateTransaction(t *Transaction) {
	l.store(t)

	stage := t.Stage()
	metrics.TransactionStage.WithLabelValues(string(stage)).Inc()

	if l.bus != nil {
		lastComponent := component.ID("unknown")
		if len(t.Components) > 0 {
			lastComponent = t.Components[len(t.Components)-1]
		}
		priority := events.PriorityNormal
		if stage == StageFailed {
			priority = events.PriorityHigh
		}
		e := events.New(events.TypeTransactionStage, events.CategoryIntegration, string(lastComponent),
			map[string]any{"transaction_id": t.ID, "name": t.Name, "stage": string(stage)}, priority, false)
		_ = l.bus.Publish(context.Background(), e)
	}

	if stage.Terminal() {
		metrics.TransactionDuration.Observe(t.Duration().Seconds())
		if l.archive != nil {
			_ = l.archive.Save(context.Background(), t)
		}
	}

	if l.autoPrune {
		l.pruneIfNeeded()
	}
}

// GetTransaction looks up a transaction by id.
func (l *Logger) GetTransaction(id string) (*Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.transactions[id]
	return t, ok
}

func (l *Logger) lookup(ids []string) []*Transaction {
	out := make([]*Transaction, 0, len(ids))
	for _, id := range ids {
		if t, ok := l.transactions[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// ByParent returns child transactions of parentID.
func (l *Logger) ByParent(parentID string) []*Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lookup(l.byParent[parentID])
}

// ByComponent returns transactions that involved componentID.
func (l *Logger) ByComponent(componentID component.ID) []*Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lookup(l.byComponent[componentID])
}

// ByTag returns transactions carrying tag.
func (l *Logger) ByTag(tag string) []*Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lookup(l.byTag[tag])
}

// ByStage returns every transaction currently in stage.
func (l *Logger) ByStage(stage Stage) []*Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Transaction
	for _, t := range l.transactions {
		if t.Stage() == stage {
			out = append(out, t)
		}
	}
	return out
}

// Active returns every non-terminal transaction.
func (l *Logger) Active() []*Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Transaction
	for _, t := range l.transactions {
		if !t.Stage().Terminal() {
			out = append(out, t)
		}
	}
	return out
}

// Begin starts a new transaction and returns it alongside a Finish
// function that the caller must invoke exactly once, typically via
// defer with a named error return, to complete or fail the transaction
// and end its tracing span:
//
//	tx, finish := logger.Begin(ctx, "db", "Migrate", "apply schema")
//	defer func() { finish(err) }()
func (l *Logger) Begin(ctx context.Context, componentID component.ID, name, action string, opts ...BeginOption) (*Transaction, func(error)) {
	cfg := beginConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	t := l.CreateTransaction(name, cfg.parentID, cfg.metadata, cfg.tags)
	_, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("txlog.transaction_id", t.ID),
		attribute.String("txlog.component", string(componentID)),
	))

	t.Start(componentID)
	t.Process(componentID, action)
	l.UpdateTransaction(t)

	return t, func(err error) {
		defer span.End()
		if err != nil {
			t.Fail(componentID, err)
			span.RecordError(err)
		} else if !t.Stage().Terminal() {
			t.Complete(componentID)
		}
		l.UpdateTransaction(t)
	}
}

type beginConfig struct {
	parentID string
	metadata map[string]any
	tags     []string
}

// BeginOption configures Begin.
type BeginOption func(*beginConfig)

// WithParent nests the new transaction under parentID.
func WithParent(parentID string) BeginOption {
	return func(c *beginConfig) { c.parentID = parentID }
}

// WithMetadata attaches metadata at creation time.
func WithMetadata(metadata map[string]any) BeginOption {
	return func(c *beginConfig) { c.metadata = metadata }
}

// WithTags attaches tags at creation time.
func WithTags(tags ...string) BeginOption {
	return func(c *beginConfig) { c.tags = tags }
}

// ClearCompleted removes terminal transactions older than maxAge (or all
// terminal transactions, if maxAge is 0) and returns the count removed.
func (l *Logger) ClearCompleted(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var toRemove []string
	for id, t := range l.transactions {
		t.mu.Lock()
		terminal := t.stage.Terminal()
		end := t.EndTime
		t.mu.Unlock()
		if !terminal {
			continue
		}
		if maxAge == 0 || (!end.IsZero() && now.Sub(end) > maxAge) {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		l.removeLocked(id)
	}
	return len(toRemove)
}

func (l *Logger) pruneIfNeeded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.transactions) <= l.maxTransactions {
		return
	}

	type candidate struct {
		id  string
		key int64
	}
	var terminal []candidate
	for id, t := range l.transactions {
		t.mu.Lock()
		if t.stage.Terminal() {
			end := t.EndTime.UnixNano()
			terminal = append(terminal, candidate{id, end})
		}
		t.mu.Unlock()
	}
	sort.Slice(terminal, func(i, j int) bool { return terminal[i].key < terminal[j].key })
	for len(l.transactions) > l.maxTransactions && len(terminal) > 0 {
		l.removeLocked(terminal[0].id)
		terminal = terminal[1:]
	}

	if len(l.transactions) <= l.maxTransactions {
		return
	}

	// Still over the limit: fall back to evicting the oldest active
	// transactions as a last resort.
	var active []candidate
	for id, t := range l.transactions {
		t.mu.Lock()
		active = append(active, candidate{id, t.StartTime.UnixNano()})
		t.mu.Unlock()
	}
	sort.Slice(active, func(i, j int) bool { return active[i].key < active[j].key })
	for len(l.transactions) > l.maxTransactions && len(active) > 0 {
		l.removeLocked(active[0].id)
		active = active[1:]
	}
}

// removeLocked removes a transaction from every index; callers must hold l.mu.
func (l *Logger) removeLocked(id string) {
	t, ok := l.transactions[id]
	if !ok {
		return
	}
	delete(l.transactions, id)

	if t.ParentID != "" {
		l.byParent[t.ParentID] = removeString(l.byParent[t.ParentID], id)
		if len(l.byParent[t.ParentID]) == 0 {
			delete(l.byParent, t.ParentID)
		}
	}
	for _, c := range t.Components {
		l.byComponent[c] = removeString(l.byComponent[c], id)
		if len(l.byComponent[c]) == 0 {
			delete(l.byComponent, c)
		}
	}
	for tag := range t.Tags {
		l.byTag[tag] = removeString(l.byTag[tag], id)
		if len(l.byTag[tag]) == 0 {
			delete(l.byTag, tag)
		}
	}
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, item := range list {
		if item != s {
			out = append(out, item)
		}
	}
	return out
}

// Summary aggregates current transaction counts and durations.
type Summary struct {
	Total            int
	Active           int
	StageCounts      map[Stage]int
	ActiveByComponent map[component.ID]int
	AverageDuration  time.Duration
	ErrorRate        float64
}

// Summary returns a point-in-time summary of tracked transactions.
func (l *Logger) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Summary{
		StageCounts:       make(map[Stage]int),
		ActiveByComponent: make(map[component.ID]int),
	}
	var totalDuration time.Duration
	var completedCount int

	for _, t := range l.transactions {
		stage := t.Stage()
		s.StageCounts[stage]++
		if !stage.Terminal() {
			s.Active++
			for _, c := range t.Components {
				s.ActiveByComponent[c]++
			}
		}
		if stage == StageCompleted {
			totalDuration += t.Duration()
			completedCount++
		}
	}
	s.Total = len(l.transactions)
	if completedCount > 0 {
		s.AverageDuration = totalDuration / time.Duration(completedCount)
	}

	finished := s.StageCounts[StageCompleted] + s.StageCounts[StageFailed] + s.StageCounts[StageCanceled]
	if finished > 0 {
		s.ErrorRate = float64(s.StageCounts[StageFailed]) / float64(finished)
	}
	return s
}
