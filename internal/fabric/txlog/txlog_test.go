package txlog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusforge/fabric/internal/fabric/component"
)

func TestTransactionLifecycle_HappyPath(t *testing.T) {
	l := New()
	tx := l.CreateTransaction("Ingest", "", nil, []string{"ingest"})
	require.Equal(t, StageCreated, tx.Stage())

	tx.Start("loader")
	tx.Process("loader", "parse")
	tx.Complete("loader")

	require.Equal(t, StageCompleted, tx.Stage())
	require.Contains(t, tx.Components, component.ID("loader"))
	require.Greater(t, tx.Duration().Nanoseconds(), int64(0))
}

// TestTerminalStageAbsorbing: once terminal,
// further transitions are no-ops.
func TestTerminalStageAbsorbing(t *testing.T) {
	l := New()
	tx := l.CreateTransaction("Ingest", "", nil, nil)
	tx.Start("a")
	tx.Fail("a", errors.New("boom"))
	require.Equal(t, StageFailed, tx.Stage())

	tx.Complete("a")
	require.Equal(t, StageFailed, tx.Stage(), "terminal stage must not be overwritten")
	require.Len(t, tx.Errors, 1)
}

// TestIndexing: transactions are retrievable
// by parent, component, and tag.
func TestIndexing(t *testing.T) {
	l := New()
	parent := l.CreateTransaction("Parent", "", nil, nil)
	child := l.CreateTransaction("Child", parent.ID, nil, []string{"nested"})
	child.Start("worker")
	l.UpdateTransaction(child)

	require.Len(t, l.ByParent(parent.ID), 1)
	require.Equal(t, child.ID, l.ByParent(parent.ID)[0].ID)

	require.Len(t, l.ByComponent("worker"), 1)
	require.Len(t, l.ByTag("nested"), 1)
}

// TestPruning_OldestTerminalFirst: terminal transactions with the
// earliest end time are evicted first once the retention bound is hit.
func TestPruning_OldestTerminalFirst(t *testing.T) {
	l := New(WithMaxTransactions(2))

	first := l.CreateTransaction("first", "", nil, nil)
	first.Start("a")
	first.Complete("a")
	l.UpdateTransaction(first)

	second := l.CreateTransaction("second", "", nil, nil)
	second.Start("a")
	l.UpdateTransaction(second) // still active

	third := l.CreateTransaction("third", "", nil, nil)
	third.Start("a")
	third.Complete("a")
	l.UpdateTransaction(third) // triggers prune: over limit by one terminal tx

	_, stillThere := l.GetTransaction(first.ID)
	require.False(t, stillThere, "oldest terminal transaction should have been pruned")

	_, secondStillThere := l.GetTransaction(second.ID)
	require.True(t, secondStillThere, "active transaction should survive pruning before other terminals")
}

// TestBeginFinish exercises the happy and failure paths for a
// scoped transaction.
func TestBeginFinish(t *testing.T) {
	l := New()

	tx, finish := l.Begin(context.Background(), "importer", "Import", "load file")
	finish(nil)
	require.Equal(t, StageCompleted, tx.Stage())

	tx2, finish2 := l.Begin(context.Background(), "importer", "Import", "load file")
	finish2(errors.New("disk full"))
	require.Equal(t, StageFailed, tx2.Stage())
	require.Len(t, tx2.Errors, 1)
}

func TestSummary(t *testing.T) {
	l := New()
	ok := l.CreateTransaction("ok", "", nil, nil)
	ok.Start("a")
	ok.Complete("a")
	l.UpdateTransaction(ok)

	bad := l.CreateTransaction("bad", "", nil, nil)
	bad.Start("a")
	bad.Fail("a", errors.New("x"))
	l.UpdateTransaction(bad)

	summary := l.Summary()
	require.Equal(t, 2, summary.Total)
	require.Equal(t, 0.5, summary.ErrorRate)
}

func TestClearCompleted(t *testing.T) {
	l := New(WithAutoPrune(false))
	tx := l.CreateTransaction("done", "", nil, nil)
	tx.Start("a")
	tx.Complete("a")
	l.UpdateTransaction(tx)

	active := l.CreateTransaction("active", "", nil, nil)
	l.UpdateTransaction(active)

	removed := l.ClearCompleted(0)
	require.Equal(t, 1, removed)
	_, ok := l.GetTransaction(active.ID)
	require.True(t, ok)
}
