package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggleDoubleToggleCancelsOut(t *testing.T) {
	tg := New([]string{"ach-1", "ach-2"})

	tg.Toggle("ach-3")
	tg.Toggle("ach-3")

	assert.False(t, tg.Dirty())
	toAdd, toRemove := tg.Diff()
	assert.Empty(t, toAdd)
	assert.Empty(t, toRemove)
}

func TestToggleDiff(t *testing.T) {
	tg := New([]string{"ach-1", "ach-2"})

	tg.Toggle("ach-2")
	tg.Toggle("ach-3")

	toAdd, toRemove := tg.Diff()
	assert.Equal(t, []string{"ach-3"}, toAdd)
	assert.Equal(t, []string{"ach-2"}, toRemove)
	assert.True(t, tg.Dirty())
}

func TestToggleMembersIsFullSortedSet(t *testing.T) {
	tg := New([]string{"ach-2"})

	tg.Toggle("ach-1")
	tg.Toggle("ach-3")

	assert.Equal(t, []string{"ach-1", "ach-2", "ach-3"}, tg.Members())
}

func TestToggleHas(t *testing.T) {
	tg := New([]string{"ach-1"})

	assert.True(t, tg.Has("ach-1"))
	tg.Toggle("ach-1")
	assert.False(t, tg.Has("ach-1"))
}

func TestSetMembersReconcilesAgainstBaseline(t *testing.T) {
	tg := New([]string{"ach-1", "ach-2"})

	tg.SetMembers([]string{"ach-2", "ach-3", "ach-4"})

	toAdd, toRemove := tg.Diff()
	assert.Equal(t, []string{"ach-3", "ach-4"}, toAdd)
	assert.Equal(t, []string{"ach-1"}, toRemove)
}

func TestRebaseAfterCommit(t *testing.T) {
	tg := New([]string{"ach-1"})
	tg.Toggle("ach-2")

	tg.Rebase(tg.Members())
	assert.False(t, tg.Dirty())
	assert.True(t, tg.Has("ach-2"))
}

func TestToggleEmptyBaseline(t *testing.T) {
	tg := New(nil)

	assert.False(t, tg.Dirty())
	tg.Toggle("ach-1")
	toAdd, toRemove := tg.Diff()
	assert.Equal(t, []string{"ach-1"}, toAdd)
	assert.Empty(t, toRemove)
}
