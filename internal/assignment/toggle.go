// Package assignment implements the checkbox-style membership editor used
// for linking achievements to students. All toggles operate on a working set
// relative to a server-confirmed baseline.
package assignment

import "sort"

// Toggle tracks membership edits against a baseline set. Repeated toggles of
// the same id cancel out; the working copy is a set, never a list, so
// duplicates cannot accumulate.
type Toggle struct {
	baseline map[string]struct{}
	working  map[string]struct{}
}

// New starts an editing session from the server-confirmed member set.
func New(baseline []string) *Toggle {
	t := &Toggle{}
	t.Rebase(baseline)
	return t
}

// Rebase resets both baseline and working copy, typically after a commit
// when the server response becomes authoritative again.
func (t *Toggle) Rebase(members []string) {
	t.baseline = make(map[string]struct{}, len(members))
	t.working = make(map[string]struct{}, len(members))
	for _, id := range members {
		t.baseline[id] = struct{}{}
		t.working[id] = struct{}{}
	}
}

// Toggle flips membership of the given id in the working copy.
func (t *Toggle) Toggle(id string) {
	if _, ok := t.working[id]; ok {
		delete(t.working, id)
		return
	}
	t.working[id] = struct{}{}
}

// SetMembers replaces the working copy with the given set, leaving the
// baseline untouched. This is how a full desired membership sent by a client
// is reconciled against the stored state.
func (t *Toggle) SetMembers(members []string) {
	t.working = make(map[string]struct{}, len(members))
	for _, id := range members {
		t.working[id] = struct{}{}
	}
}

// Has reports current working membership.
func (t *Toggle) Has(id string) bool {
	_, ok := t.working[id]
	return ok
}

// Members returns the full working member set, sorted. Commits send this
// complete set upstream rather than a delta.
func (t *Toggle) Members() []string {
	out := make([]string, 0, len(t.working))
	for id := range t.working {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Diff returns the ids added to and removed from the baseline, both sorted.
// An untouched session yields two empty slices.
func (t *Toggle) Diff() (toAdd, toRemove []string) {
	for id := range t.working {
		if _, ok := t.baseline[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for id := range t.baseline {
		if _, ok := t.working[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	sort.Strings(toAdd)
	sort.Strings(toRemove)
	return toAdd, toRemove
}

// Dirty reports whether the working copy differs from the baseline.
func (t *Toggle) Dirty() bool {
	toAdd, toRemove := t.Diff()
	return len(toAdd) > 0 || len(toRemove) > 0
}
