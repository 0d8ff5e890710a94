package domain

import "sort"

// BindingDiff represents how one invocation changed the environment.
// It is designed to be serialized to JSON alongside history records.
type BindingDiff struct {
	// Added contains names that did not exist before the invocation.
	Added []string `json:"added,omitempty"`

	// Changed contains names rebound to a different value.
	Changed []string `json:"changed,omitempty"`

	// Removed contains names deleted (or set to nil) by the invocation.
	Removed []string `json:"removed,omitempty"`
}

// DiffBindings calculates the difference between two environment snapshots.
// Snapshots map a binding name to a comparable identity of its value.
// If before is nil, every binding in after is reported as added.
func DiffBindings(before, after map[string]string) BindingDiff {
	var diff BindingDiff

	// 1. Added or Changed
	for name, newVal := range after {
		oldVal, exists := before[name]
		if !exists {
			diff.Added = append(diff.Added, name)
		} else if oldVal != newVal {
			diff.Changed = append(diff.Changed, name)
		}
	}

	// 2. Removed
	for name := range before {
		if _, exists := after[name]; !exists {
			diff.Removed = append(diff.Removed, name)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Changed)
	sort.Strings(diff.Removed)
	return diff
}

// IsEmpty checks if the diff contains any change.
func (d BindingDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}
