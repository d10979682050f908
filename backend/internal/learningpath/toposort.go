package learningpath

import "sort"

// topologicalOrder orders ids so that every concept appears strictly before
// any concept that requires it (Kahn's algorithm). requires maps a concept to
// its prerequisites; edges pointing outside the id set are treated as already
// satisfied, which is what makes depth-truncated closures orderable.
//
// The second return value lists ids left unordered; it is non-empty exactly
// when the subgraph contains a cycle. Ready concepts are emitted in id order
// so the result is deterministic.
func topologicalOrder(ids []string, requires map[string][]string) ([]string, []string) {
	inSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}

	// unresolved prerequisite count per concept, counting in-set edges only
	pending := make(map[string]int, len(ids))
	dependents := make(map[string][]string, len(ids))
	for _, id := range ids {
		pending[id] = 0
	}
	for dependent, prereqs := range requires {
		if !inSet[dependent] {
			continue
		}
		for _, prereq := range prereqs {
			if !inSet[prereq] {
				continue
			}
			pending[dependent]++
			dependents[prereq] = append(dependents[prereq], dependent)
		}
	}

	ready := make([]string, 0, len(ids))
	for _, id := range ids {
		if pending[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	ordered := make([]string, 0, len(ids))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, id)

		released := []string{}
		for _, dependent := range dependents[id] {
			pending[dependent]--
			if pending[dependent] == 0 {
				released = append(released, dependent)
			}
		}
		if len(released) > 0 {
			ready = append(ready, released...)
			sort.Strings(ready)
		}
	}

	if len(ordered) == len(ids) {
		return ordered, nil
	}

	emitted := make(map[string]bool, len(ordered))
	for _, id := range ordered {
		emitted[id] = true
	}
	remaining := make([]string, 0, len(ids)-len(ordered))
	for _, id := range ids {
		if !emitted[id] {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return ordered, remaining
}
