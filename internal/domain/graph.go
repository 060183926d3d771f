package domain

// Transitions defines, per document variant, the set of states directly
// reachable from each state. Terminal states map to an empty slice. This is
// domain knowledge consumed by both the path search below and the FSM
// adapter, so the two can never disagree about edge legality.
var Transitions = map[DocumentType]map[Status][]Status{
	DocTypeInvoice: {
		StatusDraft:      {StatusSubmitted, StatusVoided},
		StatusSubmitted:  {StatusAuthorised, StatusVoided},
		StatusAuthorised: {StatusPaid, StatusVoided},
		StatusPaid:       {},
		StatusVoided:     {},
	},
	DocTypeQuote: {
		StatusDraft:    {StatusSent},
		StatusSent:     {StatusAccepted, StatusDeclined},
		StatusAccepted: {StatusInvoiced, StatusDeclined},
		StatusDeclined: {StatusDraft},
		StatusInvoiced: {},
	},
	DocTypeCreditNote: {
		StatusDraft:      {StatusSubmitted, StatusVoided},
		StatusSubmitted:  {StatusAuthorised, StatusVoided},
		StatusAuthorised: {StatusPaid, StatusVoided},
		StatusPaid:       {},
		StatusVoided:     {},
	},
}

// KnownStatus reports whether s is a state of the given variant's graph.
func KnownStatus(docType DocumentType, s Status) bool {
	graph, ok := Transitions[docType]
	if !ok {
		return false
	}
	_, ok = graph[s]
	return ok
}

// AllowedFrom returns the states directly reachable from s for the given
// variant. Empty for terminal or unknown states.
func AllowedFrom(docType DocumentType, s Status) []Status {
	return Transitions[docType][s]
}

// IsTerminal reports whether s has no outgoing transitions for the variant.
func IsTerminal(docType DocumentType, s Status) bool {
	return KnownStatus(docType, s) && len(Transitions[docType][s]) == 0
}

// ShortestPath computes the shortest legal state path from one status to
// another using breadth-first search over the variant's transition graph,
// treating every edge as unit weight. It returns the full path including
// both endpoints, a single-element path when from == to, or nil when the
// target is unreachable. Ties break by adjacency insertion order; the
// graphs are small enough that any shortest path is acceptable.
func ShortestPath(docType DocumentType, from, to Status) []Status {
	graph, ok := Transitions[docType]
	if !ok {
		return nil
	}
	if from == to {
		return []Status{from}
	}
	if _, ok := graph[from]; !ok {
		return nil
	}

	parent := map[Status]Status{from: from}
	queue := []Status{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range graph[current] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			if next == to {
				return rebuildPath(parent, from, to)
			}
			queue = append(queue, next)
		}
	}

	return nil
}

func rebuildPath(parent map[Status]Status, from, to Status) []Status {
	var reversed []Status
	for s := to; s != from; s = parent[s] {
		reversed = append(reversed, s)
	}
	reversed = append(reversed, from)

	path := make([]Status, len(reversed))
	for i, s := range reversed {
		path[len(reversed)-1-i] = s
	}
	return path
}
