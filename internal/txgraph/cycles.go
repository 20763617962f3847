package txgraph

import "sort"

// Reference bounds for circular fund movement. Two-party reciprocity is
// excluded since refunds produce it routinely.
const (
	DefaultMinCycleLength = 3
	DefaultMaxCycleLength = 6
)

// AccountSet is an immutable-by-convention set of account IDs.
type AccountSet map[string]struct{}

// Has reports whether id is a member.
func (s AccountSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s AccountSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FindCycleMembers returns the accounts lying on at least one simple directed
// cycle with between minLen and maxLen vertices. Parallel edges collapse to
// one sender->receiver link; amounts and timestamps are ignored.
//
// Each cycle is enumerated once, from its lowest-ordered vertex, by a DFS that
// never extends a path past maxLen vertices. Cost is O(V * d^maxLen) for
// maximum out-degree d, so callers should bound the graph size.
func FindCycleMembers(g *Graph, minLen, maxLen int) AccountSet {
	members := make(AccountSet)
	if g == nil || maxLen < 1 || minLen > maxLen {
		return members
	}

	rank := make(map[string]int, len(g.ids))
	for i, id := range g.ids {
		rank[id] = i
	}

	path := make([]string, 0, maxLen)
	onPath := make(map[string]bool, maxLen)

	for _, start := range g.ids {
		startRank := rank[start]
		path = append(path[:0], start)
		onPath[start] = true

		var visit func(current string)
		visit = func(current string) {
			for _, next := range g.successors[current] {
				if next == start {
					if n := len(path); n >= minLen && n <= maxLen {
						for _, id := range path {
							members[id] = struct{}{}
						}
					}
					continue
				}
				if rank[next] < startRank || onPath[next] || len(path) >= maxLen {
					continue
				}
				path = append(path, next)
				onPath[next] = true
				visit(next)
				onPath[next] = false
				path = path[:len(path)-1]
			}
		}
		visit(start)
		onPath[start] = false
	}
	return members
}
