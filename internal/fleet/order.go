package fleet

import "github.com/jailfleet/jailfleet/internal/graph"

// filteredOrder linearizes g (TopoStart if start, TopoStop otherwise) and
// filters it down to set, preserving the full linearization's relative
// order — the direct implementation of "set is expanded to
// include all transitive dependencies/dependents" against a graph that
// already covers the whole fleet.
func filteredOrder(g *graph.Graph, set map[string]bool, start bool) ([]string, error) {
	var full []string
	var err error
	if start {
		full, err = g.TopoStart()
	} else {
		full, err = g.TopoStop()
	}
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(set))
	for _, n := range full {
		if set[n] {
			order = append(order, n)
		}
	}
	return order, nil
}
