package graph

import "sort"

// CallCycles returns groups of declarations that reach each other through
// call edges, such as mutually recursive functions. Each cycle starts at its
// smallest path and cycles are sorted by that path.
func (g *Graph) CallCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	seen := make(map[string]bool)

	for _, path := range g.order {
		if !visited[path] {
			g.findCycles(path, visited, onStack, nil, seen, &cycles)
		}
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func (g *Graph) findCycles(curr string, visited, onStack map[string]bool, path []string, seen map[string]bool, cycles *[][]string) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	for _, next := range g.callees(curr) {
		if onStack[next] {
			start := -1
			for i, p := range path {
				if p == next {
					start = i
					break
				}
			}
			if start != -1 {
				cycle := rotateToMin(path[start:])
				key := cycleKey(cycle)
				if !seen[key] {
					seen[key] = true
					*cycles = append(*cycles, cycle)
				}
			}
		} else if !visited[next] {
			g.findCycles(next, visited, onStack, path, seen, cycles)
		}
	}

	onStack[curr] = false
}

// callees returns the distinct call targets of path, sorted.
func (g *Graph) callees(path string) []string {
	set := make(map[string]bool)
	for _, i := range g.outgoing[path] {
		if e := g.edges[i]; e.Kind == EdgeCall {
			set[e.To] = true
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func rotateToMin(cycle []string) []string {
	minIdx := 0
	for i, p := range cycle {
		if p < cycle[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[minIdx:]...)
	out = append(out, cycle[:minIdx]...)
	return out
}

func cycleKey(cycle []string) string {
	key := ""
	for _, p := range cycle {
		key += p + "\n"
	}
	return key
}

// FindCallChain returns the shortest call path from one declaration to
// another, visiting callees in path order.
func (g *Graph) FindCallChain(from, to string) ([]string, bool) {
	if _, ok := g.decls[from]; !ok {
		return nil, false
	}
	if _, ok := g.decls[to]; !ok {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range g.callees(curr) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				chain := []string{to}
				for node := to; node != from; {
					p := prev[node]
					chain = append(chain, p)
					node = p
				}
				for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
					chain[i], chain[j] = chain[j], chain[i]
				}
				return chain, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}
