// Package depgraph tracks which cells a formula reads so that a committed
// edit can be propagated to its dependents in calculation order.
package depgraph

import (
	"sort"

	"github.com/vogtb/go-formulabar/packages/cell"
)

// Node represents a cell in the dependency graph
type Node struct {
	Address cell.Address

	// cell-to-cell dependencies
	CellPrecedents map[cell.Address]*Node // cells this cell depends on
	CellDependents map[cell.Address]*Node // cells that depend on this cell

	// ranges this cell depends on
	RangePrecedents map[cell.Range]struct{}
}

// Graph manages cell dependencies and calculation order
type Graph struct {
	nodes          map[cell.Address]*Node
	rangeObservers map[cell.Range]map[cell.Address]struct{} // range -> cells that depend on it
}

// New creates a new dependency graph
func New() *Graph {
	return &Graph{
		nodes:          make(map[cell.Address]*Node),
		rangeObservers: make(map[cell.Range]map[cell.Address]struct{}),
	}
}

func (g *Graph) getOrCreateNode(addr cell.Address) *Node {
	if node, exists := g.nodes[addr]; exists {
		return node
	}

	node := &Node{
		Address:         addr,
		CellPrecedents:  make(map[cell.Address]*Node),
		CellDependents:  make(map[cell.Address]*Node),
		RangePrecedents: make(map[cell.Range]struct{}),
	}
	g.nodes[addr] = node
	return node
}

// Node retrieves a node if it exists
func (g *Graph) Node(addr cell.Address) (*Node, bool) {
	node, exists := g.nodes[addr]
	return node, exists
}

// NodeCount returns the number of nodes in the graph
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// RangeObserverCount returns the number of observed ranges
func (g *Graph) RangeObserverCount() int {
	return len(g.rangeObservers)
}

// SetPrecedents replaces everything addr depends on
func (g *Graph) SetPrecedents(addr cell.Address, cells []cell.Address, ranges []cell.Range) {
	g.Clear(addr)
	if len(cells) == 0 && len(ranges) == 0 {
		return
	}

	node := g.getOrCreateNode(addr)
	for _, precedent := range cells {
		precedentNode := g.getOrCreateNode(precedent)
		node.CellPrecedents[precedent] = precedentNode
		precedentNode.CellDependents[addr] = node
	}
	for _, r := range ranges {
		node.RangePrecedents[r] = struct{}{}
		if g.rangeObservers[r] == nil {
			g.rangeObservers[r] = make(map[cell.Address]struct{})
		}
		g.rangeObservers[r][addr] = struct{}{}
	}
}

// Clear removes everything addr depends on. cells depending on addr keep
// their edges.
func (g *Graph) Clear(addr cell.Address) {
	node, exists := g.nodes[addr]
	if !exists {
		return
	}

	for precedentAddr, precedentNode := range node.CellPrecedents {
		delete(precedentNode.CellDependents, addr)
		delete(node.CellPrecedents, precedentAddr)
		g.cleanupNodeIfEmpty(precedentAddr)
	}

	for r := range node.RangePrecedents {
		g.removeRangeObserver(r, addr)
		delete(node.RangePrecedents, r)
	}

	g.cleanupNodeIfEmpty(addr)
}

// Remove drops addr and every edge touching it
func (g *Graph) Remove(addr cell.Address) {
	g.Clear(addr)

	node, exists := g.nodes[addr]
	if !exists {
		return
	}
	for _, dependentNode := range node.CellDependents {
		delete(dependentNode.CellPrecedents, addr)
	}
	delete(g.nodes, addr)
}

// Reset removes all nodes and dependencies from the graph
func (g *Graph) Reset() {
	g.nodes = make(map[cell.Address]*Node)
	g.rangeObservers = make(map[cell.Range]map[cell.Address]struct{})
}

func (g *Graph) removeRangeObserver(r cell.Range, addr cell.Address) {
	if observers, exists := g.rangeObservers[r]; exists {
		delete(observers, addr)
		if len(observers) == 0 {
			delete(g.rangeObservers, r)
		}
	}
}

// cleanupNodeIfEmpty removes a node if it has no dependencies left
func (g *Graph) cleanupNodeIfEmpty(addr cell.Address) {
	node, exists := g.nodes[addr]
	if !exists {
		return
	}
	if len(node.CellPrecedents) > 0 ||
		len(node.CellDependents) > 0 ||
		len(node.RangePrecedents) > 0 {
		return
	}
	delete(g.nodes, addr)
}

// DirectDependents returns cells reading addr directly or through a range,
// sorted by position
func (g *Graph) DirectDependents(addr cell.Address) []cell.Address {
	found := make(map[cell.Address]struct{})
	if node, exists := g.nodes[addr]; exists {
		for dependentAddr := range node.CellDependents {
			found[dependentAddr] = struct{}{}
		}
	}
	for r, observers := range g.rangeObservers {
		if r.Contains(addr) {
			for observerAddr := range observers {
				found[observerAddr] = struct{}{}
			}
		}
	}
	return sortedAddresses(found)
}

// DirectPrecedents returns cells addr reads directly, sorted by position
func (g *Graph) DirectPrecedents(addr cell.Address) []cell.Address {
	node, exists := g.nodes[addr]
	if !exists {
		return nil
	}
	found := make(map[cell.Address]struct{}, len(node.CellPrecedents))
	for precedentAddr := range node.CellPrecedents {
		found[precedentAddr] = struct{}{}
	}
	return sortedAddresses(found)
}

// AffectedCells returns all cells that need recalculation when addr
// changes: direct and transitive dependents, including cells observing a
// range that contains a changed cell. addr itself is only included when it
// sits on a cycle.
func (g *Graph) AffectedCells(addr cell.Address) []cell.Address {
	affected := make(map[cell.Address]struct{})
	queue := []cell.Address{addr}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range g.DirectDependents(current) {
			if _, seen := affected[dependent]; seen {
				continue
			}
			affected[dependent] = struct{}{}
			queue = append(queue, dependent)
		}
	}
	return sortedAddresses(affected)
}

// WouldCycle reports whether making addr depend on cells and ranges would
// create a circular reference
func (g *Graph) WouldCycle(addr cell.Address, cells []cell.Address, ranges []cell.Range) bool {
	dependents := make(map[cell.Address]struct{})
	dependents[addr] = struct{}{}
	for _, dep := range g.AffectedCells(addr) {
		dependents[dep] = struct{}{}
	}

	for _, precedent := range cells {
		if _, found := dependents[precedent]; found {
			return true
		}
	}
	for _, r := range ranges {
		for dep := range dependents {
			if r.Contains(dep) {
				return true
			}
		}
	}
	return false
}

// Order sorts addrs so that every cell comes after the cells it reads.
// cells that sit on a cycle cannot be ordered and are returned separately.
func (g *Graph) Order(addrs []cell.Address) (ordered []cell.Address, cyclic []cell.Address) {
	wanted := make(map[cell.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		wanted[addr] = struct{}{}
	}

	// three states: unvisited (not in map), visiting (false), visited (true)
	state := make(map[cell.Address]bool)
	onCycle := make(map[cell.Address]struct{})
	var stack []cell.Address

	var visit func(addr cell.Address)
	visit = func(addr cell.Address) {
		if completed, exists := state[addr]; exists {
			if !completed {
				// currently visiting - every cell from addr up the stack is
				// part of the cycle
				for i := len(stack) - 1; i >= 0; i-- {
					onCycle[stack[i]] = struct{}{}
					if stack[i] == addr {
						break
					}
				}
			}
			return
		}

		state[addr] = false
		stack = append(stack, addr)

		for _, precedent := range g.precedentsOf(addr) {
			if _, ok := wanted[precedent]; ok {
				visit(precedent)
			}
		}

		stack = stack[:len(stack)-1]
		state[addr] = true
		if _, ok := onCycle[addr]; !ok {
			ordered = append(ordered, addr)
		}
	}

	sorted := sortedAddresses(wanted)
	for _, addr := range sorted {
		if _, visited := state[addr]; !visited {
			visit(addr)
		}
	}

	// a cell ordered before a cyclic precedent was discovered still reads it
	final := ordered[:0]
	for _, addr := range ordered {
		if g.readsAny(addr, onCycle) {
			onCycle[addr] = struct{}{}
			continue
		}
		final = append(final, addr)
	}

	return final, sortedAddresses(onCycle)
}

// precedentsOf returns every cell addr reads, expanding range precedents
// into the cells that have nodes in the graph
func (g *Graph) precedentsOf(addr cell.Address) []cell.Address {
	node, exists := g.nodes[addr]
	if !exists {
		return nil
	}
	found := make(map[cell.Address]struct{}, len(node.CellPrecedents))
	for precedentAddr := range node.CellPrecedents {
		found[precedentAddr] = struct{}{}
	}
	for r := range node.RangePrecedents {
		for other := range g.nodes {
			if r.Contains(other) {
				found[other] = struct{}{}
			}
		}
	}
	return sortedAddresses(found)
}

func (g *Graph) readsAny(addr cell.Address, set map[cell.Address]struct{}) bool {
	for _, precedent := range g.precedentsOf(addr) {
		if _, found := set[precedent]; found {
			return true
		}
	}
	return false
}

func sortedAddresses(set map[cell.Address]struct{}) []cell.Address {
	result := make([]cell.Address, 0, len(set))
	for addr := range set {
		result = append(result, addr)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Less(result[j])
	})
	return result
}
