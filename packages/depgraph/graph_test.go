package depgraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vogtb/go-formulabar/packages/cell"
)

func addrs(names ...string) []cell.Address {
	result := make([]cell.Address, 0, len(names))
	for _, name := range names {
		result = append(result, cell.MustParseAddress(name))
	}
	return result
}

func rng(ref string) cell.Range {
	r, err := cell.ParseRange(ref)
	if err != nil {
		panic(err)
	}
	return r
}

func a(name string) cell.Address { return cell.MustParseAddress(name) }

func TestDirectDependents(t *testing.T) {
	g := New()
	g.SetPrecedents(a("B1"), addrs("A1"), nil)
	g.SetPrecedents(a("C1"), addrs("A1", "B1"), nil)
	g.SetPrecedents(a("D1"), nil, []cell.Range{rng("A1:A5")})

	if diff := cmp.Diff(addrs("B1", "C1", "D1"), g.DirectDependents(a("A1"))); diff != "" {
		t.Errorf("DirectDependents(A1) (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(addrs("D1"), g.DirectDependents(a("A3"))); diff != "" {
		t.Errorf("DirectDependents(A3) (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(addrs("A1", "B1"), g.DirectPrecedents(a("C1"))); diff != "" {
		t.Errorf("DirectPrecedents(C1) (-want +got):\n%s", diff)
	}
}

func TestAffectedCellsTransitive(t *testing.T) {
	g := New()
	g.SetPrecedents(a("B1"), addrs("A1"), nil)
	g.SetPrecedents(a("C1"), addrs("B1"), nil)
	g.SetPrecedents(a("D1"), nil, []cell.Range{rng("C1:C3")})
	g.SetPrecedents(a("Z9"), addrs("Y9"), nil)

	if diff := cmp.Diff(addrs("B1", "C1", "D1"), g.AffectedCells(a("A1"))); diff != "" {
		t.Errorf("AffectedCells(A1) (-want +got):\n%s", diff)
	}
	if got := g.AffectedCells(a("Q1")); len(got) != 0 {
		t.Errorf("AffectedCells(Q1) = %v, want none", got)
	}
}

func TestSetPrecedentsReplaces(t *testing.T) {
	g := New()
	g.SetPrecedents(a("B1"), addrs("A1"), []cell.Range{rng("C1:C2")})
	g.SetPrecedents(a("B1"), addrs("A2"), nil)

	if got := g.DirectDependents(a("A1")); len(got) != 0 {
		t.Errorf("A1 should no longer have dependents, got %v", got)
	}
	if got := g.RangeObserverCount(); got != 0 {
		t.Errorf("RangeObserverCount() = %d, want 0", got)
	}
	if diff := cmp.Diff(addrs("B1"), g.DirectDependents(a("A2"))); diff != "" {
		t.Errorf("DirectDependents(A2) (-want +got):\n%s", diff)
	}

	// clearing the only edge leaves no nodes behind
	g.SetPrecedents(a("B1"), nil, nil)
	if g.NodeCount() != 0 {
		t.Errorf("NodeCount() = %d, want 0", g.NodeCount())
	}
}

func TestRemove(t *testing.T) {
	g := New()
	g.SetPrecedents(a("B1"), addrs("A1"), nil)
	g.SetPrecedents(a("C1"), addrs("B1"), nil)

	g.Remove(a("B1"))
	if _, exists := g.Node(a("B1")); exists {
		t.Error("B1 should be removed")
	}
	if got := g.DirectPrecedents(a("C1")); len(got) != 0 {
		t.Errorf("C1 precedents = %v, want none", got)
	}
	if got := g.DirectDependents(a("A1")); len(got) != 0 {
		t.Errorf("A1 dependents = %v, want none", got)
	}

	g.Reset()
	if g.NodeCount() != 0 {
		t.Error("Reset should drop all nodes")
	}
}

func TestWouldCycle(t *testing.T) {
	g := New()
	g.SetPrecedents(a("B1"), addrs("A1"), nil)
	g.SetPrecedents(a("C1"), addrs("B1"), nil)

	cases := []struct {
		name   string
		addr   string
		cells  []cell.Address
		ranges []cell.Range
		want   bool
	}{
		{"self reference", "D1", addrs("D1"), nil, true},
		{"direct back edge", "A1", addrs("B1"), nil, true},
		{"transitive back edge", "A1", addrs("C1"), nil, true},
		{"range containing self", "E5", nil, []cell.Range{rng("E1:E9")}, true},
		{"range containing dependent", "A1", nil, []cell.Range{rng("C1:C3")}, true},
		{"independent", "A1", addrs("Z1"), []cell.Range{rng("D1:D3")}, false},
		{"forward edge", "D1", addrs("C1"), nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.WouldCycle(a(tc.addr), tc.cells, tc.ranges); got != tc.want {
				t.Errorf("WouldCycle = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOrder(t *testing.T) {
	g := New()
	g.SetPrecedents(a("C1"), addrs("B1"), nil)
	g.SetPrecedents(a("B1"), addrs("A1"), nil)
	g.SetPrecedents(a("A2"), nil, []cell.Range{rng("C1:C2")})

	ordered, cyclic := g.Order(addrs("A2", "B1", "C1"))
	if diff := cmp.Diff(addrs("B1", "C1", "A2"), ordered); diff != "" {
		t.Errorf("Order (-want +got):\n%s", diff)
	}
	if len(cyclic) != 0 {
		t.Errorf("cyclic = %v, want none", cyclic)
	}
}

func TestOrderWithCycle(t *testing.T) {
	g := New()
	g.SetPrecedents(a("A1"), addrs("B1"), nil)
	g.SetPrecedents(a("B1"), addrs("A1"), nil)
	g.SetPrecedents(a("C1"), addrs("B1"), nil)
	g.SetPrecedents(a("D1"), addrs("X1"), nil)

	ordered, cyclic := g.Order(addrs("A1", "B1", "C1", "D1"))
	if diff := cmp.Diff(addrs("D1"), ordered); diff != "" {
		t.Errorf("ordered (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(addrs("A1", "B1", "C1"), cyclic); diff != "" {
		t.Errorf("cyclic (-want +got):\n%s", diff)
	}
}
