/*
tree.go - Chart of accounts as an arena-backed forest

PURPOSE:
  Links a book's flat account records into parent/child trees and rolls
  leaf balances up to every ancestor.

KEY CONCEPTS:
  - Nodes live in one slice; edges are slice indexes, never back-pointers.
  - A node's Own amount is what was posted to it directly. Its Balance is
    Own plus the balances of all its children (filled by Rollup).
  - Children and roots are ordered by (code, name, id).

ORPHANS:
  An account whose parent id is unknown (or that sits on a parent cycle)
  is promoted to a root. Reporting stays available on charts with
  integrity gaps; it is not a correctness guarantee.

SEE ALSO:
  - report.go: Uses FindTypeRoot and Rollup
  - engine.go: AccountTreeWithBalances
*/
package ledger

import (
	"sort"
)

// Node is one account in the tree.
type Node struct {
	Account Account
	Own     Money
	Balance Money

	parent   int
	children []int
}

// AccountTree is a book's chart of accounts with balances.
type AccountTree struct {
	nodes  []Node
	index  map[AccountID]int
	roots  []int
	rolled bool
}

// BuildTree links accounts under their parents. leaf holds the amount posted
// directly to each account; missing entries count as zero.
func BuildTree(accounts []Account, leaf map[AccountID]Money) *AccountTree {
	t := &AccountTree{
		nodes: make([]Node, 0, len(accounts)),
		index: make(map[AccountID]int, len(accounts)),
	}

	sorted := make([]Account, len(accounts))
	copy(sorted, accounts)
	sort.SliceStable(sorted, func(i, j int) bool { return accountLess(sorted[i], sorted[j]) })

	for _, a := range sorted {
		if _, dup := t.index[a.ID]; dup {
			continue
		}
		t.index[a.ID] = len(t.nodes)
		t.nodes = append(t.nodes, Node{Account: a, Own: leaf[a.ID], parent: -1})
	}

	// Nodes are already sorted, so appending in order keeps children sorted.
	for i := range t.nodes {
		p, ok := t.index[t.nodes[i].Account.ParentID]
		if !ok || p == i || t.nodes[i].Account.ParentID == "" {
			t.roots = append(t.roots, i)
			continue
		}
		t.nodes[i].parent = p
		t.nodes[p].children = append(t.nodes[p].children, i)
	}

	t.breakCycles()
	return t
}

// breakCycles promotes nodes unreachable from any root (parent cycles) to roots.
func (t *AccountTree) breakCycles() {
	seen := make([]bool, len(t.nodes))
	var mark func(i int)
	mark = func(i int) {
		if seen[i] {
			return
		}
		seen[i] = true
		for _, c := range t.nodes[i].children {
			mark(c)
		}
	}
	for _, r := range t.roots {
		mark(r)
	}

	promoted := false
	for i := range t.nodes {
		if seen[i] {
			continue
		}
		p := t.nodes[i].parent
		t.nodes[p].children = removeIndex(t.nodes[p].children, i)
		t.nodes[i].parent = -1
		t.roots = append(t.roots, i)
		promoted = true
		mark(i)
	}
	if promoted {
		sort.SliceStable(t.roots, func(a, b int) bool {
			return accountLess(t.nodes[t.roots[a]].Account, t.nodes[t.roots[b]].Account)
		})
	}
}

func removeIndex(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func accountLess(a, b Account) bool {
	if a.Code != b.Code {
		return a.Code < b.Code
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// =============================================================================
// ROLLUP
// =============================================================================

// Rollup computes every node's Balance in post-order and returns them by id.
func (t *AccountTree) Rollup() map[AccountID]Money {
	out := make(map[AccountID]Money, len(t.nodes))
	var visit func(i int) Money
	visit = func(i int) Money {
		n := &t.nodes[i]
		total := n.Own
		for _, c := range n.children {
			total += visit(c)
		}
		n.Balance = total
		out[n.Account.ID] = total
		return total
	}
	for _, r := range t.roots {
		visit(r)
	}
	t.rolled = true
	return out
}

func (t *AccountTree) ensureRolled() {
	if !t.rolled {
		t.Rollup()
	}
}

// =============================================================================
// NAVIGATION
// =============================================================================

// FindTypeRoot returns the first top-level node of the given type.
func (t *AccountTree) FindTypeRoot(typ AccountType) (*Node, bool) {
	t.ensureRolled()
	for _, r := range t.roots {
		if t.nodes[r].Account.Type == typ {
			return &t.nodes[r], true
		}
	}
	return nil, false
}

// Node returns the node for id.
func (t *AccountTree) Node(id AccountID) (*Node, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	t.ensureRolled()
	return &t.nodes[i], true
}

// Roots returns top-level nodes in order.
func (t *AccountTree) Roots() []*Node {
	t.ensureRolled()
	out := make([]*Node, len(t.roots))
	for k, r := range t.roots {
		out[k] = &t.nodes[r]
	}
	return out
}

// Children returns the direct children of n in order.
func (t *AccountTree) Children(n *Node) []*Node {
	out := make([]*Node, len(n.children))
	for k, c := range n.children {
		out[k] = &t.nodes[c]
	}
	return out
}

// Parent returns n's parent, if any.
func (t *AccountTree) Parent(n *Node) (*Node, bool) {
	if n.parent < 0 {
		return nil, false
	}
	return &t.nodes[n.parent], true
}

// Descendants returns id followed by every account below it, pre-order.
func (t *AccountTree) Descendants(id AccountID) []AccountID {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	var out []AccountID
	var visit func(i int)
	visit = func(i int) {
		out = append(out, t.nodes[i].Account.ID)
		for _, c := range t.nodes[i].children {
			visit(c)
		}
	}
	visit(i)
	return out
}

// Walk visits every node pre-order with its depth (roots are depth 0).
func (t *AccountTree) Walk(fn func(n *Node, depth int)) {
	t.ensureRolled()
	var visit func(i, depth int)
	visit = func(i, depth int) {
		fn(&t.nodes[i], depth)
		for _, c := range t.nodes[i].children {
			visit(c, depth+1)
		}
	}
	for _, r := range t.roots {
		visit(r, 0)
	}
}

// Len returns the number of accounts in the tree.
func (t *AccountTree) Len() int { return len(t.nodes) }

// Leaves sums Own amounts of every node under (and including) id.
func (t *AccountTree) Leaves(id AccountID) Money {
	var total Money
	for _, d := range t.Descendants(id) {
		total += t.nodes[t.index[d]].Own
	}
	return total
}
