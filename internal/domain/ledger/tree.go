package ledger

import (
	"sort"
)

// Node is an account with its children in the chart-of-accounts forest.
type Node struct {
	Account  Account `json:"account"`
	Level    int     `json:"level"`
	Children []*Node `json:"children,omitempty"`
}

// BuildTree arranges accounts into a forest via ParentCode. Accounts whose
// parent is missing from the input are promoted to roots. Siblings are
// ordered by code.
func BuildTree(accounts []Account) []*Node {
	sorted := make([]Account, len(accounts))
	copy(sorted, accounts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	nodes := make(map[string]*Node, len(sorted))
	for i := range sorted {
		nodes[sorted[i].Code] = &Node{Account: sorted[i]}
	}

	var roots []*Node
	for i := range sorted {
		n := nodes[sorted[i].Code]
		parent, ok := nodes[sorted[i].ParentCodeValue()]
		if !ok || parent == n {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	for _, r := range roots {
		setLevels(r, 0, map[*Node]bool{})
	}
	return roots
}

func setLevels(n *Node, level int, seen map[*Node]bool) {
	if seen[n] {
		return
	}
	seen[n] = true
	n.Level = level
	for _, c := range n.Children {
		setLevels(c, level+1, seen)
	}
}

// Walk visits every node depth-first in tree order.
func Walk(roots []*Node, fn func(n *Node)) {
	for _, r := range roots {
		fn(r)
		Walk(r.Children, fn)
	}
}
