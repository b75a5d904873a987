package lineage

import "strings"

// Node is one step of a lineage tree. Leaves carry the resolved reference:
// Name is "table.column" or a bare "column", and SourceName is the base
// table as written in the query, empty when the column could not be tied
// to one.
type Node struct {
	Name       string
	SourceName string
	Downstream []*Node
}

// IsLeaf reports whether n has no downstream nodes.
func (n *Node) IsLeaf() bool {
	return len(n.Downstream) == 0
}

// Column returns the last dotted segment of Name.
func (n *Node) Column() string {
	if i := strings.LastIndexByte(n.Name, '.'); i >= 0 {
		return n.Name[i+1:]
	}
	return n.Name
}

// Leaves returns the leaves under n depth-first, left to right. A leaf
// root returns itself.
func (n *Node) Leaves() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(x *Node) {
		if x.IsLeaf() {
			out = append(out, x)
			return
		}
		for _, d := range x.Downstream {
			walk(d)
		}
	}
	walk(n)
	return out
}
