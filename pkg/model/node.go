package model

import (
	"fmt"
	"strconv"
)

// Kind tags the variant carried by a Node.
type Kind int

const (
	KindRoot Kind = iota
	KindCategory
	KindCluster
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindCategory:
		return "category"
	case KindCluster:
		return "cluster"
	case KindLeaf:
		return "leaf"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RootName is the display name of the tree root.
const RootName = "Taxonomy"

// RootID is the stable identity of the single root node.
const RootID = "root"

// Node is one vertex of the semantic tree. Only the fields belonging to
// Kind are meaningful:
//
//	root:     Name, Children (categories)
//	category: Name, AggregateSize, Children (clusters)
//	cluster:  ClusterID, Size, Purity, Children (leaves, may be empty)
//	leaf:     Name, Percentage, Count
type Node struct {
	ID       string
	Kind     Kind
	Name     string
	Parent   *Node
	Children []*Node

	AggregateSize int

	ClusterID int
	Size      int
	Purity    float64

	Percentage float64
	Count      int
}

// CategoryNodeID returns the stable id of a category node.
func CategoryNodeID(name string) string { return "cat:" + name }

// ClusterNodeID returns the stable id of a cluster node.
func ClusterNodeID(id int) string { return "cluster:" + strconv.Itoa(id) }

// LeafNodeID returns the stable id of the idx-th breakdown leaf of a cluster.
func LeafNodeID(clusterID, idx int) string {
	return "leaf:" + strconv.Itoa(clusterID) + ":" + strconv.Itoa(idx)
}

// ClusterName is the display name used for cluster nodes.
func ClusterName(id int) string { return "Cluster " + strconv.Itoa(id) }

// Depth returns the distance from the root (root = 0).
func (n *Node) Depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Ancestors returns the chain from the root down to the node's parent.
func (n *Node) Ancestors() []*Node {
	var chain []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// HasChildren reports whether the node can be expanded.
func (n *Node) HasChildren() bool { return len(n.Children) > 0 }

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Index maps every node id in the tree to its node.
func Index(root *Node) map[string]*Node {
	idx := make(map[string]*Node)
	Walk(root, func(n *Node) bool {
		idx[n.ID] = n
		return true
	})
	return idx
}
