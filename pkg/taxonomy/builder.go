// Package taxonomy builds the rooted category → cluster → breakdown tree
// from the flat cluster list.
package taxonomy

import (
	"sort"
	"strconv"

	"github.com/vanderheijden86/taxview/pkg/debug"
	"github.com/vanderheijden86/taxview/pkg/metrics"
	"github.com/vanderheijden86/taxview/pkg/model"
)

// BreakdownSource resolves breakdown entries for a cluster id.
type BreakdownSource interface {
	Lookup(id int) ([]model.BreakdownEntry, bool)
}

// BuildTree groups clusters by dominant category and keeps those with
// purity >= minPurity. Empty categories are omitted, categories are sorted
// by name and clusters keep source order. rich may be nil.
//
// The result depends only on the inputs.
func BuildTree(clusters []model.ClusterRecord, rich BreakdownSource, minPurity float64) *model.Node {
	defer metrics.Timer(metrics.TreeBuild)()

	root := &model.Node{ID: model.RootID, Kind: model.KindRoot, Name: model.RootName}

	byCategory := make(map[string][]model.ClusterRecord)
	for _, c := range clusters {
		if c.Purity < minPurity {
			continue
		}
		cat := c.Category()
		byCategory[cat] = append(byCategory[cat], c)
	}

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]int)
	for _, name := range names {
		cat := &model.Node{
			ID:     model.CategoryNodeID(name),
			Kind:   model.KindCategory,
			Name:   name,
			Parent: root,
		}
		for _, rec := range byCategory[name] {
			cat.Children = append(cat.Children, clusterNode(rec, cat, rich, seen))
			cat.AggregateSize += rec.Size
		}
		root.Children = append(root.Children, cat)
	}

	debug.Log("BuildTree: threshold %.2f kept %d categories", minPurity, len(root.Children))
	return root
}

func clusterNode(rec model.ClusterRecord, parent *model.Node, rich BreakdownSource, seen map[string]int) *model.Node {
	id := model.ClusterNodeID(rec.ClusterID)
	// Duplicate cluster ids would collide in the view state.
	suffix := ""
	if n := seen[id]; n > 0 {
		suffix = "#" + strconv.Itoa(n)
	}
	seen[id]++
	id += suffix

	node := &model.Node{
		ID:        id,
		Kind:      model.KindCluster,
		Name:      model.ClusterName(rec.ClusterID),
		Parent:    parent,
		ClusterID: rec.ClusterID,
		Size:      rec.Size,
		Purity:    rec.Purity,
	}
	if rich == nil {
		return node
	}
	entries, _ := rich.Lookup(rec.ClusterID)
	for i, e := range entries {
		node.Children = append(node.Children, &model.Node{
			ID:         model.LeafNodeID(rec.ClusterID, i) + suffix,
			Kind:       model.KindLeaf,
			Name:       e.Name,
			Parent:     node,
			Percentage: e.Percentage,
			Count:      e.Count,
		})
	}
	return node
}

// CountClusters returns the number of cluster nodes under root.
func CountClusters(root *model.Node) int {
	n := 0
	model.Walk(root, func(node *model.Node) bool {
		if node.Kind == model.KindCluster {
			n++
			return false
		}
		return true
	})
	return n
}

// Categories returns the category nodes of root in display order.
func Categories(root *model.Node) []*model.Node {
	if root == nil {
		return nil
	}
	return root.Children
}
