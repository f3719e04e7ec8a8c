package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/taxview/pkg/model"
)

// WriteDataset writes cluster_data.json (and cluster_data_rich.json when
// rich is non-nil) into dir and returns both paths. richPath is empty when
// rich is nil.
func WriteDataset(t *testing.T, dir string, clusters, rich []byte) (dataPath, richPath string) {
	t.Helper()
	dataPath = filepath.Join(dir, "cluster_data.json")
	if err := os.WriteFile(dataPath, clusters, 0o644); err != nil {
		t.Fatalf("failed to write cluster data: %v", err)
	}
	if rich != nil {
		richPath = filepath.Join(dir, "cluster_data_rich.json")
		if err := os.WriteFile(richPath, rich, 0o644); err != nil {
			t.Fatalf("failed to write rich data: %v", err)
		}
	}
	return dataPath, richPath
}

// CategoryNames lists root's category names in order.
func CategoryNames(root *model.Node) []string {
	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	return names
}

// ClusterIDs lists every cluster id in tree order.
func ClusterIDs(root *model.Node) []int {
	var ids []int
	model.Walk(root, func(n *model.Node) bool {
		if n.Kind == model.KindCluster {
			ids = append(ids, n.ClusterID)
			return false
		}
		return true
	})
	return ids
}

// Outline renders the tree as an indented "kind name" listing, handy for
// comparing whole trees in one assertion.
func Outline(root *model.Node) string {
	var sb strings.Builder
	model.Walk(root, func(n *model.Node) bool {
		sb.WriteString(strings.Repeat("  ", n.Depth()))
		sb.WriteString(n.Kind.String())
		sb.WriteByte(' ')
		sb.WriteString(n.ID)
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}

// AssertCategoryOrder fails unless root's categories are exactly want.
func AssertCategoryOrder(t *testing.T, root *model.Node, want ...string) {
	t.Helper()
	got := CategoryNames(root)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("categories = %v, want %v", got, want)
	}
}
