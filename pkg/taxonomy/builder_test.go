package taxonomy_test

import (
	"reflect"
	"sort"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/taxview/pkg/model"
	"github.com/vanderheijden86/taxview/pkg/taxonomy"
	"github.com/vanderheijden86/taxview/pkg/testutil"
)

func TestBuildTree_ThresholdScenario(t *testing.T) {
	root := taxonomy.BuildTree(testutil.ScenarioClusters(), nil, 0.80)

	testutil.AssertCategoryOrder(t, root, "A", "B")
	a, b := root.Children[0], root.Children[1]
	if len(a.Children) != 1 || a.Children[0].ClusterID != 1 {
		t.Errorf("category A should hold only cluster 1, got %v", testutil.ClusterIDs(root))
	}
	if len(b.Children) != 1 || b.Children[0].ClusterID != 3 {
		t.Errorf("category B should hold only cluster 3")
	}
	if a.AggregateSize != 10 {
		t.Errorf("A aggregate size = %d, want 10", a.AggregateSize)
	}
}

func TestBuildTree_ZeroThresholdKeepsEverything(t *testing.T) {
	root := taxonomy.BuildTree(testutil.ScenarioClusters(), nil, 0)

	if got := taxonomy.CountClusters(root); got != 3 {
		t.Fatalf("expected 3 clusters, got %d", got)
	}
	if got := root.Children[0].AggregateSize; got != 15 {
		t.Errorf("A aggregate size = %d, want 15", got)
	}
	if ids := testutil.ClusterIDs(root); !reflect.DeepEqual(ids, []int{1, 2, 3}) {
		t.Errorf("clusters should keep source order, got %v", ids)
	}
}

func TestBuildTree_DropsEmptyCategories(t *testing.T) {
	root := taxonomy.BuildTree(testutil.ScenarioClusters(), nil, 0.97)
	testutil.AssertCategoryOrder(t, root, "B")
}

func TestBuildTree_Structure(t *testing.T) {
	root := taxonomy.BuildTree(testutil.ScenarioClusters(), testutil.ScenarioRich(), 0)

	if root.ID != model.RootID || root.Kind != model.KindRoot || root.Name != model.RootName {
		t.Fatalf("unexpected root %+v", root)
	}

	c1 := root.Children[0].Children[0]
	if c1.ID != "cluster:1" || c1.Name != "Cluster 1" || c1.Parent != root.Children[0] {
		t.Errorf("unexpected cluster node %+v", c1)
	}
	if len(c1.Children) != 2 {
		t.Fatalf("cluster 1 should have 2 leaves, got %d", len(c1.Children))
	}
	leaf := c1.Children[0]
	if leaf.Kind != model.KindLeaf || leaf.ID != "leaf:1:0" || leaf.Name != "Sneakers" || leaf.Count != 3 {
		t.Errorf("leaves should keep breakdown order, got %+v", leaf)
	}
	if root.Children[0].Children[1].HasChildren() {
		t.Errorf("cluster 2 has no breakdown and should have no children")
	}
}

func TestBuildTree_MissingCategoryAndDuplicateIDs(t *testing.T) {
	clusters := []model.ClusterRecord{
		{ClusterID: 7, Size: 1, Purity: 1},
		{ClusterID: 7, DominantCategory: "Z", Size: 1, Purity: 1},
		{ClusterID: 7, DominantCategory: "Z", Size: 1, Purity: 1},
	}
	root := taxonomy.BuildTree(clusters, nil, 0)

	testutil.AssertCategoryOrder(t, root, model.UncategorizedName, "Z")

	ids := make(map[string]bool)
	model.Walk(root, func(n *model.Node) bool {
		if ids[n.ID] {
			t.Errorf("duplicate node id %s", n.ID)
		}
		ids[n.ID] = true
		return true
	})
}

func TestBuildTree_RichStringKeyLookup(t *testing.T) {
	idx := model.NewRichIndex()
	idx.Add(" 3 ", []model.BreakdownEntry{{Name: "Laptops", Percentage: 100, Count: 20}})

	root := taxonomy.BuildTree(testutil.ScenarioClusters(), idx, 0)
	c3 := root.Children[1].Children[0]
	if len(c3.Children) != 1 || c3.Children[0].Name != "Laptops" {
		t.Errorf("padded numeric key should resolve to cluster 3")
	}
}

func clusterGen() *rapid.Generator[[]model.ClusterRecord] {
	return rapid.Custom(func(t *rapid.T) []model.ClusterRecord {
		n := rapid.IntRange(0, 40).Draw(t, "n")
		out := make([]model.ClusterRecord, n)
		for i := range out {
			out[i] = model.ClusterRecord{
				ClusterID:        i,
				DominantCategory: rapid.SampledFrom([]string{"A", "B", "C", "D", ""}).Draw(t, "cat"),
				Size:             rapid.IntRange(0, 1000).Draw(t, "size"),
				Purity:           rapid.Float64Range(0, 1).Draw(t, "purity"),
			}
		}
		return out
	})
}

func TestProperty_InclusionIffAboveThreshold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clusters := clusterGen().Draw(t, "clusters")
		threshold := rapid.Float64Range(0, 1).Draw(t, "threshold")

		root := taxonomy.BuildTree(clusters, nil, threshold)

		kept := make(map[int]bool)
		for _, id := range testutil.ClusterIDs(root) {
			kept[id] = true
		}
		for _, c := range clusters {
			if want := c.Purity >= threshold; kept[c.ClusterID] != want {
				t.Fatalf("cluster %d purity %v threshold %v: kept=%v", c.ClusterID, c.Purity, threshold, kept[c.ClusterID])
			}
		}
		for _, cat := range root.Children {
			if len(cat.Children) == 0 {
				t.Fatalf("category %q has no clusters", cat.Name)
			}
		}
		names := testutil.CategoryNames(root)
		if !sort.StringsAreSorted(names) {
			t.Fatalf("categories not sorted: %v", names)
		}
	})
}

func TestProperty_MonotonicClusterCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clusters := clusterGen().Draw(t, "clusters")
		lo := rapid.Float64Range(0, 1).Draw(t, "lo")
		hi := rapid.Float64Range(lo, 1).Draw(t, "hi")

		nLo := taxonomy.CountClusters(taxonomy.BuildTree(clusters, nil, lo))
		nHi := taxonomy.CountClusters(taxonomy.BuildTree(clusters, nil, hi))
		if nHi > nLo {
			t.Fatalf("raising threshold %v -> %v increased clusters %d -> %d", lo, hi, nLo, nHi)
		}
	})
}

func TestProperty_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clusters := clusterGen().Draw(t, "clusters")
		threshold := rapid.Float64Range(0, 1).Draw(t, "threshold")

		a := testutil.Outline(taxonomy.BuildTree(clusters, nil, threshold))
		b := testutil.Outline(taxonomy.BuildTree(clusters, nil, threshold))
		if a != b {
			t.Fatalf("BuildTree not deterministic:\n%s\nvs\n%s", a, b)
		}
	})
}

func TestBuildTree_GeneratedDataset(t *testing.T) {
	g := testutil.NewDefault()
	clusters := g.Clusters(500)
	rich := testutil.RichIndex(g.Rich(clusters))

	root := taxonomy.BuildTree(clusters, rich, 0.5)
	total := 0
	for _, cat := range root.Children {
		sum := 0
		for _, c := range cat.Children {
			sum += c.Size
		}
		if sum != cat.AggregateSize {
			t.Errorf("%s aggregate %d, children sum %d", cat.Name, cat.AggregateSize, sum)
		}
		total += len(cat.Children)
	}
	if total != taxonomy.CountClusters(root) {
		t.Errorf("CountClusters disagrees with category children")
	}
}
