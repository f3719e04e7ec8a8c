package details

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/taxview/pkg/model"
	"github.com/vanderheijden86/taxview/pkg/taxonomy"
	"github.com/vanderheijden86/taxview/pkg/testutil"
)

func scenarioTree(rich *model.RichIndex) map[string]*model.Node {
	return model.Index(taxonomy.BuildTree(testutil.ScenarioClusters(), rich, 0))
}

func TestDescribe_Cluster(t *testing.T) {
	idx := scenarioTree(testutil.ScenarioRich())
	c := Describe(idx["cluster:1"])

	if c.Title != "Cluster #1" || c.Subtitle != "A" {
		t.Errorf("title/subtitle = %q/%q", c.Title, c.Subtitle)
	}
	if c.Fields[0].Value != "95.0%" || c.Fields[1].Value != "10" {
		t.Errorf("fields = %+v", c.Fields)
	}
	if len(c.Entries) != 2 || c.Entries[0].Name != "Boots" {
		t.Fatalf("entries should be sorted by percentage desc: %+v", c.Entries)
	}
	if c.Entries[0].Weight != 0.7 || c.Entries[1].Weight != 0.3 {
		t.Errorf("weights = %v, %v", c.Entries[0].Weight, c.Entries[1].Weight)
	}
	if c.Notice != "" {
		t.Errorf("unexpected notice %q", c.Notice)
	}
}

func TestDescribe_ClusterWithoutBreakdown(t *testing.T) {
	// Same as a failed optional load: an empty index.
	idx := scenarioTree(model.NewRichIndex())
	c := Describe(idx["cluster:1"])

	if c.Notice != NoBreakdown {
		t.Errorf("notice = %q, want %q", c.Notice, NoBreakdown)
	}
	if !strings.Contains(Markdown(c), NoBreakdown) {
		t.Errorf("markdown should carry the notice")
	}
}

func TestDescribe_Category(t *testing.T) {
	idx := scenarioTree(nil)
	c := Describe(idx["cat:A"])

	if c.Title != "A" || c.Subtitle != CategorySubtitle {
		t.Errorf("unexpected header %q/%q", c.Title, c.Subtitle)
	}
	if c.Fields[0].Value != "Contains 2 Clusters." {
		t.Errorf("cluster count field = %q", c.Fields[0].Value)
	}
}

func TestDescribe_PlaceholderAndLeaf(t *testing.T) {
	idx := scenarioTree(testutil.ScenarioRich())

	for name, n := range map[string]*model.Node{"nil": nil, "root": idx["root"]} {
		c := Describe(n)
		if !c.Empty || c.Notice != Placeholder {
			t.Errorf("%s: expected placeholder, got %+v", name, c)
		}
	}

	leaf := Describe(idx["leaf:1:1"])
	if leaf.Title != "Boots" || leaf.Notice != Placeholder {
		t.Errorf("leaf content = %+v", leaf)
	}
}

func TestWeightMonotonicAndClamped(t *testing.T) {
	prev := -1.0
	for pct := -20.0; pct <= 150; pct += 5 {
		w := Weight(pct)
		if w < 0 || w > 1 {
			t.Fatalf("Weight(%v) = %v out of range", pct, w)
		}
		if w < prev {
			t.Fatalf("Weight not monotonic at %v", pct)
		}
		prev = w
	}
}

func TestBar(t *testing.T) {
	if got := Bar(0.5, 10); got != "█████░░░░░" {
		t.Errorf("Bar(0.5,10) = %q", got)
	}
	if got := Bar(2, 4); got != "████" {
		t.Errorf("Bar should clamp, got %q", got)
	}
}

func TestPlainText(t *testing.T) {
	idx := scenarioTree(testutil.ScenarioRich())
	txt := PlainText(Describe(idx["cluster:1"]))

	for _, want := range []string{"Cluster #1", "Purity: 95.0%", BreakdownHeading, "Boots\t7\t70.0%"} {
		if !strings.Contains(txt, want) {
			t.Errorf("plain text missing %q:\n%s", want, txt)
		}
	}
}
