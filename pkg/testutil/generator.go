// Package testutil provides fixture generators for cluster datasets.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/taxview/pkg/model"
)

// GeneratorConfig controls dataset generation.
type GeneratorConfig struct {
	Seed         int64    // Random seed for determinism (0 = use current time)
	Categories   []string // Category names to draw from (default: 6 product groups)
	BreakdownMax int      // Max breakdown entries per cluster (default: 5)
	// StringKeyEvery makes every Nth cluster's id a string in the JSON
	// output, mimicking inconsistent upstream keying. 0 disables.
	StringKeyEvery int
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:         42,
		Categories:   []string{"Apparel", "Beauty", "Electronics", "Garden", "Grocery", "Toys"},
		BreakdownMax: 5,
	}
}

// Generator creates cluster fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultConfig().Categories
	}
	if cfg.BreakdownMax <= 0 {
		cfg.BreakdownMax = 5
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator { return New(DefaultConfig()) }

// Clusters returns n records with ids 0..n-1, random categories, sizes in
// [1,500] and purities in [0,1] rounded to 2 decimals.
func (g *Generator) Clusters(n int) []model.ClusterRecord {
	out := make([]model.ClusterRecord, n)
	for i := range out {
		out[i] = model.ClusterRecord{
			ClusterID:        i,
			DominantCategory: g.cfg.Categories[g.rng.Intn(len(g.cfg.Categories))],
			Size:             1 + g.rng.Intn(500),
			Purity:           float64(g.rng.Intn(101)) / 100,
		}
	}
	return out
}

// Rich returns a breakdown index covering every other cluster. Percentages
// in each breakdown sum to at most 100.
func (g *Generator) Rich(clusters []model.ClusterRecord) map[string]model.RichCluster {
	out := make(map[string]model.RichCluster)
	for i, c := range clusters {
		if i%2 == 1 {
			continue
		}
		remaining := 100.0
		n := 1 + g.rng.Intn(g.cfg.BreakdownMax)
		var entries []model.BreakdownEntry
		for j := 0; j < n && remaining > 0; j++ {
			pct := float64(1 + g.rng.Intn(int(remaining)))
			remaining -= pct
			entries = append(entries, model.BreakdownEntry{
				Name:       fmt.Sprintf("%s / sub-%d", c.Category(), j),
				Percentage: pct,
				Count:      int(pct * float64(c.Size) / 100),
			})
		}
		out[strconv.Itoa(c.ClusterID)] = model.RichCluster{Breakdown: entries}
	}
	return out
}

// RichIndex converts a generated rich map into a model.RichIndex.
func RichIndex(rich map[string]model.RichCluster) *model.RichIndex {
	idx := model.NewRichIndex()
	for k, v := range rich {
		idx.Add(k, v.Breakdown)
	}
	return idx
}

// ScenarioClusters is the three-cluster example used throughout the tests:
// category A holds clusters 1 (0.95) and 2 (0.5), category B holds 3 (0.99).
func ScenarioClusters() []model.ClusterRecord {
	return []model.ClusterRecord{
		{ClusterID: 1, DominantCategory: "A", Size: 10, Purity: 0.95},
		{ClusterID: 2, DominantCategory: "A", Size: 5, Purity: 0.5},
		{ClusterID: 3, DominantCategory: "B", Size: 20, Purity: 0.99},
	}
}

// ScenarioRich gives cluster 1 a two-entry breakdown listed in ascending
// order so sorting is observable.
func ScenarioRich() *model.RichIndex {
	idx := model.NewRichIndex()
	idx.Add("1", []model.BreakdownEntry{
		{Name: "Sneakers", Percentage: 30, Count: 3},
		{Name: "Boots", Percentage: 70, Count: 7},
	})
	return idx
}

// ToClusterJSON encodes records the way the pipeline writes them.
func (g *Generator) ToClusterJSON(clusters []model.ClusterRecord) []byte {
	rows := make([]map[string]any, len(clusters))
	for i, c := range clusters {
		var id any = c.ClusterID
		if g.cfg.StringKeyEvery > 0 && i%g.cfg.StringKeyEvery == 0 {
			id = strconv.Itoa(c.ClusterID)
		}
		rows[i] = map[string]any{
			"cluster_id":        id,
			"dominant_category": c.DominantCategory,
			"size":              c.Size,
			"purity":            c.Purity,
		}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		panic(err)
	}
	return data
}

// ToRichJSON encodes a rich map.
func ToRichJSON(rich map[string]model.RichCluster) []byte {
	data, err := json.Marshal(rich)
	if err != nil {
		panic(err)
	}
	return data
}
