// Package model defines the cluster records loaded from the pipeline
// artifacts and the semantic tree built over them.
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// UncategorizedName is used for records whose dominant_category is missing.
const UncategorizedName = "Uncategorized"

// ClusterRecord is one row of cluster_data.json.
type ClusterRecord struct {
	ClusterID        int     `json:"cluster_id"`
	DominantCategory string  `json:"dominant_category"`
	Size             int     `json:"size"`
	Purity           float64 `json:"purity"`
}

// UnmarshalJSON decodes a record leniently: numbers may arrive as JSON
// strings and missing fields decode to zero values.
func (c *ClusterRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ClusterID        any `json:"cluster_id"`
		DominantCategory any `json:"dominant_category"`
		Size             any `json:"size"`
		Purity           any `json:"purity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ClusterID = int(lenientFloat(raw.ClusterID))
	c.DominantCategory = lenientString(raw.DominantCategory)
	c.Size = int(lenientFloat(raw.Size))
	c.Purity = lenientFloat(raw.Purity)
	return nil
}

// Category returns the grouping key, substituting UncategorizedName for blanks.
func (c ClusterRecord) Category() string {
	if strings.TrimSpace(c.DominantCategory) == "" {
		return UncategorizedName
	}
	return c.DominantCategory
}

// BreakdownEntry is one sub-label share inside a cluster.
type BreakdownEntry struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// UnmarshalJSON decodes an entry with the same leniency as ClusterRecord.
func (b *BreakdownEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name       any `json:"name"`
		Percentage any `json:"percentage"`
		Count      any `json:"count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Name = lenientString(raw.Name)
	b.Percentage = lenientFloat(raw.Percentage)
	b.Count = int(lenientFloat(raw.Count))
	return nil
}

// RichCluster is the value stored per key in cluster_data_rich.json.
type RichCluster struct {
	Breakdown []BreakdownEntry `json:"breakdown"`
}

// RichIndex holds breakdown lists keyed by cluster id. The upstream file
// keys clusters inconsistently, so both the numeric and the raw string
// form are kept and Lookup tries each.
type RichIndex struct {
	byID  map[int][]BreakdownEntry
	byKey map[string][]BreakdownEntry
}

// NewRichIndex returns an empty index.
func NewRichIndex() *RichIndex {
	return &RichIndex{
		byID:  make(map[int][]BreakdownEntry),
		byKey: make(map[string][]BreakdownEntry),
	}
}

// Add registers entries under key. Keys that parse as a whole number are
// also reachable by their numeric id.
func (r *RichIndex) Add(key string, entries []BreakdownEntry) {
	r.byKey[key] = entries
	trimmed := strings.TrimSpace(key)
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && f == math.Trunc(f) {
		r.byID[int(f)] = entries
	}
}

// Lookup returns the breakdown for a cluster id, trying the numeric key
// first and the string form second.
func (r *RichIndex) Lookup(id int) ([]BreakdownEntry, bool) {
	if r == nil {
		return nil, false
	}
	if entries, ok := r.byID[id]; ok {
		return entries, true
	}
	entries, ok := r.byKey[strconv.Itoa(id)]
	return entries, ok
}

// Len returns the number of distinct keys.
func (r *RichIndex) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byKey)
}

func lenientFloat(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case json.Number:
		f, _ = x.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(x), 64)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func lenientString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
