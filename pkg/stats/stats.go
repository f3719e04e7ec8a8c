// Package stats computes the stats bar figures and the purity histogram.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/taxview/pkg/model"
)

// Bins is the number of equal-width purity buckets over [0,1].
const Bins = 10

// Summary is recomputed on every tree rebuild.
type Summary struct {
	Categories      int
	VisibleClusters int
	VisibleSize     int
	// MeanPurity is taken over all loaded clusters, not the filtered view.
	MeanPurity    float64
	MinPurity     float64
	MaxPurity     float64
	TotalClusters int
}

// Summarize combines the unfiltered records with the current tree.
func Summarize(all []model.ClusterRecord, root *model.Node) Summary {
	s := Summary{TotalClusters: len(all)}
	if root != nil {
		s.Categories = len(root.Children)
		sizes := make([]float64, 0, len(root.Children))
		for _, cat := range root.Children {
			s.VisibleClusters += len(cat.Children)
			sizes = append(sizes, float64(cat.AggregateSize))
		}
		s.VisibleSize = int(floats.Sum(sizes))
	}
	if len(all) == 0 {
		return s
	}
	p := purities(all)
	s.MeanPurity = stat.Mean(p, nil)
	s.MinPurity = floats.Min(p)
	s.MaxPurity = floats.Max(p)
	return s
}

// Histogram counts clusters per purity decile.
type Histogram [Bins]int

// PurityHistogram buckets every record by purity. Bucket i covers
// [i/10, (i+1)/10); a purity of exactly 1 lands in the last bucket and
// out-of-range values are clamped.
func PurityHistogram(all []model.ClusterRecord) Histogram {
	var h Histogram
	if len(all) == 0 {
		return h
	}
	x := purities(all)
	for i, v := range x {
		x[i] = math.Min(1, math.Max(0, v))
	}
	sort.Float64s(x)

	dividers := make([]float64, Bins+1)
	for i := 0; i < Bins; i++ {
		dividers[i] = float64(i) / Bins
	}
	dividers[Bins] = math.Nextafter(1, 2)

	counts := stat.Histogram(nil, dividers, x, nil)
	for i, c := range counts {
		h[i] = int(c)
	}
	return h
}

// Max returns the largest bucket count.
func (h Histogram) Max() int {
	m := 0
	for _, c := range h {
		m = max(m, c)
	}
	return m
}

// Total returns the number of counted clusters.
func (h Histogram) Total() int {
	t := 0
	for _, c := range h {
		t += c
	}
	return t
}

// Label returns the percent range of bucket i, e.g. "90-100".
func Label(i int) string {
	return fmt.Sprintf("%d-%d", i*10, (i+1)*10)
}

// HighPurity reports whether bucket i is in the highlighted top range.
func HighPurity(i int) bool { return i > 7 }

func purities(all []model.ClusterRecord) []float64 {
	p := make([]float64, len(all))
	for i, c := range all {
		p[i] = c.Purity
	}
	return p
}
