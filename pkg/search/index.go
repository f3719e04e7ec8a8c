// Package search indexes the categories and clusters of the current tree
// for the suggestion box.
package search

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"

	"github.com/vanderheijden86/taxview/pkg/metrics"
	"github.com/vanderheijden86/taxview/pkg/model"
)

// MinTermLength is the shortest trimmed term that produces suggestions.
const MinTermLength = 2

// ErrNoSearchMatch reports that a reference no longer resolves in the
// current tree, usually because the threshold filtered it out.
var ErrNoSearchMatch = errors.New("no match")

// Limits caps the suggestion list.
type Limits struct {
	Categories int
	Clusters   int
	Total      int
}

// DefaultLimits returns the standard caps: 5 categories, 8 clusters, 10 overall.
func DefaultLimits() Limits {
	return Limits{Categories: 5, Clusters: 8, Total: 10}
}

// Suggestion is one entry of the suggestion list. Ref is the node id.
type Suggestion struct {
	Kind    model.Kind
	Label   string
	Ref     string
	Context string // parent category for clusters
	Score   int
}

type entry struct {
	kind    model.Kind
	ref     string
	label   string
	lower   string
	idText  string
	context string
	order   int
}

// Index is built from one tree and discarded on the next rebuild.
type Index struct {
	categories []entry
	clusters   []entry
	limits     Limits

	mu   sync.Mutex
	slab *util.Slab
}

var initOnce sync.Once

// NewIndex scans root once. Non-positive limits fall back to DefaultLimits.
func NewIndex(root *model.Node, limits Limits) *Index {
	initOnce.Do(func() { algo.Init("default") })

	def := DefaultLimits()
	if limits.Categories <= 0 {
		limits.Categories = def.Categories
	}
	if limits.Clusters <= 0 {
		limits.Clusters = def.Clusters
	}
	if limits.Total <= 0 {
		limits.Total = def.Total
	}
	ix := &Index{limits: limits, slab: util.MakeSlab(100*1024, 2048)}
	model.Walk(root, func(n *model.Node) bool {
		switch n.Kind {
		case model.KindCategory:
			ix.categories = append(ix.categories, entry{
				kind:  n.Kind,
				ref:   n.ID,
				label: n.Name,
				lower: strings.ToLower(n.Name),
				order: len(ix.categories),
			})
		case model.KindCluster:
			ctx := ""
			if n.Parent != nil {
				ctx = n.Parent.Name
			}
			ix.clusters = append(ix.clusters, entry{
				kind:    n.Kind,
				ref:     n.ID,
				label:   n.Name,
				lower:   strings.ToLower(n.Name),
				idText:  strconv.Itoa(n.ClusterID),
				context: ctx,
				order:   len(ix.clusters),
			})
			return false
		}
		return true
	})
	return ix
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return len(ix.categories) + len(ix.clusters) }

// Limits returns the caps in effect.
func (ix *Index) Limits() Limits { return ix.limits }

// Suggest returns case-insensitive substring matches for term: categories
// first, then clusters (matched on display name or numeric id), each kind
// ranked by match score and then source order. Terms shorter than
// MinTermLength yield nil.
func (ix *Index) Suggest(term string) []Suggestion {
	defer metrics.Timer(metrics.SearchSuggest)()

	needle := strings.ToLower(strings.TrimSpace(term))
	if len([]rune(needle)) < MinTermLength {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	pattern := []rune(needle)
	cats := ix.match(ix.categories, needle, pattern, ix.limits.Categories)
	clus := ix.match(ix.clusters, needle, pattern, ix.limits.Clusters)

	out := append(cats, clus...)
	if len(out) > ix.limits.Total {
		out = out[:ix.limits.Total]
	}
	return out
}

func (ix *Index) match(entries []entry, needle string, pattern []rune, limit int) []Suggestion {
	type scored struct {
		e     entry
		score int
	}
	var hits []scored
	for _, e := range entries {
		inLabel := strings.Contains(e.lower, needle)
		inID := e.idText != "" && strings.Contains(e.idText, needle)
		if !inLabel && !inID {
			continue
		}
		score := 0
		if inLabel {
			score = ix.score(e.label, pattern)
		}
		if inID {
			score = max(score, ix.score(e.idText, pattern))
		}
		hits = append(hits, scored{e: e, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].e.order < hits[j].e.order
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]Suggestion, len(hits))
	for i, h := range hits {
		out[i] = Suggestion{
			Kind:    h.e.kind,
			Label:   h.e.label,
			Ref:     h.e.ref,
			Context: h.e.context,
			Score:   h.score,
		}
	}
	return out
}

// score ranks an exact substring hit with fzf's scoring, which rewards
// matches at word boundaries and the start of the text.
func (ix *Index) score(text string, pattern []rune) int {
	chars := util.ToChars([]byte(text))
	res, _ := algo.ExactMatchNaive(false, false, true, &chars, pattern, false, ix.slab)
	if res.Start < 0 {
		return 0
	}
	return res.Score
}
