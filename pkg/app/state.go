// Package app holds the single application-state object shared by the TUI
// and the headless CLI. It owns the dataset, the threshold-filtered tree,
// the view state, the search index and the details selection. It is not
// safe for concurrent use; the bubbletea Update loop is its only writer.
package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/vanderheijden86/taxview/pkg/debug"
	"github.com/vanderheijden86/taxview/pkg/details"
	"github.com/vanderheijden86/taxview/pkg/export"
	"github.com/vanderheijden86/taxview/pkg/layout"
	"github.com/vanderheijden86/taxview/pkg/loader"
	"github.com/vanderheijden86/taxview/pkg/metrics"
	"github.com/vanderheijden86/taxview/pkg/model"
	"github.com/vanderheijden86/taxview/pkg/search"
	"github.com/vanderheijden86/taxview/pkg/stats"
	"github.com/vanderheijden86/taxview/pkg/taxonomy"
)

// Threshold bounds for the purity slider.
const (
	MinThreshold = 0
	MaxThreshold = 100
)

// Default viewport used until the UI reports its size.
const (
	DefaultWidth  = 1600
	DefaultHeight = 900
)

// Options configures a new State.
type Options struct {
	Threshold    int
	Limits       search.Limits
	Width        float64
	Height       float64
	ExportDir    string
	ExportFormat string
	DetailsOpen  bool
	// Now is used for export filenames and animation; defaults to time.Now.
	Now func() time.Time
}

// State is the controller for one explorer session.
type State struct {
	dataset   *loader.Dataset
	threshold int
	root      *model.Node
	view      *layout.View
	index     *search.Index
	limits    search.Limits
	summary   stats.Summary
	histogram stats.Histogram

	selected    string
	detailsOpen bool

	exportDir    string
	exportFormat string
	lastExport   string
	now          func() time.Time

	reloadSeq uint64
}

// New builds the initial tree for ds at opts.Threshold and renders it.
func New(ds *loader.Dataset, opts Options) *State {
	if ds == nil {
		ds = &loader.Dataset{}
	}
	if ds.Rich == nil {
		ds.Rich = model.NewRichIndex()
	}
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &State{
		dataset:      ds,
		threshold:    clampThreshold(opts.Threshold),
		view:         layout.New(w, h),
		limits:       opts.Limits,
		detailsOpen:  opts.DetailsOpen,
		exportDir:    opts.ExportDir,
		exportFormat: opts.ExportFormat,
		now:          now,
	}
	s.view.SetClock(now)
	s.histogram = stats.PurityHistogram(ds.Clusters)
	s.rebuild()
	return s
}

func clampThreshold(t int) int {
	if t < MinThreshold {
		return MinThreshold
	}
	if t > MaxThreshold {
		return MaxThreshold
	}
	return t
}

// rebuild regenerates the tree from scratch at the current threshold. All
// expansion state is discarded.
func (s *State) rebuild() layout.RenderResult {
	start := time.Now()
	s.root = taxonomy.BuildTree(s.dataset.Clusters, s.dataset.Rich, s.MinPurity())
	metrics.TreeBuild.Record(time.Since(start))

	s.view.Reset()
	res := s.view.Render(s.root)
	s.index = search.NewIndex(s.root, s.limits)
	s.summary = stats.Summarize(s.dataset.Clusters, s.root)

	if _, ok := s.view.Semantic(s.selected); !ok {
		s.selected = ""
	}
	debug.Log("app: rebuilt at threshold %d: %d categories, %d clusters",
		s.threshold, s.summary.Categories, s.summary.VisibleClusters)
	return res
}

// Dataset returns the loaded dataset.
func (s *State) Dataset() *loader.Dataset { return s.dataset }

// Threshold returns the slider value in [0,100].
func (s *State) Threshold() int { return s.threshold }

// MinPurity is the threshold as a fraction.
func (s *State) MinPurity() float64 { return float64(s.threshold) / 100 }

// SetThreshold clamps t, rebuilds the tree and reports whether the value
// changed. An unchanged value does not rebuild.
func (s *State) SetThreshold(t int) (layout.RenderResult, bool) {
	t = clampThreshold(t)
	if t == s.threshold {
		return layout.RenderResult{}, false
	}
	s.threshold = t
	return s.rebuild(), true
}

// AdjustThreshold moves the threshold by delta.
func (s *State) AdjustThreshold(delta int) (layout.RenderResult, bool) {
	return s.SetThreshold(s.threshold + delta)
}

// Tree returns the current semantic tree.
func (s *State) Tree() *model.Node { return s.root }

// View returns the hierarchy view.
func (s *State) View() *layout.View { return s.view }

// Summary returns the stats for the current tree.
func (s *State) Summary() stats.Summary { return s.summary }

// Histogram returns the purity histogram computed at load.
func (s *State) Histogram() stats.Histogram { return s.histogram }

// Warnings returns the degraded-load warnings of the dataset.
func (s *State) Warnings() []loader.DegradedLoadWarning { return s.dataset.Warnings }

// SetViewport resizes the diagram viewport.
func (s *State) SetViewport(width, height float64) {
	s.view.SetViewport(width, height)
}

// Click selects the node for the details panel, opens the panel and
// toggles the node's children. Unknown ids are a no-op.
func (s *State) Click(id string) (layout.RenderResult, bool) {
	if _, ok := s.view.Semantic(id); !ok {
		return layout.RenderResult{}, false
	}
	s.selected = id
	s.detailsOpen = true
	res, _ := s.view.Toggle(id)
	return res, true
}

// Suggest returns search suggestions for term.
func (s *State) Suggest(term string) []search.Suggestion {
	return s.index.Suggest(term)
}

// Select expands the path to ref, focuses it and selects it for the
// details panel. A ref not present in the current tree returns
// search.ErrNoSearchMatch and leaves the state untouched.
func (s *State) Select(ref string) (layout.RenderResult, error) {
	if _, ok := s.view.Semantic(ref); !ok {
		return layout.RenderResult{}, fmt.Errorf("%w: %s", search.ErrNoSearchMatch, ref)
	}
	res, _ := s.view.ExpandPath(ref)
	s.view.Focus(ref)
	s.selected = ref
	s.detailsOpen = true
	return res, nil
}

// SelectFirst selects the best suggestion for term, like pressing enter
// in the search box without choosing one.
func (s *State) SelectFirst(term string) (search.Suggestion, error) {
	sugg := s.Suggest(term)
	if len(sugg) == 0 {
		return search.Suggestion{}, search.ErrNoSearchMatch
	}
	if _, err := s.Select(sugg[0].Ref); err != nil {
		return search.Suggestion{}, err
	}
	return sugg[0], nil
}

// Selected returns the node shown in the details panel, or nil.
func (s *State) Selected() *model.Node {
	n, _ := s.view.Semantic(s.selected)
	return n
}

// SelectedID returns the selected node id, or "".
func (s *State) SelectedID() string { return s.selected }

// Details describes the selected node.
func (s *State) Details() details.Content {
	return details.Describe(s.Selected())
}

// DetailsOpen reports whether the details panel is shown.
func (s *State) DetailsOpen() bool { return s.detailsOpen }

// ToggleDetails shows or hides the details panel.
func (s *State) ToggleDetails() bool {
	s.detailsOpen = !s.detailsOpen
	return s.detailsOpen
}

// ZoomIn scales the diagram up.
func (s *State) ZoomIn() layout.Transform { return s.view.ZoomIn() }

// ZoomOut scales the diagram down.
func (s *State) ZoomOut() layout.Transform { return s.view.ZoomOut() }

// ZoomFit resets the transform.
func (s *State) ZoomFit() layout.Transform { return s.view.ZoomFit() }

// ExportOptions captures the current view for export. An empty format
// falls back to the configured one, an empty path to the export dir.
func (s *State) ExportOptions(format, path string) export.Options {
	if format == "" && path == "" {
		format = s.exportFormat
	}
	return export.Options{
		Path:   path,
		Format: format,
		Dir:    s.exportDir,
		Scene:  export.SceneFromView(s.view),
		Header: s.exportHeader(),
	}
}

func (s *State) exportHeader() []string {
	lines := []string{
		fmt.Sprintf("%s  purity >= %d%%  %d categories, %d clusters",
			model.RootName, s.threshold, s.summary.Categories, s.summary.VisibleClusters),
	}
	if s.dataset.DataHash != "" {
		lines = append(lines, fmt.Sprintf("data %s  exported %s",
			s.dataset.DataHash, s.now().Format(time.RFC3339)))
	}
	return lines
}

// Export writes the current view and records the written path.
func (s *State) Export(format, path string) (string, error) {
	out, err := export.Save(s.ExportOptions(format, path))
	if err != nil {
		return "", err
	}
	if abs, aerr := filepath.Abs(out); aerr == nil {
		out = abs
	}
	s.lastExport = out
	return out, nil
}

// LastExport returns the path of the last successful export.
func (s *State) LastExport() string { return s.lastExport }

// NextReloadSeq reserves a sequence number for a reload about to start.
func (s *State) NextReloadSeq() uint64 {
	s.reloadSeq++
	return s.reloadSeq
}

// Reload swaps in a freshly loaded dataset. Results carrying a sequence
// number older than the latest reserved one are stale and ignored.
func (s *State) Reload(ds *loader.Dataset, seq uint64) bool {
	if ds == nil || seq < s.reloadSeq {
		debug.Log("app: dropping stale reload %d (latest %d)", seq, s.reloadSeq)
		return false
	}
	if ds.Rich == nil {
		ds.Rich = model.NewRichIndex()
	}
	s.dataset = ds
	s.histogram = stats.PurityHistogram(ds.Clusters)
	s.rebuild()
	return true
}
