// Package ui is the bubbletea program of the explorer: the tree pane, the
// details pane, the stats bar and the search box, all driven by app.State.
package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/taxview/pkg/app"
	"github.com/vanderheijden86/taxview/pkg/debug"
	"github.com/vanderheijden86/taxview/pkg/details"
	"github.com/vanderheijden86/taxview/pkg/export"
	"github.com/vanderheijden86/taxview/pkg/loader"
	"github.com/vanderheijden86/taxview/pkg/metrics"
	"github.com/vanderheijden86/taxview/pkg/model"
	"github.com/vanderheijden86/taxview/pkg/search"
	"github.com/vanderheijden86/taxview/pkg/stats"
	"github.com/vanderheijden86/taxview/pkg/watcher"
)

// Layout thresholds, in terminal cells.
const (
	MinDetailPaneWidth = 32
	SplitViewThreshold = 80
	chromeLines        = 3 // header, stats bar, footer
)

// Model is the bubbletea model. It owns the app.State exclusively.
type Model struct {
	state *app.State
	theme Theme
	keys  keyMap

	md      *MarkdownRenderer
	details viewport.Model

	search      textinput.Model
	searching   bool
	suggestions []search.Suggestion
	suggCursor  int

	cursor string // node id under the tree cursor
	offset int    // first visible tree row

	width  int
	height int

	watcher  *watcher.Watcher
	loadOpts loader.Options

	statusMsg     string
	statusIsError bool
	statusSeq     int
	lastExport    string

	now func() time.Time
}

// NewModel creates the TUI model around a prepared state.
func NewModel(state *app.State) Model {
	ti := textinput.New()
	ti.Placeholder = "category or cluster (min 2 chars)"
	ti.Prompt = "/ "
	ti.CharLimit = 80
	ti.Width = 40

	m := Model{
		state:   state,
		theme:   DefaultTheme(lipgloss.DefaultRenderer()),
		keys:    defaultKeyMap(),
		md:      NewMarkdownRenderer(40),
		details: viewport.New(40, 10),
		search:  ti,
		cursor:  model.RootID,
		width:   120,
		height:  40,
		now:     time.Now,
	}
	if ws := state.Warnings(); len(ws) > 0 {
		m.statusMsg = ws[0].String()
		m.statusIsError = true
	}
	m.resize()
	m.refreshDetails()
	return m
}

// WithWatcher enables reloads when the artifacts change on disk.
func (m Model) WithWatcher(w *watcher.Watcher, opts loader.Options) Model {
	m.watcher = w
	m.loadOpts = opts
	return m
}

// WithClock replaces the animation clock. Use the same clock as the
// app.State so frames line up with transitions.
func (m Model) WithClock(now func() time.Time) Model {
	if now != nil {
		m.now = now
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.watcher != nil {
		return WatchFileCmd(m.watcher)
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refreshDetails()
		m.ensureCursorVisible()
		return m, nil

	case animTickMsg:
		if m.state.View().Animating(m.now()) {
			return m, animTickCmd()
		}
		return m, nil

	case FileChangedMsg:
		seq := m.state.NextReloadSeq()
		debug.Log("ui: artifacts changed, reload %d", seq)
		cmds := []tea.Cmd{ReloadCmd(m.loadOpts, seq)}
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case ReloadedMsg:
		if msg.Err != nil {
			cmd := m.setStatus(fmt.Sprintf("reload failed: %v", msg.Err), true)
			return m, cmd
		}
		if !m.state.Reload(msg.Dataset, msg.Seq) {
			return m, nil
		}
		m.afterRebuild()
		status := fmt.Sprintf("Reloaded %d clusters", len(msg.Dataset.Clusters))
		if msg.Dataset.DataHash != "" {
			status += " (" + msg.Dataset.DataHash + ")"
		}
		if len(msg.Dataset.Warnings) > 0 {
			cmd := m.setStatus(msg.Dataset.Warnings[0].String(), true)
			return m, cmd
		}
		cmd := m.setStatus(status, false)
		return m, cmd

	case ExportDoneMsg:
		if msg.Err != nil {
			cmd := m.setStatus(fmt.Sprintf("export failed: %v", msg.Err), true)
			return m, cmd
		}
		m.lastExport = msg.Path
		cmd := m.setStatus("Exported "+msg.Path, false)
		return m, cmd

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.statusMsg = ""
			m.statusIsError = false
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.ThresholdDown):
		return m.adjustThreshold(-1)
	case key.Matches(msg, k.ThresholdUp):
		return m.adjustThreshold(1)
	case key.Matches(msg, k.ThresholdDownFast):
		return m.adjustThreshold(-10)
	case key.Matches(msg, k.ThresholdUpFast):
		return m.adjustThreshold(10)

	case key.Matches(msg, k.Search):
		m.searching = true
		m.search.SetValue("")
		m.suggestions = nil
		m.suggCursor = 0
		cmd := m.search.Focus()
		return m, cmd

	case key.Matches(msg, k.Up):
		m.moveCursor(-1)
	case key.Matches(msg, k.Down):
		m.moveCursor(1)
	case key.Matches(msg, k.PageUp):
		m.details.HalfViewUp()
	case key.Matches(msg, k.PageDown):
		m.details.HalfViewDown()

	case key.Matches(msg, k.Toggle):
		if _, ok := m.state.Click(m.cursor); ok {
			m.resize()
			m.refreshDetails()
			m.ensureCursorVisible()
			return m, animTickCmd()
		}

	case key.Matches(msg, k.ZoomIn):
		m.state.ZoomIn()
	case key.Matches(msg, k.ZoomOut):
		m.state.ZoomOut()
	case key.Matches(msg, k.ZoomFit):
		m.state.ZoomFit()
		m.state.View().ClearHighlight()

	case key.Matches(msg, k.ExportPNG):
		cmd := m.startExport(export.FormatPNG)
		return m, cmd
	case key.Matches(msg, k.ExportSVG):
		cmd := m.startExport(export.FormatSVG)
		return m, cmd

	case key.Matches(msg, k.Details):
		m.state.ToggleDetails()
		m.resize()
		m.refreshDetails()

	case key.Matches(msg, k.Copy):
		text := details.PlainText(m.state.Details())
		if err := clipboard.WriteAll(text); err != nil {
			cmd := m.setStatus(fmt.Sprintf("clipboard: %v", err), true)
			return m, cmd
		}
		cmd := m.setStatus("Copied details to clipboard", false)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.closeSearch()
		return m, nil

	case "up", "ctrl+p":
		if m.suggCursor > 0 {
			m.suggCursor--
		}
		return m, nil

	case "down", "ctrl+n", "tab":
		if m.suggCursor < len(m.suggestions)-1 {
			m.suggCursor++
		}
		return m, nil

	case "enter":
		if len(m.suggestions) == 0 {
			cmd := m.setStatus(fmt.Sprintf("%s for %q", search.ErrNoSearchMatch, strings.TrimSpace(m.search.Value())), true)
			return m, cmd
		}
		ref := m.suggestions[m.suggCursor].Ref
		m.closeSearch()
		return m.selectRef(ref)
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.suggestions = m.state.Suggest(m.search.Value())
	if m.suggCursor >= len(m.suggestions) {
		m.suggCursor = 0
	}
	return m, cmd
}

func (m *Model) closeSearch() {
	m.searching = false
	m.search.Blur()
	m.suggestions = nil
	m.suggCursor = 0
}

// selectRef expands to ref, focuses it and moves the cursor onto it.
func (m Model) selectRef(ref string) (tea.Model, tea.Cmd) {
	if _, err := m.state.Select(ref); err != nil {
		if errors.Is(err, search.ErrNoSearchMatch) {
			cmd := m.setStatus("no match", true)
			return m, cmd
		}
		cmd := m.setStatus(err.Error(), true)
		return m, cmd
	}
	m.cursor = ref
	m.resize()
	m.refreshDetails()
	m.centerOn(ref)
	return m, animTickCmd()
}

func (m Model) adjustThreshold(delta int) (tea.Model, tea.Cmd) {
	if _, changed := m.state.AdjustThreshold(delta); !changed {
		return m, nil
	}
	m.afterRebuild()
	return m, animTickCmd()
}

// afterRebuild resets cursor state after the tree was rebuilt.
func (m *Model) afterRebuild() {
	m.cursor = model.RootID
	m.offset = 0
	if m.searching {
		m.suggestions = m.state.Suggest(m.search.Value())
		m.suggCursor = 0
	}
	m.refreshDetails()
}

func (m *Model) startExport(f export.Format) tea.Cmd {
	opts := m.state.ExportOptions(string(f), "")
	if len(opts.Scene.Nodes) == 0 {
		return m.setStatus(export.ErrNothingToExport.Error(), true)
	}
	m.statusMsg = fmt.Sprintf("Exporting %s…", f)
	m.statusIsError = false
	return ExportCmd(opts)
}

// setStatus shows msg in the footer and schedules its expiry.
func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.statusMsg = msg
	m.statusIsError = isErr
	return clearStatusCmd(m.statusSeq)
}

func (m *Model) moveCursor(delta int) {
	visible := m.state.View().Visible()
	if len(visible) == 0 {
		return
	}
	idx := m.state.View().Row(m.cursor)
	if idx < 0 {
		idx = 0
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(visible) {
		idx = len(visible) - 1
	}
	m.cursor = visible[idx]
	m.ensureCursorVisible()
}

// cursorID returns the cursor node, falling back to the root when the
// cursor node is hidden.
func (m Model) cursorID() string {
	if m.state.View().IsVisible(m.cursor) {
		return m.cursor
	}
	return model.RootID
}

func (m *Model) ensureCursorVisible() {
	m.cursor = m.cursorID()
	idx := m.state.View().Row(m.cursor)
	h := m.treeHeight()
	if idx < 0 || h <= 0 {
		m.offset = 0
		return
	}
	if idx < m.offset {
		m.offset = idx
	}
	if idx >= m.offset+h {
		m.offset = idx - h + 1
	}
}

func (m *Model) centerOn(id string) {
	idx := m.state.View().Row(id)
	if idx < 0 {
		return
	}
	m.offset = idx - m.treeHeight()/2
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) bodyHeight() int {
	h := m.height - chromeLines
	if h < 1 {
		return 1
	}
	return h
}

// treeHeight is the number of tree rows, less the search box when open.
func (m Model) treeHeight() int {
	h := m.bodyHeight()
	if m.searching {
		h -= m.searchLines()
	}
	if h < 1 {
		return 1
	}
	return h
}

// searchLines is the height of the search box: the input plus one line
// per suggestion, or one for the "no match" notice.
func (m Model) searchLines() int {
	n := len(m.suggestions)
	if n == 0 && m.noMatch() {
		n = 1
	}
	return 1 + n
}

func (m Model) noMatch() bool {
	term := strings.TrimSpace(m.search.Value())
	return len([]rune(term)) >= search.MinTermLength && len(m.suggestions) == 0
}

func (m Model) showDetails() bool {
	return m.state.DetailsOpen() && m.width >= SplitViewThreshold
}

func (m Model) detailPaneWidth() int {
	w := m.width * 2 / 5
	if w < MinDetailPaneWidth {
		w = MinDetailPaneWidth
	}
	return w
}

func (m *Model) resize() {
	w := m.detailPaneWidth() - 2
	m.details.Width = w
	m.details.Height = m.bodyHeight() - 2
	m.md.SetWidth(w - 2)
}

func (m *Model) refreshDetails() {
	rendered, err := m.md.Render(details.Markdown(m.state.Details()))
	if err != nil {
		m.details.SetContent(details.PlainText(m.state.Details()))
		return
	}
	m.details.SetContent(rendered)
	m.details.GotoTop()
}

func (m Model) View() string {
	start := time.Now()
	defer func() { metrics.UIRender.Record(time.Since(start)) }()

	body := m.renderBody()
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderStats(),
		body,
		m.renderFooter(),
	)
}

func (m Model) renderBody() string {
	h := m.bodyHeight()
	treeW := m.width
	if m.showDetails() {
		treeW = m.width - m.detailPaneWidth()
	}

	var left strings.Builder
	if m.searching {
		left.WriteString(m.renderSearch(treeW))
		left.WriteString("\n")
	}
	left.WriteString(m.renderTree(treeW, m.treeHeight()))
	leftPane := lipgloss.NewStyle().Width(treeW).Height(h).MaxHeight(h).Render(left.String())

	if !m.showDetails() {
		return leftPane
	}
	right := m.theme.Pane.
		Width(m.detailPaneWidth() - 2).
		Height(h - 2).
		Render(m.details.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, leftPane, right)
}

func (m Model) renderHeader() string {
	t := m.theme
	title := t.Header.Render(model.RootName + " Explorer")
	threshold := fmt.Sprintf(" purity ≥ %3d%% %s ", m.state.Threshold(),
		sliderBar(m.state.Threshold(), app.MaxThreshold, 20))
	zoom := t.MutedText.Render(fmt.Sprintf("zoom %.2fx", m.state.View().Transform().K))
	line := title + t.Base.Render(threshold) + zoom
	return truncateANSI(line, m.width)
}

func (m Model) renderStats() string {
	t := m.theme
	s := m.state.Summary()
	parts := []string{
		fmt.Sprintf("%d categories", s.Categories),
		fmt.Sprintf("%d/%d clusters", s.VisibleClusters, s.TotalClusters),
		"avg purity " + formatPercent(s.MeanPurity),
	}
	line := t.Base.Render(" " + strings.Join(parts, " · ") + "  ")

	var hist strings.Builder
	for i, cell := range sparkline(m.state.Histogram()) {
		if stats.HighPurity(i) {
			hist.WriteString(t.BarHigh.Render(cell))
		} else {
			hist.WriteString(t.BarLow.Render(cell))
		}
	}
	line += t.MutedText.Render("0 ") + hist.String() + t.MutedText.Render(" 100")
	return truncateANSI(line, m.width)
}

func (m Model) renderSearch(width int) string {
	t := m.theme
	var sb strings.Builder
	sb.WriteString(m.search.View())
	if m.noMatch() {
		sb.WriteString("\n" + t.MutedText.Render("  no match"))
	}
	for i, s := range m.suggestions {
		icon := "◆"
		if s.Kind == model.KindCluster {
			icon = "●"
		}
		line := fmt.Sprintf("  %s %s", icon, s.Label)
		if s.Context != "" {
			line += t.MutedText.Render("  " + s.Context)
		}
		line = truncateANSI(line, width)
		if i == m.suggCursor {
			line = t.Selected.Width(width).Render(line)
		}
		sb.WriteString("\n" + line)
	}
	return sb.String()
}

func (m Model) renderFooter() string {
	t := m.theme
	if m.statusMsg != "" {
		prefix := "✓ "
		style := t.StatusOK
		if m.statusIsError {
			prefix = "✗ "
			style = t.StatusErr
		}
		return truncateANSI(style.Render(prefix+m.statusMsg), m.width)
	}

	var hints []string
	if m.searching {
		hints = []string{"enter select", "↑/↓ choose", "esc close"}
	} else {
		for _, b := range m.keys.footerHints() {
			h := b.Help()
			hints = append(hints, h.Key+" "+h.Desc)
		}
	}
	return truncateANSI(t.KeyHint.Render(" "+strings.Join(hints, "  ")), m.width)
}

// truncateANSI cuts a styled line to width cells.
func truncateANSI(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

// Accessors used by tests and the CLI.

// State returns the controller.
func (m Model) State() *app.State { return m.state }

// CursorID returns the node under the tree cursor.
func (m Model) CursorID() string { return m.cursorID() }

// Searching reports whether the search box is open.
func (m Model) Searching() bool { return m.searching }

// Suggestions returns the current suggestion list.
func (m Model) Suggestions() []search.Suggestion { return m.suggestions }

// StatusMessage returns the footer message and whether it is an error.
func (m Model) StatusMessage() (string, bool) { return m.statusMsg, m.statusIsError }

// LastExport returns the path of the last export written by the TUI.
func (m Model) LastExport() string { return m.lastExport }
