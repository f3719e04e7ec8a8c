package ui_test

import (
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/vanderheijden86/taxview/pkg/app"
	"github.com/vanderheijden86/taxview/pkg/export"
	"github.com/vanderheijden86/taxview/pkg/loader"
	"github.com/vanderheijden86/taxview/pkg/model"
	"github.com/vanderheijden86/taxview/pkg/testutil"
	"github.com/vanderheijden86/taxview/pkg/ui"
)

// testClock lets tests jump past animations.
type testClock struct{ t time.Time }

func (c *testClock) now() time.Time        { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestModel(t *testing.T) (ui.Model, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	state := app.New(&loader.Dataset{
		Clusters: testutil.ScenarioClusters(),
		Rich:     testutil.ScenarioRich(),
	}, app.Options{
		ExportDir:   t.TempDir(),
		DetailsOpen: true,
		Now:         clock.now,
	})
	m := ui.NewModel(state).WithClock(clock.now)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	return m, clock
}

func update(t *testing.T, m ui.Model, msg tea.Msg) ui.Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(ui.Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m ui.Model, s string) ui.Model {
	t.Helper()
	for _, r := range s {
		m = update(t, m, runes(string(r)))
	}
	return m
}

func TestThresholdKeys(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, runes("}"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m = update(t, m, runes("]"))
	if got := m.State().Threshold(); got != 12 {
		t.Fatalf("threshold = %d, want 12", got)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = update(t, m, runes("["))
	m = update(t, m, runes("{"))
	if got := m.State().Threshold(); got != 0 {
		t.Fatalf("threshold = %d, want 0", got)
	}
	// Clamped at zero.
	m = update(t, m, runes("{"))
	if got := m.State().Threshold(); got != 0 {
		t.Errorf("threshold should clamp at 0, got %d", got)
	}
}

func TestThresholdRebuildResetsCursor(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.CursorID() != "cat:A" {
		t.Fatalf("cursor = %q, want cat:A", m.CursorID())
	}
	for i := 0; i < 8; i++ {
		m = update(t, m, runes("}"))
	}
	if m.CursorID() != model.RootID {
		t.Errorf("cursor should return to root after rebuild, got %q", m.CursorID())
	}
	if got := m.State().Summary().VisibleClusters; got != 2 {
		t.Errorf("visible clusters at 80%% = %d, want 2", got)
	}
}

func TestEnterTogglesCursorNode(t *testing.T) {
	m, clock := newTestModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	v := m.State().View()
	if !v.IsVisible("cluster:1") {
		t.Fatal("enter should expand category A")
	}
	if m.State().SelectedID() != "cat:A" {
		t.Errorf("selected = %q", m.State().SelectedID())
	}

	clock.advance(time.Second)
	out := ansi.Strip(m.View())
	if !strings.Contains(out, "Cluster 1") || !strings.Contains(out, "Category Group") {
		t.Errorf("view should show the expanded cluster and category details:\n%s", out)
	}
}

func TestSearchSelectsSuggestion(t *testing.T) {
	m, clock := newTestModel(t)

	m = update(t, m, runes("/"))
	if !m.Searching() {
		t.Fatal("/ should open search")
	}
	m = typeText(t, m, "cluster 3")
	if len(m.Suggestions()) != 1 || m.Suggestions()[0].Ref != "cluster:3" {
		t.Fatalf("unexpected suggestions %+v", m.Suggestions())
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.Searching() {
		t.Error("enter should close search")
	}
	if m.CursorID() != "cluster:3" || m.State().View().Highlight() != "cluster:3" {
		t.Errorf("cursor %q highlight %q", m.CursorID(), m.State().View().Highlight())
	}
	clock.advance(time.Second)
	if out := ansi.Strip(m.View()); !strings.Contains(out, "Cluster #3") {
		t.Errorf("details pane should describe cluster 3:\n%s", out)
	}
}

func TestSearchShortTermHasNoSuggestions(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, runes("/"))
	m = typeText(t, m, "c")
	if len(m.Suggestions()) != 0 {
		t.Errorf("one character should not suggest, got %+v", m.Suggestions())
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if msg, isErr := m.StatusMessage(); !isErr || !strings.Contains(msg, "no match") {
		t.Errorf("status = %q (error %v)", msg, isErr)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Searching() {
		t.Error("esc should close search")
	}
}

func TestSearchTypingDoesNotTriggerShortcuts(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, runes("/"))
	m = typeText(t, m, "q]d")
	if m.State().Threshold() != 0 || !m.State().DetailsOpen() {
		t.Error("keys typed into search must not act as shortcuts")
	}
}

func TestZoomKeys(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, runes("+"))
	if k := m.State().View().Transform().K; k <= 1 {
		t.Errorf("zoom in should grow scale, got %v", k)
	}
	m = update(t, m, runes("0"))
	if k := m.State().View().Transform().K; k != 1 {
		t.Errorf("fit should reset scale, got %v", k)
	}
	m = update(t, m, runes("-"))
	if k := m.State().View().Transform().K; k >= 1 {
		t.Errorf("zoom out should shrink scale, got %v", k)
	}
}

func TestDetailsToggle(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, runes("d"))
	if m.State().DetailsOpen() {
		t.Error("d should hide the details pane")
	}
	if strings.Contains(ansi.Strip(m.View()), "Select a Category") {
		t.Error("hidden pane should not render")
	}
}

func TestExportKeyProducesCommand(t *testing.T) {
	m, _ := newTestModel(t)
	next, cmd := m.Update(runes("E"))
	if cmd == nil {
		t.Fatal("E should start an export")
	}
	msg := cmd()
	done, ok := msg.(ui.ExportDoneMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if done.Err != nil {
		t.Fatal(done.Err)
	}
	if !strings.HasSuffix(done.Path, ".svg") {
		t.Errorf("path = %q", done.Path)
	}
	if _, err := os.Stat(done.Path); err != nil {
		t.Error(err)
	}

	m = update(t, next.(ui.Model), done)
	if m.LastExport() != done.Path {
		t.Errorf("last export = %q", m.LastExport())
	}
	if msg, isErr := m.StatusMessage(); isErr || !strings.Contains(msg, "Exported") {
		t.Errorf("status = %q", msg)
	}
}

func TestExportErrorSurfaces(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, ui.ExportDoneMsg{Err: export.ErrNothingToExport})
	if msg, isErr := m.StatusMessage(); !isErr || !strings.Contains(msg, "nothing to export") {
		t.Errorf("status = %q (error %v)", msg, isErr)
	}
}

func TestReloadMessages(t *testing.T) {
	m, _ := newTestModel(t)
	seq := m.State().NextReloadSeq()

	fresh := &loader.Dataset{Clusters: testutil.ScenarioClusters()[:2], DataHash: "feedfacecafebeef"}
	m = update(t, m, ui.ReloadedMsg{Dataset: fresh, Seq: seq})
	if got := m.State().Summary().TotalClusters; got != 2 {
		t.Errorf("total clusters = %d, want 2", got)
	}
	if msg, _ := m.StatusMessage(); !strings.Contains(msg, "feedfacecafebeef") {
		t.Errorf("status = %q", msg)
	}

	stale := &loader.Dataset{Clusters: testutil.ScenarioClusters()}
	m = update(t, m, ui.ReloadedMsg{Dataset: stale, Seq: seq - 1})
	if got := m.State().Summary().TotalClusters; got != 2 {
		t.Errorf("stale reload applied: total = %d", got)
	}
}

func TestDegradedWarningShownAtStart(t *testing.T) {
	state := app.New(&loader.Dataset{
		Clusters: testutil.ScenarioClusters(),
		Warnings: []loader.DegradedLoadWarning{{Location: "rich.json", Err: os.ErrNotExist}},
	}, app.Options{})
	m := ui.NewModel(state)
	if msg, isErr := m.StatusMessage(); !isErr || !strings.Contains(msg, "breakdown data unavailable") {
		t.Errorf("status = %q", msg)
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
