package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/taxview/pkg/export"
	"github.com/vanderheijden86/taxview/pkg/loader"
	"github.com/vanderheijden86/taxview/pkg/watcher"
)

// animationInterval is the tick rate while transitions are running.
const animationInterval = 16 * time.Millisecond

// statusTimeout is how long a status message stays in the footer.
const statusTimeout = 4 * time.Second

// FileChangedMsg is sent when a watched artifact changes on disk.
type FileChangedMsg struct{}

// ReloadedMsg carries the result of a watch-triggered reload.
type ReloadedMsg struct {
	Dataset *loader.Dataset
	Seq     uint64
	Err     error
}

// ExportDoneMsg reports a finished export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// animTickMsg advances running transitions.
type animTickMsg time.Time

// clearStatusMsg expires a status message. Seq guards against clearing a
// newer message.
type clearStatusMsg struct{ seq int }

func animTickCmd() tea.Cmd {
	return tea.Tick(animationInterval, func(t time.Time) tea.Msg {
		return animTickMsg(t)
	})
}

func clearStatusCmd(seq int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// ReloadCmd reloads both artifacts off the Update goroutine.
func ReloadCmd(opts loader.Options, seq uint64) tea.Cmd {
	return func() tea.Msg {
		ds, err := loader.Load(context.Background(), opts)
		return ReloadedMsg{Dataset: ds, Seq: seq, Err: err}
	}
}

// ExportCmd writes an export captured on the Update goroutine.
func ExportCmd(opts export.Options) tea.Cmd {
	return func() tea.Msg {
		path, err := export.Save(opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}
