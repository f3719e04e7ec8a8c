package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the bindings of the main view.
type keyMap struct {
	ThresholdDown     key.Binding
	ThresholdUp       key.Binding
	ThresholdDownFast key.Binding
	ThresholdUpFast   key.Binding
	Search            key.Binding
	Up                key.Binding
	Down              key.Binding
	PageUp            key.Binding
	PageDown          key.Binding
	Toggle            key.Binding
	ZoomIn            key.Binding
	ZoomOut           key.Binding
	ZoomFit           key.Binding
	ExportPNG         key.Binding
	ExportSVG         key.Binding
	Details           key.Binding
	Copy              key.Binding
	Quit              key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ThresholdDown:     key.NewBinding(key.WithKeys("left", "["), key.WithHelp("←/[", "purity -1")),
		ThresholdUp:       key.NewBinding(key.WithKeys("right", "]"), key.WithHelp("→/]", "purity +1")),
		ThresholdDownFast: key.NewBinding(key.WithKeys("{"), key.WithHelp("{", "purity -10")),
		ThresholdUpFast:   key.NewBinding(key.WithKeys("}"), key.WithHelp("}", "purity +10")),
		Search:            key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Up:                key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
		Down:              key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
		PageUp:            key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "details up")),
		PageDown:          key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "details down")),
		Toggle:            key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "toggle")),
		ZoomIn:            key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:           key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
		ZoomFit:           key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "fit")),
		ExportPNG:         key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "png")),
		ExportSVG:         key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "svg")),
		Details:           key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "details")),
		Copy:              key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
		Quit:              key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// footerHints are the bindings shown in the footer, in order.
func (k keyMap) footerHints() []key.Binding {
	return []key.Binding{
		k.Toggle, k.Search, k.ThresholdDown, k.ThresholdUp,
		k.ZoomIn, k.ZoomFit, k.ExportPNG, k.ExportSVG, k.Details, k.Copy, k.Quit,
	}
}
