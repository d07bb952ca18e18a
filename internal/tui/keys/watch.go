package keys

import "github.com/charmbracelet/bubbles/key"

// WatchKeys are the key bindings of the watch TUI
type WatchKeys struct {
	Quit             key.Binding
	Help             key.Binding
	Clear            key.Binding
	ToggleHex        key.Binding
	ToggleASCII      key.Binding
	ToggleTimestamps key.Binding
	ToggleDTR        key.Binding
	ToggleRTS        key.Binding
	ScrollUp         key.Binding
	ScrollDown       key.Binding
	Follow           key.Binding
}

func NewWatchKeys() WatchKeys {
	return WatchKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear log"),
		),
		ToggleHex: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "toggle hex"),
		),
		ToggleASCII: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle ascii"),
		),
		ToggleTimestamps: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle timestamps"),
		),
		ToggleDTR: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "toggle DTR"),
		),
		ToggleRTS: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "toggle RTS"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "up"),
			key.WithHelp("pgup/↑", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown", "down"),
			key.WithHelp("pgdn/↓", "scroll down"),
		),
		Follow: key.NewBinding(
			key.WithKeys("end", "f"),
			key.WithHelp("f/end", "follow"),
		),
	}
}

func (k WatchKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.ToggleDTR, k.ToggleRTS, k.Clear, k.Quit}
}

func (k WatchKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ToggleDTR, k.ToggleRTS, k.Clear},
		{k.ToggleHex, k.ToggleASCII, k.ToggleTimestamps},
		{k.ScrollUp, k.ScrollDown, k.Follow},
		{k.Help, k.Quit},
	}
}
