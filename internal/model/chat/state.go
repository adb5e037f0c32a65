package chat

// Theme is the persisted colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme reports whether raw names a known theme.
func ParseTheme(raw string) (Theme, bool) {
	switch Theme(raw) {
	case ThemeLight:
		return ThemeLight, true
	case ThemeDark:
		return ThemeDark, true
	default:
		return "", false
	}
}

// Toggle flips between light and dark.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// State is the persisted part of the engine: the ordered messages and the theme.
type State struct {
	Messages []Message `json:"messages"`
	Theme    Theme     `json:"theme"`
}

// DefaultState is used when nothing has been persisted yet.
func DefaultState() State {
	return State{Messages: []Message{}, Theme: ThemeLight}
}

// Clone returns a copy whose message slice does not alias s.
func (s State) Clone() State {
	messages := make([]Message, len(s.Messages))
	copy(messages, s.Messages)
	return State{Messages: messages, Theme: s.Theme}
}
