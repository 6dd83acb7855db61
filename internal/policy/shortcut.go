package policy

import (
	"fmt"
	"strings"

	"keyhook/internal/eventtap"
)

// Shortcut is a key code plus the exact modifier set that must be held.
type Shortcut struct {
	Modifiers eventtap.Modifiers
	KeyCode   uint16
}

var modifierNames = map[string]eventtap.Modifiers{
	"cmd":     eventtap.ModCommand,
	"command": eventtap.ModCommand,
	"ctrl":    eventtap.ModControl,
	"control": eventtap.ModControl,
	"opt":     eventtap.ModOption,
	"option":  eventtap.ModOption,
	"alt":     eventtap.ModOption,
	"shift":   eventtap.ModShift,
	"fn":      eventtap.ModFunction,
}

// ParseShortcut parses strings such as "cmd+tab" or "ctrl+shift+f3".
// The last element is the key; the others are modifiers.
func ParseShortcut(s string) (Shortcut, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Shortcut{}, fmt.Errorf("invalid shortcut %q: missing key", s)
	}

	var sc Shortcut
	for _, p := range parts[:len(parts)-1] {
		mod, ok := modifierNames[strings.TrimSpace(p)]
		if !ok {
			return Shortcut{}, fmt.Errorf("invalid shortcut %q: unknown modifier %q", s, p)
		}
		sc.Modifiers |= mod
	}

	code, err := eventtap.ParseKeyCode(parts[len(parts)-1])
	if err != nil {
		return Shortcut{}, fmt.Errorf("invalid shortcut %q: %w", s, err)
	}
	sc.KeyCode = code
	return sc, nil
}

// Matches reports whether ev is this shortcut. Caps lock is ignored, and fn
// only counts when the shortcut names it since macOS sets it on arrow and
// function keys.
func (sc Shortcut) Matches(ev *eventtap.KeyEvent) bool {
	if ev.KeyCode != sc.KeyCode {
		return false
	}
	relevant := eventtap.ModShift | eventtap.ModControl | eventtap.ModOption | eventtap.ModCommand
	if sc.Modifiers.Has(eventtap.ModFunction) {
		relevant |= eventtap.ModFunction
	}
	return ev.Modifiers&relevant == sc.Modifiers
}

func (sc Shortcut) String() string {
	key := eventtap.KeyCodeName(sc.KeyCode)
	if key == "" {
		key = fmt.Sprintf("0x%02x", sc.KeyCode)
	}
	if mods := sc.Modifiers.String(); mods != "" {
		return mods + "+" + key
	}
	return key
}
