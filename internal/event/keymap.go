package event

import "fmt"

// Layout maps platform-native key codes to symbolic names and, where the
// key produces text, a printable character. Lookups are read-only after
// construction and safe for concurrent use.
type Layout struct {
	platform string
	names    map[int32]string
	chars    map[int32]string
}

// Platform returns the name of the platform this layout describes.
func (l *Layout) Platform() string { return l.platform }

// Name returns the symbolic name for a key code.
func (l *Layout) Name(code int32) (string, bool) {
	n, ok := l.names[code]
	return n, ok
}

// Char returns the printable character for a key code, if it has one.
func (l *Layout) Char(code int32) (string, bool) {
	c, ok := l.chars[code]
	return c, ok
}

// IsReturn reports whether the code is an Enter/Return key.
func (l *Layout) IsReturn(code int32) bool {
	return l.names[code] == "Enter"
}

// String implements fmt.Stringer.
func (l *Layout) String() string {
	return fmt.Sprintf("%s layout (%d keys)", l.platform, len(l.names))
}

// WindowsLayout returns the layout keyed by Windows virtual-key codes, as
// delivered by the low-level keyboard hook.
func WindowsLayout() *Layout {
	l := &Layout{
		platform: "windows",
		names:    make(map[int32]string),
		chars:    make(map[int32]string),
	}

	// Letters: VK codes 0x41..0x5A are the ASCII uppercase letters.
	for c := int32('A'); c <= int32('Z'); c++ {
		l.names[c] = string(rune(c))
		l.chars[c] = string(rune(c - 'A' + 'a'))
	}
	// Top-row digits 0x30..0x39 and numpad digits 0x60..0x69.
	for d := int32(0); d <= 9; d++ {
		l.names['0'+d] = fmt.Sprintf("%d", d)
		l.chars['0'+d] = fmt.Sprintf("%d", d)
		l.names[0x60+d] = fmt.Sprintf("Numpad%d", d)
		l.chars[0x60+d] = fmt.Sprintf("%d", d)
	}
	// Function keys F1..F12 (VK_F1 = 0x70).
	for i := int32(1); i <= 12; i++ {
		l.names[0x6F+i] = fmt.Sprintf("F%d", i)
	}

	for code, name := range map[int32]string{
		0x08: "Backspace", 0x09: "Tab", 0x0D: "Enter", 0x13: "Pause",
		0x14: "CapsLock", 0x1B: "Escape", 0x20: "Space",
		0x21: "PageUp", 0x22: "PageDown", 0x23: "End", 0x24: "Home",
		0x25: "Left", 0x26: "Up", 0x27: "Right", 0x28: "Down",
		0x2D: "Insert", 0x2E: "Delete",
		0x10: "Shift", 0xA0: "Shift", 0xA1: "Shift",
		0x11: "Control", 0xA2: "Control", 0xA3: "Control",
		0x12: "Alt", 0xA4: "Alt", 0xA5: "Alt",
		0x5B: "Super", 0x5C: "Super",
		0x90: "NumLock", 0x91: "ScrollLock",
		0x6A: "NumpadMultiply", 0x6B: "NumpadAdd", 0x6D: "NumpadSubtract",
		0x6E: "NumpadDecimal", 0x6F: "NumpadDivide",
		0xBA: "Semicolon", 0xBB: "Equals", 0xBC: "Comma", 0xBD: "Minus",
		0xBE: "Period", 0xBF: "Slash", 0xC0: "Backquote",
		0xDB: "OpenBracket", 0xDC: "Backslash", 0xDD: "CloseBracket",
		0xDE: "Quote",
	} {
		l.names[code] = name
	}

	for code, ch := range map[int32]string{
		0x20: " ",
		0x6A: "*", 0x6B: "+", 0x6D: "-", 0x6E: ".", 0x6F: "/",
		0xBA: ";", 0xBB: "=", 0xBC: ",", 0xBD: "-",
		0xBE: ".", 0xBF: "/", 0xC0: "`",
		0xDB: "[", 0xDC: "\\", 0xDD: "]", 0xDE: "'",
	} {
		l.chars[code] = ch
	}

	return l
}

// X11Layout returns the layout keyed by X11 keysym values.
func X11Layout() *Layout {
	l := &Layout{
		platform: "x11",
		names:    make(map[int32]string),
		chars:    make(map[int32]string),
	}

	// Latin letters: keysyms equal their ASCII codes.
	for c := int32('a'); c <= int32('z'); c++ {
		upper := string(rune(c - 'a' + 'A'))
		l.names[c] = upper
		l.chars[c] = string(rune(c))
		l.names[c-'a'+'A'] = upper
		l.chars[c-'a'+'A'] = string(rune(c))
	}
	// Digits.
	for d := int32(0); d <= 9; d++ {
		l.names['0'+d] = fmt.Sprintf("%d", d)
		l.chars['0'+d] = fmt.Sprintf("%d", d)
		l.names[0xFFB0+d] = fmt.Sprintf("Numpad%d", d)
		l.chars[0xFFB0+d] = fmt.Sprintf("%d", d)
	}
	// Function keys XK_F1..XK_F12.
	for i := int32(1); i <= 12; i++ {
		l.names[0xFFBE+i-1] = fmt.Sprintf("F%d", i)
	}

	for code, name := range map[int32]string{
		0xFF0D: "Enter", 0xFF8D: "Enter", // Return, KP_Enter
		0xFF08: "Backspace", 0xFF09: "Tab", 0xFF1B: "Escape",
		0xFF63: "Insert", 0xFFFF: "Delete",
		0xFF50: "Home", 0xFF57: "End", 0xFF55: "PageUp", 0xFF56: "PageDown",
		0xFF51: "Left", 0xFF52: "Up", 0xFF53: "Right", 0xFF54: "Down",
		0xFFE1: "Shift", 0xFFE2: "Shift",
		0xFFE3: "Control", 0xFFE4: "Control",
		0xFFE9: "Alt", 0xFFEA: "Alt",
		0xFFE5: "CapsLock", 0xFF7F: "NumLock", 0xFF14: "ScrollLock",
		0xFFAA: "NumpadMultiply", 0xFFAB: "NumpadAdd",
		0xFFAD: "NumpadSubtract", 0xFFAE: "NumpadDecimal",
		0xFFAF: "NumpadDivide",
	} {
		l.names[code] = name
	}

	for code, ch := range map[int32]string{
		0x20: " ", 0x2C: ",", 0x2E: ".", 0x2D: "-", 0x3D: "=",
		0x5B: "[", 0x5D: "]", 0x5C: "\\", 0x3B: ";", 0x27: "'",
		0x2F: "/", 0x60: "`",
		0xFFAA: "*", 0xFFAB: "+", 0xFFAD: "-", 0xFFAE: ".", 0xFFAF: "/",
	} {
		l.chars[code] = ch
	}
	l.names[0x20] = "Space"

	return l
}
