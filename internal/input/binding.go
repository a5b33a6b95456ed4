package input

import "strings"

const (
	DefaultHotkey            = "alt_r"
	DefaultTranslateModifier = "ctrl_r"
)

// Binding maps a symbolic key name to the raw codes a platform may report for it.
type Binding struct {
	Name  string
	Codes []uint16
}

// Matches reports whether code belongs to the binding.
func (b Binding) Matches(code uint16) bool {
	for _, c := range b.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// Virtual key codes as reported by libuiohook. Right Alt is also seen as its
// extended scan form on some Windows layouts, which is where AltGr lands.
var keyCodes = map[string][]uint16{
	"alt_r":   {0x0E38, 0xE038},
	"alt_gr":  {0x0E38, 0xE038},
	"alt_l":   {0x0038},
	"ctrl_r":  {0x0E1D, 0xE01D},
	"ctrl_l":  {0x001D},
	"shift_r": {0x0036, 0x0E36},
	"shift_l": {0x002A},
	"f1":      {0x003B},
	"f2":      {0x003C},
	"f3":      {0x003D},
	"f4":      {0x003E},
	"f5":      {0x003F},
	"f6":      {0x0040},
	"f7":      {0x0041},
	"f8":      {0x0042},
	"f9":      {0x0043},
	"f10":     {0x0044},
	"f11":     {0x0057},
	"f12":     {0x0058},
}

// KeyNames lists the supported binding names.
func KeyNames() []string {
	return []string{
		"alt_r", "alt_gr", "alt_l", "ctrl_r", "ctrl_l", "shift_r", "shift_l",
		"f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9", "f10", "f11", "f12",
	}
}

// ResolveBinding looks up name, falling back to fallback for unknown names.
func ResolveBinding(name string, fallback string) Binding {
	key := strings.ToLower(strings.TrimSpace(name))
	codes, ok := keyCodes[key]
	if !ok {
		key = fallback
		codes = keyCodes[fallback]
	}
	return Binding{Name: key, Codes: append([]uint16(nil), codes...)}
}
