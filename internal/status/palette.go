package status

import (
	"fmt"
	"regexp"
	"strings"
)

// Category names a color bucket in the palette.
type Category string

const (
	CategoryBootstrap     Category = "bootstrap"
	CategoryBootstrapSlow Category = "bootstrap_slow"
	CategoryTriage        Category = "triage"
	CategoryProvisioning  Category = "provisioning"
	CategoryComplete      Category = "complete"
	CategoryWaiting       Category = "waiting"
	CategoryError         Category = "error"
	CategoryUnplugged     Category = "unplugged"
	CategoryUnknown       Category = "unknown"
)

var allCategories = []Category{
	CategoryBootstrap,
	CategoryBootstrapSlow,
	CategoryTriage,
	CategoryProvisioning,
	CategoryComplete,
	CategoryWaiting,
	CategoryError,
	CategoryUnplugged,
	CategoryUnknown,
}

var defaultColors = map[Category]string{
	CategoryBootstrap:     "#2196F3",
	CategoryBootstrapSlow: "#81C784",
	CategoryTriage:        "#FF9800",
	CategoryProvisioning:  "#2196F3",
	CategoryComplete:      "#4CAF50",
	CategoryWaiting:       "#9C27B0",
	CategoryError:         "#F44336",
	CategoryUnplugged:     "#9E9E9E",
	CategoryUnknown:       "#607D8B",
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Categories returns every palette category in canonical order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func IsValidCategory(name string) bool {
	c := Category(NormalizeCategory(name))
	_, ok := defaultColors[c]
	return ok
}

func NormalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Palette maps each category to a #RRGGBB code. The zero value is not
// usable; build one with DefaultPalette or NewPalette.
type Palette struct {
	colors map[Category]string
}

func DefaultPalette() Palette {
	p, _ := NewPalette(nil)
	return p
}

// NewPalette starts from the default colors and applies overrides keyed by
// category name.
func NewPalette(overrides map[string]string) (Palette, error) {
	colors := make(map[Category]string, len(defaultColors))
	for c, hex := range defaultColors {
		colors[c] = hex
	}

	for name, hex := range overrides {
		if !IsValidCategory(name) {
			return Palette{}, fmt.Errorf("unknown color category %q", name)
		}
		hex = strings.TrimSpace(hex)
		if !hexColor.MatchString(hex) {
			return Palette{}, fmt.Errorf("color %q for category %q is not #RRGGBB", hex, name)
		}
		colors[Category(NormalizeCategory(name))] = strings.ToUpper(hex)
	}

	return Palette{colors: colors}, nil
}

// Color returns the hex code for c, falling back to the unknown color.
func (p Palette) Color(c Category) string {
	if hex, ok := p.colors[c]; ok {
		return hex
	}
	if hex, ok := p.colors[CategoryUnknown]; ok {
		return hex
	}
	return defaultColors[CategoryUnknown]
}

// Map returns a copy of the palette keyed by category name.
func (p Palette) Map() map[string]string {
	out := make(map[string]string, len(allCategories))
	for _, c := range allCategories {
		out[string(c)] = p.Color(c)
	}
	return out
}
