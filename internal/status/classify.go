package status

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Classification is the display outcome for a single device state.
type Classification struct {
	Category Category
	Color    string
	Label    string
}

type colorRule struct {
	anyOf    []string
	category Category
}

type labelRule struct {
	allOf []string
	anyOf []string
	label string
}

// Order matters: the first matching rule wins.
var colorRules = []colorRule{
	{anyOf: []string{"finished", "complete"}, category: CategoryComplete},
	{anyOf: []string{"error", "failed", "aborted"}, category: CategoryError},
	{anyOf: []string{"bootstrap", "provisioning", "triage", "started", "initialisation", "firmware"}, category: CategoryBootstrap},
}

var labelRules = []labelRule{
	{anyOf: []string{"bootstrap-started"}, label: "BOOTSTRAP"},
	{anyOf: []string{"bootstrap-finished"}, label: "BOOTSTRAP DONE"},
	{allOf: []string{"bootstrap", "firmware"}, label: "UPDATING FIRMWARE"},
	{allOf: []string{"bootstrap", "fastboot"}, label: "FASTBOOT INIT"},
	{anyOf: []string{"triage-started"}, label: "TRIAGE"},
	{anyOf: []string{"triage-finished"}, label: "TRIAGE DONE"},
	{anyOf: []string{"naked-provisioner-started"}, label: "PROVISIONING"},
	{anyOf: []string{"naked-provisioner-finished"}, label: "COMPLETE"},
	{anyOf: []string{"provisioning"}, label: "PROVISIONING"},
	{anyOf: []string{"finished", "complete"}, label: "COMPLETE"},
	{anyOf: []string{"error", "failed"}, label: "ERROR"},
	{anyOf: []string{"aborted"}, label: "ABORTED"},
}

func (r colorRule) matches(state string) bool {
	return containsAny(state, r.anyOf)
}

func (r labelRule) matches(state string) bool {
	if len(r.allOf) > 0 && !containsAll(state, r.allOf) {
		return false
	}
	if len(r.anyOf) > 0 && !containsAny(state, r.anyOf) {
		return false
	}
	return len(r.allOf) > 0 || len(r.anyOf) > 0
}

// Classifier maps raw provisioner state strings onto palette colors and
// short labels. It is immutable and safe for concurrent use.
type Classifier struct {
	palette Palette
}

func NewClassifier(p Palette) Classifier {
	return Classifier{palette: p}
}

func (c Classifier) Palette() Palette {
	return c.palette
}

// Classify never fails: unrecognised states fall through to the unknown
// category and a cleaned-up copy of the raw text.
func (c Classifier) Classify(state string, connected bool) Classification {
	cat := CategoryFor(state, connected)
	return Classification{
		Category: cat,
		Color:    c.palette.Color(cat),
		Label:    Label(state),
	}
}

func CategoryFor(state string, connected bool) Category {
	if !connected {
		return CategoryUnplugged
	}
	lower := strings.ToLower(state)
	for _, r := range colorRules {
		if r.matches(lower) {
			return r.category
		}
	}
	return CategoryUnknown
}

func Label(state string) string {
	lower := strings.ToLower(state)
	for _, r := range labelRules {
		if r.matches(lower) {
			return r.label
		}
	}
	// Full case mapping, so "ß" becomes "SS" rather than staying as is.
	return cases.Upper(language.Und).String(labelCleaner.Replace(state))
}

var labelCleaner = strings.NewReplacer("-", " ", "_", " ")

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
