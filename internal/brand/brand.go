// Package brand resolves free-form retail brand strings against the known-brand table.
package brand

import (
	"strings"
	"unicode"
)

const FallbackColor = "#ff5722"

type Brand struct {
	Name  string
	Color string
	Known bool
}

type Table struct {
	byKey map[string]Brand
	order []string
}

type entry struct {
	name    string
	color   string
	aliases []string
}

var defaults = []entry{
	{name: "Albert Heijn", color: "#5B9BD5", aliases: []string{"ah", "albertheijn", "ah to go"}},
	{name: "Dirk", color: "#0000ff", aliases: []string{"dirk van den broek"}},
	{name: "Vomar", color: "#00ff00"},
	{name: "Jumbo", color: "#ffff00"},
	{name: "Plus", color: "#90EE90"},
	{name: "Aldi", color: "#8800ff"},
	{name: "Hoogvliet", color: "#ff00ff"},
	{name: "Dekamarkt", color: "#00ffff", aliases: []string{"deka", "deka markt"}},
}

// Default returns the table of brands the service ships with.
func Default() *Table {
	t := &Table{byKey: make(map[string]Brand, len(defaults)*2)}
	for _, e := range defaults {
		t.Add(e.name, e.color, e.aliases...)
	}
	return t
}

// Add registers a brand under its name and aliases. Later registrations win.
func (t *Table) Add(name, color string, aliases ...string) {
	b := Brand{Name: name, Color: color, Known: true}
	if _, ok := t.byKey[key(name)]; !ok {
		t.order = append(t.order, name)
	}
	t.byKey[key(name)] = b
	for _, a := range aliases {
		t.byKey[key(a)] = b
	}
}

// Lookup resolves raw to a known brand. Unknown strings keep their trimmed
// spelling and get the fallback colour.
func (t *Table) Lookup(raw string) Brand {
	if b, ok := t.byKey[key(raw)]; ok {
		return b
	}
	return Brand{Name: strings.Join(strings.Fields(raw), " "), Color: FallbackColor}
}

// Canonical returns the canonical brand name for raw.
func (t *Table) Canonical(raw string) string {
	return t.Lookup(raw).Name
}

// Names lists known brand names in registration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// key folds case, drops punctuation and collapses whitespace.
func key(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(unicode.ToLower(r))
			space = false
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}
