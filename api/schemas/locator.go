// api/schemas/locator.go
package schemas

import (
	"fmt"
	"strings"
)

// LocatorKind identifies how a Locator's value is resolved against the DOM.
type LocatorKind string

const (
	// ByID matches an element by its id attribute.
	ByID LocatorKind = "id"
	// ByCSS matches with a CSS selector expression.
	ByCSS LocatorKind = "css"
	// ByXPath matches with a structural XPath expression.
	ByXPath LocatorKind = "xpath"
)

// Valid reports whether k is one of the supported kinds.
func (k LocatorKind) Valid() bool {
	switch k {
	case ByID, ByCSS, ByXPath:
		return true
	}
	return false
}

// Locator is a single rule for finding one DOM element.
// It is a value type; copies are independent and never mutated.
type Locator struct {
	Kind  LocatorKind `json:"kind" yaml:"kind"`
	Value string      `json:"value" yaml:"value"`
}

// ID returns an identifier locator.
func ID(id string) Locator { return Locator{Kind: ByID, Value: id} }

// CSS returns a CSS selector locator.
func CSS(selector string) Locator { return Locator{Kind: ByCSS, Value: selector} }

// XPath returns a structural path locator.
func XPath(expr string) Locator { return Locator{Kind: ByXPath, Value: expr} }

// String renders the locator in the "kind=value" form accepted by ParseLocator.
func (l Locator) String() string {
	return string(l.Kind) + "=" + l.Value
}

// ParseLocator parses the textual "kind=value" form used in configuration files.
// A value without a recognised kind prefix is treated as a CSS selector, except
// that values starting with "//" or "(" are treated as XPath.
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, fmt.Errorf("empty locator")
	}
	if kind, value, ok := strings.Cut(s, "="); ok {
		k := LocatorKind(strings.ToLower(strings.TrimSpace(kind)))
		if k.Valid() {
			value = strings.TrimSpace(value)
			if value == "" {
				return Locator{}, fmt.Errorf("locator %q has an empty value", s)
			}
			return Locator{Kind: k, Value: value}, nil
		}
	}
	if strings.HasPrefix(s, "//") || strings.HasPrefix(s, "(") {
		return XPath(s), nil
	}
	return CSS(s), nil
}

// LocatorSet is an ordered list of alternative locators for one logical target.
// Earlier entries are preferred.
type LocatorSet []Locator

// ParseLocatorSet parses every entry with ParseLocator, preserving order.
func ParseLocatorSet(raw []string) (LocatorSet, error) {
	set := make(LocatorSet, 0, len(raw))
	for i, s := range raw {
		l, err := ParseLocator(s)
		if err != nil {
			return nil, fmt.Errorf("locator %d: %w", i, err)
		}
		set = append(set, l)
	}
	return set, nil
}

// Strings renders the set back into its textual form.
func (s LocatorSet) Strings() []string {
	out := make([]string, len(s))
	for i, l := range s {
		out[i] = l.String()
	}
	return out
}

// XPathLiteral quotes text for safe use inside an XPath expression.
// XPath 1.0 has no escape sequences, so text containing both quote styles is
// rendered with concat().
func XPathLiteral(text string) string {
	if !strings.Contains(text, "'") {
		return "'" + text + "'"
	}
	if !strings.Contains(text, `"`) {
		return `"` + text + `"`
	}
	parts := strings.Split(text, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
