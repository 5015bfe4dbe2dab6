// internal/models/client.go
package models

import (
	"fmt"
	"sort"
	"strings"
)

// AttrValue is one client attribute: a scalar string or an ordered list of
// strings. Nested structures are rejected at load time so interpolation
// stays well-defined.
type AttrValue struct {
	scalar string
	list   []string
	isList bool
}

func StringAttr(s string) AttrValue {
	return AttrValue{scalar: s}
}

func ListAttr(items ...string) AttrValue {
	copied := make([]string, len(items))
	copy(copied, items)
	return AttrValue{list: copied, isList: true}
}

// ParseAttrValue converts a decoded JSON value into a typed attribute.
func ParseAttrValue(raw interface{}) (AttrValue, error) {
	switch val := raw.(type) {
	case string:
		return StringAttr(val), nil
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return AttrValue{}, fmt.Errorf("list items must be strings, got %T", item)
			}
			items = append(items, s)
		}
		return ListAttr(items...), nil
	default:
		return AttrValue{}, fmt.Errorf("attribute must be a string or a list of strings, got %T", raw)
	}
}

func (v AttrValue) IsList() bool {
	return v.isList
}

// Render returns the textual representation: the scalar itself, or the list
// joined with the given separator.
func (v AttrValue) Render(separator string) string {
	if v.isList {
		return strings.Join(v.list, separator)
	}
	return v.scalar
}

// Strings returns the attribute as a list (single-element for scalars).
func (v AttrValue) Strings() []string {
	if v.isList {
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	}
	return []string{v.scalar}
}

// ClientContext is the immutable business-attribute record for one tenant.
// Instances are built once at load time and never mutated afterwards.
type ClientContext struct {
	ClientID    string
	DisplayName string
	Industry    string
	Market      string
	Attributes  map[string]AttrValue
}

// Clone returns a copy backed by its own attribute map. AttrValue only hands
// out copies of its contents, so the map is the single piece of shared state
// to sever.
func (c *ClientContext) Clone() *ClientContext {
	attrs := make(map[string]AttrValue, len(c.Attributes))
	for k, v := range c.Attributes {
		attrs[k] = v
	}
	return &ClientContext{
		ClientID:    c.ClientID,
		DisplayName: c.DisplayName,
		Industry:    c.Industry,
		Market:      c.Market,
		Attributes:  attrs,
	}
}

// TokenValues returns the interpolation mapping for this client: every open
// attribute plus the required core keys.
func (c *ClientContext) TokenValues() map[string]AttrValue {
	out := make(map[string]AttrValue, len(c.Attributes)+4)
	for k, v := range c.Attributes {
		out[k] = v
	}
	out[TokenClientID] = StringAttr(c.ClientID)
	out[TokenDisplayName] = StringAttr(c.DisplayName)
	out[TokenIndustry] = StringAttr(c.Industry)
	out[TokenMarket] = StringAttr(c.Market)
	return out
}

// ProfileBlock renders the open attributes as labeled lines in key order.
func (c *ClientContext) ProfileBlock(separator string) string {
	if len(c.Attributes) == 0 {
		return ""
	}

	keys := make([]string, 0, len(c.Attributes))
	for k := range c.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(c.Attributes[k].Render(separator))
	}
	return b.String()
}
