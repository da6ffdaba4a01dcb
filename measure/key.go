// Package measure holds the shared data model of the capability engine:
// element identity, measurement records, tolerance bindings, and the
// locale-aware numeric token parser used when ingesting machine exports.
package measure

import "strings"

// ElementKey identifies one measured characteristic of one part across
// all measurement sources. Client and Reference are always present; the
// remaining fields may be empty when a machine does not report them.
type ElementKey struct {
	Client    string `json:"client"`
	Reference string `json:"reference"`
	Lot       string `json:"lot,omitempty"`
	Element   string `json:"element"`
	Datum     string `json:"datum,omitempty"`
	Property  string `json:"property"`
	Cavity    string `json:"cavity,omitempty"`
}

// Normalized returns the key with every field lower-cased and trimmed.
// Keys are correlated across sources by their normalized form.
func (k ElementKey) Normalized() ElementKey {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return ElementKey{
		Client:    norm(k.Client),
		Reference: norm(k.Reference),
		Lot:       norm(k.Lot),
		Element:   norm(k.Element),
		Datum:     norm(k.Datum),
		Property:  norm(k.Property),
		Cavity:    norm(k.Cavity),
	}
}

// Equal reports whether two keys identify the same characteristic,
// using case-normalized comparison.
func (k ElementKey) Equal(other ElementKey) bool {
	return k.Normalized() == other.Normalized()
}

// ID returns the element|datum|property identifier used in summaries
// and log lines.
func (k ElementKey) ID() string {
	return strings.Join([]string{k.Element, k.Datum, k.Property}, "|")
}

func (k ElementKey) String() string {
	parts := []string{k.Client, k.Reference, k.ID()}
	if k.Lot != "" {
		parts = append(parts, "lot="+k.Lot)
	}
	if k.Cavity != "" {
		parts = append(parts, "cavity="+k.Cavity)
	}
	return strings.Join(parts, " ")
}
