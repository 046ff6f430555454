package refdata

import "strings"

// Party holds the canonical identity of a political party. Aliases cover
// superseded names (pre-merger parties), formal long names, and the short
// forms that appear in news text and model output.
type Party struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"` // Canonical name
	ShortName string   `json:"shortName"`
	Color     string   `json:"color"`
	Aliases   []string `json:"aliases,omitempty"`
}

// Parties lists the canonical party table. The order is significant: the
// normalizer's containment pass walks aliases in this order and the first
// match wins.
var Parties = []Party{
	{ID: "ldp", Name: "自民党", ShortName: "自民", Color: "#FF0000",
		Aliases: []string{"自由民主党"}},
	{ID: "cra", Name: "中道改革連合", ShortName: "中道", Color: "#00529B",
		Aliases: []string{"立憲民主党", "立民", "希望の党", "中道連合"}},
	{ID: "ishin", Name: "日本維新の会", ShortName: "維新", Color: "#00A651",
		Aliases: []string{"おおさか維新の会", "維新の会", "維新"}},
	{ID: "komeito", Name: "公明党", ShortName: "公明", Color: "#F39800"},
	{ID: "dpfp", Name: "国民民主党", ShortName: "国民", Color: "#FF7F00"},
	{ID: "jcp", Name: "共産党", ShortName: "共産", Color: "#DB0027",
		Aliases: []string{"日本共産党"}},
	{ID: "reiwa", Name: "れいわ新選組", ShortName: "れいわ", Color: "#ED6D8D"},
	{ID: "sdp", Name: "社民党", ShortName: "社民", Color: "#ED008C",
		Aliases: []string{"社会民主党"}},
	{ID: "sansei", Name: "参政党", ShortName: "参政", Color: "#FFA500"},
	{ID: "independent", Name: "無所属", ShortName: "無", Color: "#808080"},
}

// PartyByName returns the party whose canonical or short name matches, or
// nil when unknown.
func PartyByName(name string) *Party {
	for i := range Parties {
		if Parties[i].Name == name || Parties[i].ShortName == name {
			return &Parties[i]
		}
	}
	return nil
}

// aliasEntry pairs one alias string with its canonical party name. Entries
// are kept in a slice so lookup order is fixed.
type aliasEntry struct {
	alias     string
	canonical string
}

// Normalizer maps free-text party names, including historical and merged
// party names, to canonical party names. Normalization is pure and
// idempotent; unknown names pass through unchanged.
type Normalizer struct {
	entries   []aliasEntry
	canonical map[string]struct{}
}

// NewNormalizer builds a normalizer over the given party table. Alias
// entries keep the table order so containment matching is deterministic.
func NewNormalizer(parties []Party) *Normalizer {
	n := &Normalizer{canonical: make(map[string]struct{}, len(parties))}
	for _, p := range parties {
		n.canonical[p.Name] = struct{}{}
		for _, a := range p.Aliases {
			n.entries = append(n.entries, aliasEntry{alias: a, canonical: p.Name})
		}
		if p.ShortName != "" && p.ShortName != p.Name {
			n.entries = append(n.entries, aliasEntry{alias: p.ShortName, canonical: p.Name})
		}
	}
	return n
}

// Normalize resolves name to its canonical party name. Resolution order:
// exact alias match, exact canonical match, containment match against the
// alias table (first match wins), otherwise the input unchanged. Empty
// input normalizes to the empty string.
func (n *Normalizer) Normalize(name string) string {
	if name == "" {
		return ""
	}
	for _, e := range n.entries {
		if e.alias == name {
			return e.canonical
		}
	}
	if _, ok := n.canonical[name]; ok {
		return name
	}
	for _, e := range n.entries {
		if strings.Contains(name, e.alias) {
			return e.canonical
		}
	}
	return name
}
