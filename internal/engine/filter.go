package engine

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FilterAll matches every value of a facet.
const FilterAll = "All"

// Filter narrows the selection queue by faction and hull type. Both facets
// must match.
type Filter struct {
	Faction string `json:"faction"`
	Type    string `json:"type"`
}

var AllItems = Filter{Faction: FilterAll, Type: FilterAll}

func (f Filter) normalized() Filter {
	if f.Faction == "" {
		f.Faction = FilterAll
	}
	if f.Type == "" {
		f.Type = FilterAll
	}
	return f
}

func (f Filter) Match(it Item) bool {
	f = f.normalized()
	return (f.Faction == FilterAll || it.Faction == f.Faction) &&
		(f.Type == FilterAll || it.Type == f.Type)
}

// Types lists the distinct hull types in catalog, sorted for display and
// prefixed with FilterAll.
func Types(catalog []Item) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range catalog {
		if !seen[it.Type] {
			seen[it.Type] = true
			out = append(out, it.Type)
		}
	}
	collate.New(language.English, collate.Loose).SortStrings(out)
	return slices.Insert(out, 0, FilterAll)
}
