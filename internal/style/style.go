// Package style maps ship factions and rarities to their display colours and
// flag glyphs.
package style

import (
	"maps"
	"slices"
)

type Faction struct {
	Accent string `json:"accent"`
	Flag   string `json:"flag"`
}

// Other is the entry for any faction not listed.
const Other = "other"

const DefaultRarityColor = "#9ca3af"

// order is the display order of the filter bar.
var order = []string{
	"Eagle Union", "Royal Navy", "Sakura Empire", "Iron Blood", "Dragon Empery",
	"Sardegna Empire", "Northern Parliament", "Iris Libre", "Vichya Dominion",
	"Tempesta", "META", "Neptunia", "Bilibili", "Utawarerumono", "Kizuna AI",
	"Hololive", "Venus Vacation", "The Idolmaster", "SSSS.Gridman",
	"Atelier Ryza", "Senran Kagura", "To Love-Ru",
}

var factions = map[string]Faction{
	"Eagle Union":         {Accent: "#60a5fa", Flag: "🦅"},
	"Royal Navy":          {Accent: "#a78bfa", Flag: "👑"},
	"Sakura Empire":       {Accent: "#f9a8d4", Flag: "🌸"},
	"Iron Blood":          {Accent: "#d4d4d8", Flag: "⚙️"},
	"Dragon Empery":       {Accent: "#fca5a5", Flag: "🐉"},
	"Sardegna Empire":     {Accent: "#6ee7b7", Flag: "🦁"},
	"Northern Parliament": {Accent: "#67e8f9", Flag: "❄️"},
	"Iris Libre":          {Accent: "#e879f9", Flag: "⚜️"},
	"Vichya Dominion":     {Accent: "#f0abfc", Flag: "🌹"},
	"Tempesta":            {Accent: "#fbbf24", Flag: "🌩️"},
	"META":                {Accent: "#94a3b8", Flag: "🌀"},
	"Neptunia":            {Accent: "#c084fc", Flag: "🎮"},
	"Bilibili":            {Accent: "#fb923c", Flag: "📺"},
	"Utawarerumono":       {Accent: "#4ade80", Flag: "🎭"},
	"Kizuna AI":           {Accent: "#f472b6", Flag: "🤖"},
	"Hololive":            {Accent: "#34d399", Flag: "🎙️"},
	"Venus Vacation":      {Accent: "#fde68a", Flag: "🌴"},
	"The Idolmaster":      {Accent: "#fb7185", Flag: "⭐"},
	"SSSS.Gridman":        {Accent: "#38bdf8", Flag: "🦸"},
	"Atelier Ryza":        {Accent: "#fb923c", Flag: "⚗️"},
	"Senran Kagura":       {Accent: "#f9a8d4", Flag: "🎌"},
	"To Love-Ru":          {Accent: "#fb7185", Flag: "💫"},
	Other:                 {Accent: "#9ca3af", Flag: "🚢"},
}

var rarities = map[string]string{
	"Normal":     "#9ca3af",
	"Rare":       "#60a5fa",
	"Elite":      "#c084fc",
	"Super Rare": "#fbbf24",
	"Ultra Rare": "#f87171",
	"Priority":   "#34d399",
	"Decisive":   "#f87171",
}

// ForFaction never fails; unknown names get the Other entry.
func ForFaction(name string) Faction {
	if f, ok := factions[name]; ok {
		return f
	}
	return factions[Other]
}

func RarityColor(rarity string) string {
	if c, ok := rarities[rarity]; ok {
		return c
	}
	return DefaultRarityColor
}

// Factions lists the named factions in display order, without Other.
func Factions() []string {
	return slices.Clone(order)
}

// Table is the whole lookup, as served to clients.
type Table struct {
	Factions      map[string]Faction `json:"factions"`
	Order         []string           `json:"order"`
	Rarities      map[string]string  `json:"rarities"`
	DefaultRarity string             `json:"defaultRarity"`
}

func Lookup() Table {
	return Table{
		Factions:      maps.Clone(factions),
		Order:         Factions(),
		Rarities:      maps.Clone(rarities),
		DefaultRarity: DefaultRarityColor,
	}
}
