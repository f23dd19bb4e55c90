package engine

// Item is one catalog entry. Only ID is meaningful to the engine; the other
// fields are carried through for presentation.
type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Faction   string `json:"faction"`
	Type      string `json:"type"`
	Rarity    string `json:"rarity"`
	Thumbnail string `json:"thumbnail,omitempty"`
}
