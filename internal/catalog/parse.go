package catalog

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/DoyleJ11/fleet-bracket/internal/engine"
)

// versionKey holds the dataset version, not a ship.
const versionKey = "version-number"

const unknown = "Unknown"

var ErrBadShape = errors.New("catalog is neither an object nor an array")

type descriptor struct {
	Names struct {
		EN   string `json:"en"`
		Code string `json:"code"`
	} `json:"names"`
	Nationality string `json:"nationality"`
	HullType    string `json:"hullType"`
	Class       string `json:"class"`
	Rarity      string `json:"rarity"`
	Thumbnail   string `json:"thumbnail"`
	Skins       []struct {
		Image string `json:"image"`
	} `json:"skins"`
}

// Parse decodes a ship list into catalog items ordered by id. The body is
// either an object keyed by id or an array, whose indexes become the ids.
// Entries that are not objects are skipped.
func Parse(body []byte) ([]engine.Item, error) {
	raw, err := entries(body)
	if err != nil {
		return nil, err
	}

	items := make([]engine.Item, 0, len(raw))
	for id, msg := range raw {
		if id == versionKey {
			continue
		}
		var d descriptor
		if err := json.Unmarshal(msg, &d); err != nil {
			continue
		}
		if it, ok := normalize(id, d); ok {
			items = append(items, it)
		}
	}
	slices.SortFunc(items, func(a, b engine.Item) int { return strings.Compare(a.ID, b.ID) })
	return items, nil
}

func entries(body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrBadShape
	}
	switch trimmed[0] {
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		m := make(map[string]json.RawMessage, len(list))
		for i, msg := range list {
			m[strconv.Itoa(i)] = msg
		}
		return m, nil
	}
	if !json.Valid(trimmed) {
		var v any
		return nil, json.Unmarshal(trimmed, &v)
	}
	return nil, ErrBadShape
}

func normalize(id string, d descriptor) (engine.Item, bool) {
	it := engine.Item{
		ID:      id,
		Name:    cmp.Or(d.Names.EN, d.Names.Code, id),
		Faction: cmp.Or(d.Nationality, unknown),
		Type:    cmp.Or(d.HullType, d.Class, unknown),
		Rarity:  cmp.Or(d.Rarity, "Normal"),
	}
	for _, skin := range d.Skins[:min(len(d.Skins), 2)] {
		if skin.Image != "" {
			it.Thumbnail = skin.Image
			break
		}
	}
	if it.Thumbnail == "" {
		it.Thumbnail = d.Thumbnail
	}
	return it, it.Name != ""
}
