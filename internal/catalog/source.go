package catalog

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Source is one mirror of the ship list. Sources are tried in slice order.
type Source struct {
	Label string `yaml:"label" json:"label"`
	URL   string `yaml:"url" json:"url"`
}

const upstream = "https://raw.githubusercontent.com/AzurAPI/azurapi-js-setup/master/ships.json"

func DefaultSources() []Source {
	return []Source{
		{Label: "jsDelivr CDN", URL: "https://cdn.jsdelivr.net/gh/AzurAPI/azurapi-js-setup@master/ships.json"},
		{Label: "allorigins proxy", URL: "https://api.allorigins.win/raw?url=" + url.QueryEscape(upstream)},
		{Label: "corsproxy.io", URL: "https://corsproxy.io/?" + url.QueryEscape(upstream)},
	}
}

// LoadSources reads a YAML list of sources:
//
//	- label: local mirror
//	  url: http://localhost:8081/ships.json
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var sources []Source
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("sources file %s lists no sources", path)
	}
	for i, src := range sources {
		if src.URL == "" {
			return nil, fmt.Errorf("sources file %s: entry %d has no url", path, i+1)
		}
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("sources file %s: entry %d: bad url %q", path, i+1, src.URL)
		}
		if src.Label == "" {
			sources[i].Label = u.Host
		}
	}
	return sources, nil
}
