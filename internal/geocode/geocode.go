package geocode

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed gazetteer.yaml
var gazetteer []byte

type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

type stateEntry struct {
	State     string `yaml:"state"`
	Districts []struct {
		Name  string `yaml:"name"`
		Point `yaml:",inline"`
	} `yaml:"districts"`
}

// Gazetteer is a read-only district lookup; safe for concurrent use.
type Gazetteer struct {
	points map[string]Point
}

func key(district, state string) string {
	norm := func(s string) string { return strings.ToLower(strings.Join(strings.Fields(s), " ")) }
	return norm(district) + "|" + norm(state)
}

// Parse builds a gazetteer from YAML. Duplicate district/state pairs are an error.
func Parse(data []byte) (*Gazetteer, error) {
	var entries []stateEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse gazetteer: %w", err)
	}
	g := &Gazetteer{points: map[string]Point{}}
	for _, s := range entries {
		for _, d := range s.Districts {
			k := key(d.Name, s.State)
			if _, dup := g.points[k]; dup {
				return nil, fmt.Errorf("gazetteer: duplicate district %q in %q", d.Name, s.State)
			}
			g.points[k] = d.Point
		}
	}
	return g, nil
}

// Default is the embedded gazetteer.
func Default() *Gazetteer {
	g, err := Parse(gazetteer)
	if err != nil {
		panic(err)
	}
	return g
}

// Lookup ignores case and extra whitespace; nil when unknown.
func (g *Gazetteer) Lookup(district, state string) *Point {
	p, ok := g.points[key(district, state)]
	if !ok {
		return nil
	}
	return &p
}

func (g *Gazetteer) Len() int { return len(g.points) }
