package lookup

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
)

//go:embed data/*.json
var dataFS embed.FS

// loadIntKeyed decodes an embedded JSON object keyed by decimal ids.
func loadIntKeyed[V any](name string) (map[int]V, error) {
	raw, err := dataFS.ReadFile("data/" + name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var byKey map[string]V
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	out := make(map[int]V, len(byKey))
	for k, v := range byKey {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%s: bad id %q", name, k)
		}
		out[id] = v
	}
	return out, nil
}

// The embedded files ship with the binary; a decode failure is a build defect.
func mustLoad[V any](name string) map[int]V {
	m, err := loadIntKeyed[V](name)
	if err != nil {
		panic(err)
	}
	return m
}

func embeddedTypes() map[int]string    { return mustLoad[string]("types.json") }
func embeddedMoves() map[int]string    { return mustLoad[string]("moves.json") }
func embeddedMonsters() map[int]Monster { return mustLoad[Monster]("monsters.json") }
