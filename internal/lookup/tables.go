// Package lookup holds the shared reference data used to label reports:
// monster metadata, move names, region names and monster types.
package lookup

import (
	"fmt"
	"maps"
	"sync"
)

// Placeholder labels for ids missing from the tables.
const (
	UnknownRegion  = "未知地区"
	UnknownAbility = "未知"
	DefaultType    = "normal"
)

// Monster is the display metadata of a boss monster.
type Monster struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Image   string `json:"image"`
	Ability string `json:"ability"`
}

// Update is an additive batch of table entries.
type Update struct {
	Monsters map[int]Monster
	Moves    map[int]string
}

// Empty reports whether the update carries no entries.
func (u Update) Empty() bool {
	return len(u.Monsters) == 0 && len(u.Moves) == 0
}

// Tables owns the lookup maps. Entries are only ever added or overwritten.
type Tables struct {
	mu       sync.RWMutex
	monsters map[int]Monster
	moves    map[int]string
	regions  map[int]string
	types    map[int]string
}

// NewTables returns tables seeded with region names and the embedded monster
// type table. Monster and move tables start empty.
func NewTables() *Tables {
	return &Tables{
		monsters: make(map[int]Monster),
		moves:    make(map[int]string),
		regions:  maps.Clone(regionNames),
		types:    embeddedTypes(),
	}
}

var regionNames = map[int]string{
	0: "关都",
	1: "丰源",
	2: "合众",
	3: "神奥",
	4: "城都",
}

// Monster returns the metadata for id, or a placeholder entry.
func (t *Tables) Monster(id int) Monster {
	t.mu.RLock()
	m, ok := t.monsters[id]
	t.mu.RUnlock()
	if !ok {
		return Monster{
			Name:    fmt.Sprintf("未知宝可梦(#%d)", id),
			Type:    DefaultType,
			Ability: UnknownAbility,
		}
	}
	if m.Type == "" {
		m.Type = DefaultType
	}
	return m
}

// KnowsMonster reports whether id has a real entry.
func (t *Tables) KnowsMonster(id int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.monsters[id]
	return ok
}

// MoveName returns the move name for id. Id 0 is an empty slot and yields "".
func (t *Tables) MoveName(id int) string {
	if id == 0 {
		return ""
	}
	t.mu.RLock()
	name, ok := t.moves[id]
	t.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("技能#%d", id)
	}
	return name
}

// RegionName returns the region name for id, or UnknownRegion.
func (t *Tables) RegionName(id int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if name, ok := t.regions[id]; ok {
		return name
	}
	return UnknownRegion
}

// TypeOf returns the elemental type of a monster id, or DefaultType.
func (t *Tables) TypeOf(id int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if typ, ok := t.types[id]; ok {
		return typ
	}
	return DefaultType
}

// Merge applies u; existing keys are overwritten, nothing is removed.
func (t *Tables) Merge(u Update) {
	if u.Empty() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	maps.Copy(t.monsters, u.Monsters)
	maps.Copy(t.moves, u.Moves)
}

// Snapshot copies the learned monster and move entries.
func (t *Tables) Snapshot() Update {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Update{
		Monsters: maps.Clone(t.monsters),
		Moves:    maps.Clone(t.moves),
	}
}

// Learned buffers the updates a source produced until they are persisted.
type Learned struct {
	mu      sync.Mutex
	pending Update
}

// Add queues u; later entries overwrite earlier ones with the same key.
func (l *Learned) Add(u Update) {
	if u.Empty() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending.Monsters == nil {
		l.pending = Update{Monsters: make(map[int]Monster), Moves: make(map[int]string)}
	}
	maps.Copy(l.pending.Monsters, u.Monsters)
	maps.Copy(l.pending.Moves, u.Moves)
}

// Take returns everything queued since the last call and clears the buffer.
func (l *Learned) Take() Update {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := l.pending
	l.pending = Update{}
	return u
}
