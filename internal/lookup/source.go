package lookup

import (
	"fmt"
	"regexp"
	"strings"

	"boss-spawn-board/internal/models"
)

// Source fills Tables. Observe is called with every dataset that becomes
// current and returns what it merged.
type Source interface {
	Name() string
	Tables() *Tables
	Observe(reports []models.MonsterReport) Update
}

// NewSource returns the source registered under kind ("static" or "text").
func NewSource(kind string, t *Tables) (Source, error) {
	switch kind {
	case "static":
		return NewStaticSource(t), nil
	case "text":
		return NewTextSource(t), nil
	default:
		return nil, fmt.Errorf("unknown lookup source %q", kind)
	}
}

// StaticSource preloads the embedded monster and move tables and learns
// nothing from reports.
type StaticSource struct {
	tables *Tables
}

func NewStaticSource(t *Tables) *StaticSource {
	t.Merge(Update{Monsters: embeddedMonsters(), Moves: embeddedMoves()})
	return &StaticSource{tables: t}
}

func (s *StaticSource) Name() string    { return "static" }
func (s *StaticSource) Tables() *Tables { return s.tables }

func (s *StaticSource) Observe([]models.MonsterReport) Update { return Update{} }

// SpriteURL is the image used for monsters learned from report text.
const SpriteURL = "https://cdn.jsdelivr.net/gh/PokeAPI/sprites@master/sprites/pokemon/%d.png"

// summaryPattern matches "[头目:<name>][梦特:<ability>][<move1>,<move2>,...](".
var summaryPattern = regexp.MustCompile(`\[头目:(.*)\]\[梦特:(.*)\]\[(.*)\]\(`)

// TextSource learns monster and move names from self-describing summaries.
type TextSource struct {
	tables *Tables
}

func NewTextSource(t *Tables) *TextSource {
	return &TextSource{tables: t}
}

func (s *TextSource) Name() string    { return "text" }
func (s *TextSource) Tables() *Tables { return s.tables }

// Observe parses every report summary and merges what it finds. Summaries
// that do not match are skipped.
func (s *TextSource) Observe(reports []models.MonsterReport) Update {
	u := Update{Monsters: make(map[int]Monster), Moves: make(map[int]string)}
	for i := range reports {
		s.extract(&reports[i], u)
	}
	s.tables.Merge(u)
	return u
}

func (s *TextSource) extract(r *models.MonsterReport, u Update) {
	m := summaryPattern.FindStringSubmatch(r.Summary)
	if m == nil {
		return
	}

	u.Monsters[r.MonsterID] = Monster{
		Name:    m[1],
		Type:    s.tables.TypeOf(r.MonsterID),
		Image:   fmt.Sprintf(SpriteURL, r.MonsterID),
		Ability: m[2],
	}

	ids := r.MoveIDs()
	for i, move := range strings.Split(m[3], ",") {
		if i >= len(ids) {
			break
		}
		if ids[i] != 0 {
			u.Moves[ids[i]] = strings.TrimSpace(move)
		}
	}
}
