package data

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Category string

const (
	Physical Category = "Physical"
	Special  Category = "Special"
	Status   Category = "Status"
)

type BaseStats struct {
	HP  int `json:"hp"`
	Atk int `json:"atk"`
	Def int `json:"def"`
	Spa int `json:"spa"`
	Spd int `json:"spd"`
	Spe int `json:"spe"`
}

type Species struct {
	Name      string
	Types     []string
	BaseStats BaseStats
}

// BST is the sum of the six base stats.
func (s Species) BST() int {
	b := s.BaseStats
	return b.HP + b.Atk + b.Def + b.Spa + b.Spd + b.Spe
}

type Move struct {
	Name      string
	Type      string
	Category  Category
	BasePower int
	// Accuracy is 0 for moves that never miss.
	Accuracy int
	Priority int
	Boosts   map[string]int
	Heal     bool
	Status   string
	Target   string
}

// Dex is the read-only species and move oracle.
type Dex interface {
	Species(name string) (Species, bool)
	Move(name string) (Move, bool)
}

type RawPokemonData struct {
	Name      string    `json:"name"`
	Types     []string  `json:"types"`
	BaseStats BaseStats `json:"baseStats"`
}

type RawMoveData struct {
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Category  string          `json:"category"`
	Power     int             `json:"basePower"`
	Accuracy  json.RawMessage `json:"accuracy"`
	Priority  int             `json:"priority"`
	Boosts    map[string]int  `json:"boosts"`
	Heal      []int           `json:"heal"`
	Status    string          `json:"status"`
	Target    string          `json:"target"`
	SelfBoost *struct {
		Boosts map[string]int `json:"boosts"`
	} `json:"selfBoost"`
}

// Store is a Dex backed by in-memory maps keyed by ToID.
type Store struct {
	pokemon map[string]Species
	moves   map[string]Move
}

func NewStore(species []Species, moves []Move) *Store {
	s := &Store{
		pokemon: make(map[string]Species, len(species)),
		moves:   make(map[string]Move, len(moves)),
	}
	for _, p := range species {
		s.pokemon[ToID(p.Name)] = p
	}
	for _, m := range moves {
		s.moves[ToID(m.Name)] = m
	}
	return s
}

// LoadStore reads Showdown's pokedex and moves JSON exports.
func LoadStore(pokedexPath, movesPath string) (*Store, error) {
	species, err := loadPokemonData(pokedexPath)
	if err != nil {
		return nil, fmt.Errorf("cargando pokedex %s: %w", pokedexPath, err)
	}
	moves, err := loadMoveData(movesPath)
	if err != nil {
		return nil, fmt.Errorf("cargando movimientos %s: %w", movesPath, err)
	}
	return NewStore(species, moves), nil
}

func loadPokemonData(path string) ([]Species, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rawData map[string]RawPokemonData
	if err := json.NewDecoder(file).Decode(&rawData); err != nil {
		return nil, err
	}

	species := make([]Species, 0, len(rawData))
	for _, p := range rawData {
		if p.Name == "" {
			continue
		}
		species = append(species, Species{
			Name:      p.Name,
			Types:     p.Types,
			BaseStats: p.BaseStats,
		})
	}
	return species, nil
}

func loadMoveData(path string) ([]Move, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rawData map[string]RawMoveData
	if err := json.NewDecoder(file).Decode(&rawData); err != nil {
		return nil, err
	}

	moves := make([]Move, 0, len(rawData))
	for _, m := range rawData {
		if m.Name == "" {
			continue
		}
		boosts := m.Boosts
		if boosts == nil && m.SelfBoost != nil {
			boosts = m.SelfBoost.Boosts
		}
		moves = append(moves, Move{
			Name:      m.Name,
			Type:      m.Type,
			Category:  Category(m.Category),
			BasePower: m.Power,
			Accuracy:  parseAccuracy(m.Accuracy),
			Priority:  m.Priority,
			Boosts:    boosts,
			Heal:      len(m.Heal) > 0,
			Status:    m.Status,
			Target:    m.Target,
		})
	}
	return moves, nil
}

// accuracy is either a number or `true` (never misses)
func parseAccuracy(raw json.RawMessage) int {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

func (s *Store) Species(name string) (Species, bool) {
	p, ok := s.pokemon[ToID(name)]
	return p, ok
}

func (s *Store) Move(name string) (Move, bool) {
	m, ok := s.moves[ToID(name)]
	return m, ok
}

func (s *Store) Len() (species, moves int) {
	return len(s.pokemon), len(s.moves)
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// ToID converts a display name into Showdown's ID form: "Flabébé" -> "flabebe",
// "Stealth Rock" -> "stealthrock".
func ToID(name string) string {
	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	var sb strings.Builder
	sb.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
