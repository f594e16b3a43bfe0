package game

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

type Status string

const (
	StatusNone      Status = ""
	StatusSleep     Status = "slp"
	StatusParalysis Status = "par"
	StatusBurn      Status = "brn"
	StatusPoison    Status = "psn"
	StatusFreeze    Status = "frz"
)

// ParseStatus accepts Showdown's ailment tokens; toxic counts as poison.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "slp":
		return StatusSleep, true
	case "par":
		return StatusParalysis, true
	case "brn":
		return StatusBurn, true
	case "psn", "tox":
		return StatusPoison, true
	case "frz":
		return StatusFreeze, true
	}
	return StatusNone, false
}

type Weather string

const (
	WeatherNone          Weather = ""
	WeatherSun           Weather = "SunnyDay"
	WeatherRain          Weather = "RainDance"
	WeatherSand          Weather = "Sandstorm"
	WeatherHail          Weather = "Hail"
	WeatherSnow          Weather = "Snow"
	WeatherDesolateLand  Weather = "DesolateLand"
	WeatherPrimordialSea Weather = "PrimordialSea"
	WeatherDeltaStream   Weather = "DeltaStream"
)

var weathers = []Weather{
	WeatherSun, WeatherRain, WeatherSand, WeatherHail, WeatherSnow,
	WeatherDesolateLand, WeatherPrimordialSea, WeatherDeltaStream,
}

func ParseWeather(s string) (Weather, bool) {
	for _, w := range weathers {
		if strings.EqualFold(string(w), s) {
			return w, true
		}
	}
	return WeatherNone, false
}

// BoostKeys are the only stages the tracker keeps.
var BoostKeys = []string{"atk", "def", "spa", "spd", "spe", "accuracy", "evasion"}

func isBoostKey(k string) bool {
	return slices.Contains(BoostKeys, k)
}

func clampStage(v int) int {
	return max(-6, min(6, v))
}

// Tera records who terastallized and into what.
type Tera struct {
	Species string
	Type    string
}

type Pokemon struct {
	Species string
	Name    string
	Details string
	// Forme is the current displayed forme after a detailschange; Species stays the stable key.
	Forme     string
	Level     int
	Condition string
	Status    Status
	Boosts    map[string]int
	Tera      *Tera
	Ability   string
	Moves     []string

	// unconfirmed marks an entry first seen on its own switch-in; an
	// Illusion can leave such an entry behind.
	unconfirmed bool
}

func (p *Pokemon) Fainted() bool {
	return IsFaintedCondition(p.Condition)
}

func (p *Pokemon) HPPercent() float64 {
	return HPPercent(p.Condition)
}

func (p *Pokemon) Boost(stat string) int {
	return p.Boosts[stat]
}

func (p *Pokemon) addMove(move string) {
	if !slices.Contains(p.Moves, move) {
		p.Moves = append(p.Moves, move)
	}
}

var hpPattern = regexp.MustCompile(`^(\d+)/(\d+)`)

// HPPercent parses "<cur>/<max>[ status]"; anything unparseable counts as full.
func HPPercent(condition string) float64 {
	m := hpPattern.FindStringSubmatch(strings.TrimSpace(condition))
	if m == nil {
		return 100
	}
	cur, _ := strconv.Atoi(m[1])
	total, _ := strconv.Atoi(m[2])
	if total == 0 {
		return 100
	}
	return float64(cur) / float64(total) * 100
}

func IsFaintedCondition(condition string) bool {
	return strings.HasSuffix(strings.TrimSpace(condition), " fnt") || strings.TrimSpace(condition) == "fnt"
}

// StatusFromCondition reads the ailment suffix of an HP string.
func StatusFromCondition(condition string) Status {
	parts := strings.Fields(condition)
	if len(parts) < 2 {
		return StatusNone
	}
	st, _ := ParseStatus(parts[1])
	return st
}

// CanonicalSpecies strips a parenthetical form annotation:
// "Tauros-Paldea-Blaze (Tauros)" -> "Tauros-Paldea-Blaze".
func CanonicalSpecies(name string) string {
	if i := strings.Index(name, "("); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

type Side struct {
	ID     string
	Name   string
	Roster []*Pokemon
	// Active holds a roster index per slot, -1 when the slot is empty.
	Active     []int
	Effects    map[string]bool
	Eliminated map[string]bool
	Tera       *Tera
}

func newSide(id string) *Side {
	return &Side{
		ID:         id,
		Effects:    make(map[string]bool),
		Eliminated: make(map[string]bool),
	}
}

func (s *Side) ActivePokemon(slot int) *Pokemon {
	if slot < 0 || slot >= len(s.Active) {
		return nil
	}
	idx := s.Active[slot]
	if idx < 0 || idx >= len(s.Roster) {
		return nil
	}
	return s.Roster[idx]
}

func (s *Side) find(species string) int {
	key := CanonicalSpecies(species)
	for i, p := range s.Roster {
		if CanonicalSpecies(p.Species) == key {
			return i
		}
	}
	return -1
}

func (s *Side) findByName(name string) *Pokemon {
	for _, p := range s.Roster {
		if p.Name == name {
			return p
		}
	}
	if i := s.find(name); i >= 0 {
		return s.Roster[i]
	}
	return nil
}

// lookup resolves a slot, falling back to a roster search for slotless tags.
func (s *Side) lookup(slot int, name string) *Pokemon {
	if p := s.ActivePokemon(slot); p != nil {
		return p
	}
	if name == "" {
		return nil
	}
	return s.findByName(name)
}

func (s *Side) setActive(slot, idx int) {
	for len(s.Active) <= slot {
		s.Active = append(s.Active, -1)
	}
	s.Active[slot] = idx
}

func (s *Side) isActive(idx int) bool {
	return slices.Contains(s.Active, idx)
}

// scout adds a species to the roster if it is not already known.
func (s *Side) scout(species, details string) *Pokemon {
	species = CanonicalSpecies(species)
	if species == "" {
		return nil
	}
	if i := s.find(species); i >= 0 {
		return s.Roster[i]
	}
	p := &Pokemon{
		Species:   species,
		Name:      species,
		Details:   details,
		Level:     levelFromDetails(details),
		Condition: "100/100",
		Boosts:    make(map[string]int),
	}
	s.Roster = append(s.Roster, p)
	return p
}

func (s *Side) switchIn(slot int, species, name, details, hp string) {
	idx := s.find(species)
	if idx < 0 || (s.isActive(idx) && s.ActivePokemon(slot) != s.Roster[idx]) {
		s.Roster = append(s.Roster, &Pokemon{Species: species, unconfirmed: true})
		idx = len(s.Roster) - 1
	} else {
		s.Roster[idx].unconfirmed = false
	}
	p := s.Roster[idx]
	p.Species = species
	p.Name = name
	p.Details = details
	p.Forme = ""
	p.Level = levelFromDetails(details)
	if hp != "" {
		p.Condition = hp
	}
	p.Status = StatusFromCondition(hp)
	p.Boosts = make(map[string]int)
	s.setActive(slot, idx)
	delete(s.Eliminated, species)
}

// reveal handles an Illusion ending in slot. The combatant on the field is
// the same, so its condition and boosts move to the real species, and the
// disguise is dropped unless it was known before this switch-in.
func (s *Side) reveal(slot int, species, name, details, hp string) {
	mask := s.ActivePokemon(slot)
	if mask == nil {
		s.switchIn(slot, species, name, details, hp)
		return
	}
	if CanonicalSpecies(mask.Species) == species {
		mask.Name, mask.Details = name, details
		return
	}

	idx := s.find(species)
	if idx < 0 {
		s.Roster = append(s.Roster, &Pokemon{Species: species})
		idx = len(s.Roster) - 1
	}
	p := s.Roster[idx]
	p.Name = name
	p.Details = details
	p.Forme = ""
	p.Level = levelFromDetails(details)
	p.Condition = mask.Condition
	p.Status = mask.Status
	if hp != "" {
		p.Condition = hp
		if st := StatusFromCondition(hp); st != StatusNone {
			p.Status = st
		}
	}
	p.Boosts = mask.Boosts
	for _, m := range mask.Moves {
		p.addMove(m)
	}
	p.unconfirmed = false
	mask.Boosts = make(map[string]int)
	s.setActive(slot, idx)
	delete(s.Eliminated, species)

	if mask.unconfirmed {
		s.drop(mask)
	}
}

// drop removes p from the roster and shifts the active indices past it.
func (s *Side) drop(p *Pokemon) {
	i := slices.Index(s.Roster, p)
	if i < 0 {
		return
	}
	s.Roster = slices.Delete(s.Roster, i, i+1)
	for k, idx := range s.Active {
		switch {
		case idx == i:
			s.Active[k] = -1
		case idx > i:
			s.Active[k] = idx - 1
		}
	}
}

func levelFromDetails(details string) int {
	for _, part := range strings.Split(details, ",") {
		part = strings.TrimSpace(part)
		if len(part) > 1 && part[0] == 'L' {
			if lvl, err := strconv.Atoi(part[1:]); err == nil {
				return lvl
			}
		}
	}
	return 100
}

func speciesFromDetails(details string) string {
	name, _, _ := strings.Cut(details, ",")
	return CanonicalSpecies(name)
}

type Field struct {
	Weather  Weather
	Terrains map[string]bool
}

func (f Field) TerrainList() []string {
	out := make([]string, 0, len(f.Terrains))
	for t := range f.Terrains {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

type BattleState struct {
	Turn        int
	Initialized bool
	Ended       bool
	Winner      string
	Tie         bool
	MySide      string
	Field       Field
	Player      *Side
	Opponent    *Side
	Request     *Request
	LastRequest *Request

	prevTerrains map[string]bool
}

// NewBattleState creates the state for one battle; mySide is "p1" or "p2".
func NewBattleState(mySide string) *BattleState {
	if mySide != "p2" {
		mySide = "p1"
	}
	s := &BattleState{
		MySide:       mySide,
		Field:        Field{Terrains: make(map[string]bool)},
		prevTerrains: make(map[string]bool),
	}
	s.Player = newSide(mySide)
	s.Opponent = newSide(otherSide(mySide))
	return s
}

func otherSide(id string) string {
	if id == "p1" {
		return "p2"
	}
	return "p1"
}

// SeedPlayer records the player's own known roster. SetRequest seeds it
// from the first request.
func (s *BattleState) SeedPlayer(team []*Pokemon) {
	for _, p := range team {
		if p.Boosts == nil {
			p.Boosts = make(map[string]int)
		}
		p.Species = CanonicalSpecies(p.Species)
		s.Player.Roster = append(s.Player.Roster, p)
	}
}

// Scout records pre-known opponent species.
func (s *BattleState) Scout(species ...string) {
	for _, sp := range species {
		s.Opponent.scout(sp, sp)
	}
}

// SetMySide swaps perspectives when the request reveals we are the other player.
func (s *BattleState) SetMySide(id string) {
	if id != "p1" && id != "p2" {
		return
	}
	if id == s.MySide {
		return
	}
	s.MySide = id
	s.Player, s.Opponent = s.Opponent, s.Player
}

func (s *BattleState) sideFor(tag string) *Side {
	if len(tag) < 2 || tag[0] != 'p' {
		return nil
	}
	switch tag[:2] {
	case s.Player.ID:
		return s.Player
	case s.Opponent.ID:
		return s.Opponent
	}
	return nil
}

func (s *BattleState) side(id string) *Side {
	switch id {
	case s.Player.ID:
		return s.Player
	case s.Opponent.ID:
		return s.Opponent
	}
	return nil
}

// StartTurn advances the turn counter (to n when known) and snapshots the
// terrain set for NewTerrains.
func (s *BattleState) StartTurn(n int) {
	if n <= 0 {
		n = s.Turn + 1
	}
	s.Turn = n
	s.prevTerrains = make(map[string]bool, len(s.Field.Terrains))
	for t := range s.Field.Terrains {
		s.prevTerrains[t] = true
	}
}

// NewTerrains lists field effects that appeared since the last StartTurn.
func (s *BattleState) NewTerrains() []string {
	var out []string
	for _, t := range s.Field.TerrainList() {
		if !s.prevTerrains[t] {
			out = append(out, t)
		}
	}
	return out
}

// AliveOpponents lists known opponent roster entries that have not fainted.
func (s *BattleState) AliveOpponents() []*Pokemon {
	var out []*Pokemon
	for _, p := range s.Opponent.Roster {
		if !s.Opponent.Eliminated[CanonicalSpecies(p.Species)] {
			out = append(out, p)
		}
	}
	return out
}

func (s *BattleState) Active(sideID string, slot int) *Pokemon {
	side := s.side(sideID)
	if side == nil {
		return nil
	}
	return side.ActivePokemon(slot)
}

func (s *BattleState) HasFieldEffect(name string) bool {
	return s.Field.Terrains[strings.TrimPrefix(name, "move: ")]
}

func (s *BattleState) HasSideEffect(sideID, name string) bool {
	side := s.side(sideID)
	return side != nil && side.Effects[strings.TrimPrefix(name, "move: ")]
}

// Terastallized reports the tera record of a side, nil if unused.
func (s *BattleState) Terastallized(sideID string) *Tera {
	side := s.side(sideID)
	if side == nil {
		return nil
	}
	return side.Tera
}

// SetRequest stores a new pending request; the previous one is kept as LastRequest.
func (s *BattleState) SetRequest(req *Request) {
	if req == nil {
		return
	}
	if s.Request != nil {
		s.LastRequest = s.Request
	}
	s.Request = req
	s.SetMySide(req.Side.ID)
	if len(s.Player.Roster) > 0 {
		return
	}
	team := make([]*Pokemon, 0, len(req.Side.Pokemon))
	for _, rp := range req.Side.Pokemon {
		team = append(team, &Pokemon{
			Species:   rp.Species(),
			Name:      rp.Name(),
			Details:   rp.Details,
			Level:     levelFromDetails(rp.Details),
			Condition: rp.Condition,
			Status:    StatusFromCondition(rp.Condition),
			Ability:   rp.BaseAbility,
			Moves:     slices.Clone(rp.Moves),
		})
	}
	s.SeedPlayer(team)
}

// AnswerRequest marks the pending request answered.
func (s *BattleState) AnswerRequest() {
	if s.Request == nil {
		return
	}
	s.LastRequest = s.Request
	s.Request = nil
}
