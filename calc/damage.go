package calc

import (
	"fmt"
	"math"
	"slices"

	"showdown-agent/data"
)

// Combatant is everything the calculator needs to know about one side of a hit.
type Combatant struct {
	Species       string
	Level         int
	Nature        string
	IVs           Stats
	EVs           Stats
	Item          string
	TeraType      string
	Terastallized bool
	Boosts        map[string]int
	Status        string
}

// Conditions are the ambient field modifiers relevant to a single hit.
type Conditions struct {
	Weather     string
	Terrain     string
	Reflect     bool
	LightScreen bool
	Critical    bool
}

type DamageResult struct {
	MinDamage  int
	MaxDamage  int
	MinPercent float64
	MaxPercent float64
	IsOHKO     bool
	// NonDamaging is set for status moves and for anything the oracle does not know.
	NonDamaging   bool
	Effectiveness float64
}

func (r DamageResult) String() string {
	if r.NonDamaging {
		return "no damage"
	}
	s := fmt.Sprintf("%d-%d (%.1f%%-%.1f%%)", r.MinDamage, r.MaxDamage, r.MinPercent, r.MaxPercent)
	if r.IsOHKO {
		s += " OHKO"
	}
	return s
}

type MoveCalculation struct {
	Move   string
	Result DamageResult
}

// itemImmunities maps an item ID to the move type it nullifies.
var itemImmunities = map[string]string{
	"airballoon": "Ground",
}

type Calculator struct {
	dex data.Dex
}

func NewCalculator(dex data.Dex) *Calculator {
	return &Calculator{dex: dex}
}

// Damage returns the deterministic damage range of one move. It never fails:
// unknown moves or species produce a zero, non-damaging result.
func (c *Calculator) Damage(attacker, defender Combatant, moveName string, cond Conditions) DamageResult {
	move, ok := c.dex.Move(moveName)
	if !ok || move.BasePower == 0 {
		return DamageResult{NonDamaging: true}
	}
	atkSpecies, ok := c.dex.Species(attacker.Species)
	if !ok {
		return DamageResult{NonDamaging: true}
	}
	defSpecies, ok := c.dex.Species(defender.Species)
	if !ok {
		return DamageResult{NonDamaging: true}
	}

	atkStats := CalcStats(atkSpecies.BaseStats, attacker.Level, attacker.IVs, attacker.EVs, attacker.Nature)
	defStats := CalcStats(defSpecies.BaseStats, defender.Level, defender.IVs, defender.EVs, defender.Nature)

	physical := move.Category == data.Physical
	atkKey, defKey := Spa, Spd
	if physical {
		atkKey, defKey = Atk, Def
	}
	attack := ApplyBoost(atkStats.Get(atkKey), attacker.Boosts[string(atkKey)])
	defense := ApplyBoost(defStats.Get(defKey), defender.Boosts[string(defKey)])
	if defense < 1 {
		defense = 1
	}

	level := float64(attacker.Level)
	base := math.Floor(((2*level/5+2)*float64(move.BasePower)*float64(attack)/float64(defense))/50 + 2)

	modifier := 1.0

	atkTypes := atkSpecies.Types
	if attacker.Terastallized && attacker.TeraType != "" {
		atkTypes = []string{attacker.TeraType}
	}
	switch {
	case slices.Contains(atkTypes, move.Type):
		if attacker.Terastallized && attacker.TeraType == move.Type {
			modifier *= 2.0
		} else {
			modifier *= 1.5
		}
	case attacker.Terastallized:
		modifier *= 1.5
	}

	defTypes := defSpecies.Types
	if defender.Terastallized && defender.TeraType != "" {
		defTypes = []string{defender.TeraType}
	}
	eff := Effectiveness(move.Type, defTypes)
	if t, ok := itemImmunities[data.ToID(defender.Item)]; ok && t == move.Type {
		eff = 0
	}
	modifier *= eff

	switch data.ToID(cond.Weather) {
	case "sunnyday", "desolateland":
		if move.Type == "Fire" {
			modifier *= 1.5
		}
		if move.Type == "Water" {
			modifier *= 0.5
		}
	case "raindance", "primordialsea":
		if move.Type == "Water" {
			modifier *= 1.5
		}
		if move.Type == "Fire" {
			modifier *= 0.5
		}
	}

	switch data.ToID(cond.Terrain) {
	case "electricterrain":
		if move.Type == "Electric" {
			modifier *= 1.3
		}
	case "grassyterrain":
		if move.Type == "Grass" {
			modifier *= 1.3
		}
	case "psychicterrain":
		if move.Type == "Psychic" {
			modifier *= 1.3
		}
	case "mistyterrain":
		if move.Type == "Dragon" {
			modifier *= 0.5
		}
	}

	if cond.Reflect && physical {
		modifier *= 0.5
	}
	if cond.LightScreen && !physical {
		modifier *= 0.5
	}
	if cond.Critical {
		modifier *= 1.5
	}
	if attacker.Status == "brn" && physical {
		modifier *= 0.5
	}

	minDamage := int(math.Floor(base * modifier * 0.85))
	maxDamage := int(math.Floor(base * modifier))

	hp := defStats.HP
	return DamageResult{
		MinDamage:     minDamage,
		MaxDamage:     maxDamage,
		MinPercent:    float64(minDamage) / float64(hp) * 100,
		MaxPercent:    float64(maxDamage) / float64(hp) * 100,
		IsOHKO:        minDamage >= hp,
		Effectiveness: eff,
	}
}

// All maps Damage over moves, preserving their order.
func (c *Calculator) All(attacker, defender Combatant, moves []string, cond Conditions) []MoveCalculation {
	out := make([]MoveCalculation, 0, len(moves))
	for _, m := range moves {
		out = append(out, MoveCalculation{Move: m, Result: c.Damage(attacker, defender, m, cond)})
	}
	return out
}

// HPStat is the defender's computed HP, or 0 when the species is unknown.
func (c *Calculator) HPStat(cb Combatant) int {
	sp, ok := c.dex.Species(cb.Species)
	if !ok {
		return 0
	}
	return CalcStat(HP, sp.BaseStats.HP, cb.Level, cb.IVs.HP, cb.EVs.HP, cb.Nature)
}
