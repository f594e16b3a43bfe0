package ai

import (
	"maps"
	"strings"

	"showdown-agent/calc"
	"showdown-agent/game"
)

// Unknown sets are assumed to be random-battle spreads.
const (
	defaultIV     = 31
	defaultEV     = 84
	defaultNature = "hardy"
)

func teraFor(species string, tera *game.Tera) (string, bool) {
	if tera == nil || game.CanonicalSpecies(tera.Species) != game.CanonicalSpecies(species) {
		return "", false
	}
	return tera.Type, true
}

// CombatantFor snapshots a tracked combatant for the damage calculator.
func CombatantFor(p *game.Pokemon, sideTera *game.Tera) calc.Combatant {
	species := p.Species
	if p.Forme != "" {
		species = p.Forme
	}
	cb := calc.Combatant{
		Species: species,
		Level:   p.Level,
		Nature:  defaultNature,
		IVs:     calc.Uniform(defaultIV),
		EVs:     calc.Uniform(defaultEV),
		Boosts:  maps.Clone(p.Boosts),
		Status:  string(p.Status),
	}
	if t, ok := teraFor(p.Species, sideTera); ok {
		cb.Terastallized, cb.TeraType = true, t
	}
	return cb
}

// requestCombatant builds the attacker from our own request roster, taking
// boosts from the tracker when it has the slot.
func requestCombatant(rp game.RequestPokemon, tracked *game.Pokemon, sideTera *game.Tera) calc.Combatant {
	cb := calc.Combatant{
		Species: rp.Species(),
		Level:   rp.Level(),
		Nature:  defaultNature,
		IVs:     calc.Uniform(defaultIV),
		EVs:     calc.Uniform(defaultEV),
		Item:    rp.Item,
		Status:  string(game.StatusFromCondition(rp.Condition)),
	}
	if tracked != nil {
		cb.Boosts = maps.Clone(tracked.Boosts)
	}
	if t, ok := teraFor(cb.Species, sideTera); ok {
		cb.Terastallized, cb.TeraType = true, t
	}
	return cb
}

// FieldConditions derives damage modifiers from the field, with screens
// read from the defending side.
func FieldConditions(st *game.BattleState, defenderSide string) calc.Conditions {
	cond := calc.Conditions{Weather: string(st.Field.Weather)}
	for _, t := range st.Field.TerrainList() {
		if strings.HasSuffix(t, "Terrain") {
			cond.Terrain = t
			break
		}
	}
	veil := st.HasSideEffect(defenderSide, "Aurora Veil")
	cond.Reflect = veil || st.HasSideEffect(defenderSide, "Reflect")
	cond.LightScreen = veil || st.HasSideEffect(defenderSide, "Light Screen")
	return cond
}

func firstActive(side *game.Side) *game.Pokemon {
	for slot := range side.Active {
		if p := side.ActivePokemon(slot); p != nil && !p.Fainted() {
			return p
		}
	}
	return nil
}
