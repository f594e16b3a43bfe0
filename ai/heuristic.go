package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"showdown-agent/calc"
	"showdown-agent/data"
	"showdown-agent/game"
)

var statusPenalty = map[game.Status]float64{
	game.StatusSleep:     50,
	game.StatusFreeze:    40,
	game.StatusParalysis: 25,
	game.StatusBurn:      20,
	game.StatusPoison:    15,
}

var hazardMoves = map[string]bool{
	"stealthrock": true,
	"spikes":      true,
}

var setupMoves = map[string]bool{
	"swordsdance":  true,
	"calmmind":     true,
	"nastyplot":    true,
	"dragondance":  true,
	"quiverdance":  true,
	"bulkup":       true,
	"shellsmash":   true,
	"agility":      true,
	"irondefense":  true,
	"coil":         true,
	"shiftgear":    true,
	"tailglow":     true,
	"geomancy":     true,
	"bellydrum":    true,
	"victorydance": true,
	"tidyup":       true,
}

// MoveRecord is one move the engine chose.
type MoveRecord struct {
	Pokemon string
	Move    string
}

// Heuristic scores switches and moves with fixed weights. One instance
// serves one battle.
type Heuristic struct {
	dex  data.Dex
	calc *calc.Calculator
	log  *slog.Logger

	turns   int
	history []MoveRecord
	scouted []string
}

func NewHeuristic(dex data.Dex, logger *slog.Logger) *Heuristic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Heuristic{dex: dex, calc: calc.NewCalculator(dex), log: logger}
}

// Turns counts answered move requests.
func (h *Heuristic) Turns() int { return h.turns }

func (h *Heuristic) History() []MoveRecord { return h.history }

// Scouted lists the opponent species known at team preview.
func (h *Heuristic) Scouted() []string { return h.scouted }

func (h *Heuristic) TeamPreview(_ context.Context, _ *game.Request, st *game.BattleState) (string, error) {
	if st != nil {
		h.scouted = h.scouted[:0]
		for _, p := range st.Opponent.Roster {
			h.scouted = append(h.scouted, p.Species)
		}
		h.log.Debug("team preview", "opponents", h.scouted)
	}
	return "default", nil
}

func (h *Heuristic) ForceSwitch(_ context.Context, req *game.Request, _ *game.BattleState) (string, error) {
	var chosen []int
	choices := make([]string, len(req.ForceSwitch))
	for i, must := range req.ForceSwitch {
		if !must {
			choices[i] = "pass"
			continue
		}
		cands := forcedCandidates(req, i, chosen)
		if len(cands) == 0 {
			choices[i] = "pass"
			continue
		}
		best := h.bestSwitch(cands)
		chosen = append(chosen, best.Slot)
		choices[i] = fmt.Sprintf("switch %d", best.Slot)
	}
	return strings.Join(choices, ", "), nil
}

func (h *Heuristic) Move(_ context.Context, req *game.Request, st *game.BattleState) (string, error) {
	h.turns++
	team := req.Side.Pokemon
	mech := allMechanics()
	var chosen []int
	choices := make([]string, 0, len(req.Active))

	for i, active := range req.Active {
		if slotLocked(req, i) {
			choices = append(choices, "pass")
			continue
		}
		self := team[i]
		mech.narrow(active)

		opts := moveOptions(req, i, active, mech.zmove)
		bench := benchCandidates(req, chosen)
		hp := game.HPPercent(self.Condition)
		canSwitch := len(bench) > 0 && !active.Trapped

		if canSwitch && (h.shouldSwitch(active, self, hp) || len(opts) == 0) {
			best := h.bestSwitch(bench)
			chosen = append(chosen, best.Slot)
			choices = append(choices, fmt.Sprintf("switch %d", best.Slot))
			continue
		}
		if len(opts) == 0 {
			return "", fmt.Errorf("slot %d (%s): %w", i+1, self.Species(), ErrNoLegalAction)
		}

		best := h.bestMove(opts, hp, h.matchup(st, req, i))
		h.history = append(h.history, MoveRecord{Pokemon: self.Species(), Move: best.Move})

		choice := best.Choice
		switch {
		case best.ZMove:
			mech.zmove = false
		case shouldTransform(hp):
			switch {
			case mech.tera && hp > 30:
				mech.tera = false
				choice += " terastallize"
			case mech.dynamax && hp > 50:
				mech.dynamax = false
				choice += " dynamax"
			case mech.mega && hp > 60:
				mech.mega = false
				choice += " mega"
			case mech.ultra && hp > 50:
				mech.ultra = false
				choice += " ultra"
			}
		}
		choices = append(choices, choice)
	}
	return strings.Join(choices, ", "), nil
}

func (h *Heuristic) shouldSwitch(active game.ActiveRequest, self game.RequestPokemon, hp float64) bool {
	if !hasUsableMoves(active) {
		return true
	}
	if hp < 20 {
		return true
	}
	return game.StatusFromCondition(self.Condition) == game.StatusSleep
}

func shouldTransform(hp float64) bool {
	return hp > 40 && hp < 80
}

func (h *Heuristic) switchScore(p game.RequestPokemon) float64 {
	score := game.HPPercent(p.Condition) * 40
	score -= statusPenalty[game.StatusFromCondition(p.Condition)]
	if sp, ok := h.dex.Species(p.Species()); ok {
		score += float64(sp.BST()) / 5
	}
	return score
}

// bestSwitch keeps the first candidate on ties.
func (h *Heuristic) bestSwitch(cands []switchCandidate) switchCandidate {
	best, bestScore := cands[0], math.Inf(-1)
	for _, c := range cands {
		if s := h.switchScore(c.Pokemon); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

type matchup struct {
	attacker calc.Combatant
	defender calc.Combatant
	cond     calc.Conditions
}

// matchup pits slot i against the first live opposing active, or nil when
// the tracker has not seen one.
func (h *Heuristic) matchup(st *game.BattleState, req *game.Request, i int) *matchup {
	if st == nil {
		return nil
	}
	foe := firstActive(st.Opponent)
	if foe == nil {
		return nil
	}
	return &matchup{
		attacker: requestCombatant(req.Side.Pokemon[i], st.Active(st.Player.ID, i), st.Player.Tera),
		defender: CombatantFor(foe, st.Opponent.Tera),
		cond:     FieldConditions(st, st.Opponent.ID),
	}
}

func (h *Heuristic) moveScore(opt moveOption, hp float64, mu *matchup) float64 {
	mv, ok := h.dex.Move(opt.Move)
	if !ok {
		return 0
	}
	id := data.ToID(mv.Name)

	var score float64
	switch {
	case mv.BasePower > 0:
		score += float64(mv.BasePower) * 1.2
	case mv.Category != data.Status:
		score += 60
	}

	switch {
	case mv.Priority > 0:
		score += float64(mv.Priority) * 15
	case mv.Priority < 0:
		score -= float64(-mv.Priority) * 10
	}

	if mv.Category == data.Status {
		if len(mv.Boosts) > 0 {
			score += 50
		}
		if mv.Heal {
			if hp < 50 {
				score += 60
			} else {
				score += 20
			}
		}
		if mv.Status != "" {
			score += 45
		}
		if hazardMoves[id] {
			score += 40
		}
	}

	if mv.Accuracy > 0 && mv.Accuracy < 100 {
		score *= float64(mv.Accuracy) / 100
	}

	if opt.ZMove {
		if hp < 50 {
			score += 80
		} else {
			score += 40
		}
	}

	if setupMoves[id] {
		score += 35
	}

	if mu != nil && mv.Category != data.Status {
		r := h.calc.Damage(mu.attacker, mu.defender, opt.Move, mu.cond)
		h.log.Debug("damage estimate", "move", opt.Move, "target", mu.defender.Species, "damage", r.String())
		if !r.NonDamaging {
			if r.Effectiveness == 0 {
				return 0
			}
			if r.IsOHKO {
				score += 100
			}
		}
	}
	return score
}

// bestMove keeps the first option on ties.
func (h *Heuristic) bestMove(opts []moveOption, hp float64, mu *matchup) moveOption {
	best, bestScore := opts[0], math.Inf(-1)
	for _, o := range opts {
		if s := h.moveScore(o, hp, mu); s > bestScore {
			best, bestScore = o, s
		}
	}
	return best
}
