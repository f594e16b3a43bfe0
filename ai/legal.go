package ai

import (
	"fmt"
	"slices"

	"showdown-agent/game"
)

const maxTeamSize = 6

type switchCandidate struct {
	Slot    int // 1-based roster position
	Pokemon game.RequestPokemon
}

type moveOption struct {
	Choice string
	Slot   int
	Move   string
	Target string
	ZMove  bool
}

// forcedCandidates lists bench slots that may replace active slot i. A
// reviving slot may only pick fainted teammates; every other slot only
// healthy ones.
func forcedCandidates(req *game.Request, i int, chosen []int) []switchCandidate {
	team := req.Side.Pokemon
	reviving := i < len(team) && team[i].Reviving
	var out []switchCandidate
	for j := len(req.ForceSwitch) + 1; j <= maxTeamSize && j <= len(team); j++ {
		if slices.Contains(chosen, j) {
			continue
		}
		if team[j-1].Fainted() != reviving {
			continue
		}
		out = append(out, switchCandidate{Slot: j, Pokemon: team[j-1]})
	}
	return out
}

// benchCandidates lists inactive, healthy slots not already picked this turn.
func benchCandidates(req *game.Request, chosen []int) []switchCandidate {
	team := req.Side.Pokemon
	var out []switchCandidate
	for j := 1; j <= maxTeamSize && j <= len(team); j++ {
		p := team[j-1]
		if p.Active || p.Fainted() || slices.Contains(chosen, j) {
			continue
		}
		out = append(out, switchCandidate{Slot: j, Pokemon: p})
	}
	return out
}

func hasAlly(req *game.Request, i int) bool {
	team := req.Side.Pokemon
	ally := i ^ 1
	return len(req.Active) > 1 && ally < len(team) && !team[ally].Fainted()
}

// moveOptions builds the legal move choices for active slot i, including
// z-move variants when allowed. Targets are only spelled out in multi-active
// formats.
func moveOptions(req *game.Request, i int, active game.ActiveRequest, allowZ bool) []moveOption {
	slots := active.Moves
	// Already dynamaxed: the request offers max moves instead.
	if !active.CanDynamax && active.MaxMoves != nil && len(active.MaxMoves.MaxMoves) > 0 {
		slots = active.MaxMoves.MaxMoves
	}

	var opts []moveOption
	for j, m := range slots {
		if m.Disabled.Set {
			continue
		}
		opts = append(opts, moveOption{Slot: j + 1, Move: m.Move, Target: m.Target})
	}
	if allowZ {
		for j, z := range active.CanZMove {
			if z == nil {
				continue
			}
			opts = append(opts, moveOption{Slot: j + 1, Move: z.Move, Target: z.Target, ZMove: true})
		}
	}

	ally := hasAlly(req, i)
	filtered := slices.DeleteFunc(slices.Clone(opts), func(o moveOption) bool {
		return o.Target == "adjacentAlly" && !ally
	})
	if len(filtered) > 0 {
		opts = filtered
	}

	doubles := len(req.Active) > 1
	for k := range opts {
		o := &opts[k]
		o.Choice = fmt.Sprintf("move %d", o.Slot)
		if doubles {
			switch o.Target {
			case "normal", "any", "adjacentFoe":
				o.Choice += " 1"
			case "adjacentAlly":
				o.Choice += fmt.Sprintf(" -%d", (i^1)+1)
			case "adjacentAllyOrSelf":
				if ally {
					o.Choice += " -1"
				} else {
					o.Choice += fmt.Sprintf(" -%d", i+1)
				}
			}
		}
		if o.ZMove {
			o.Choice += " zmove"
		}
	}
	return opts
}

func hasUsableMoves(active game.ActiveRequest) bool {
	return slices.ContainsFunc(active.Moves, func(m game.MoveSlot) bool { return !m.Disabled.Set })
}

// mechanics tracks the once-per-side transformations still available this
// call; a mechanic is offered only when every slot so far allows it.
type mechanics struct {
	mega, ultra, zmove, dynamax, tera bool
}

func allMechanics() mechanics {
	return mechanics{mega: true, ultra: true, zmove: true, dynamax: true, tera: true}
}

func (m *mechanics) narrow(active game.ActiveRequest) {
	m.mega = m.mega && active.CanMegaEvo
	m.ultra = m.ultra && active.CanUltraBurst
	m.zmove = m.zmove && len(active.CanZMove) > 0
	m.dynamax = m.dynamax && active.CanDynamax
	m.tera = m.tera && active.CanTerastallize.Set
}

// slotLocked reports slots that must pass on a move request.
func slotLocked(req *game.Request, i int) bool {
	team := req.Side.Pokemon
	if i >= len(team) {
		return true
	}
	return team[i].Fainted() || team[i].Commanding
}
