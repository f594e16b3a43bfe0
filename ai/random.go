package ai

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"showdown-agent/game"
)

// Random picks uniformly among legal actions.
type Random struct {
	rng *rand.Rand
}

// NewRandom uses rng, or a freshly seeded source when rng is nil.
func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Random{rng: rng}
}

func (r *Random) TeamPreview(context.Context, *game.Request, *game.BattleState) (string, error) {
	return "default", nil
}

func (r *Random) ForceSwitch(_ context.Context, req *game.Request, _ *game.BattleState) (string, error) {
	var chosen []int
	choices := make([]string, len(req.ForceSwitch))
	for i, must := range req.ForceSwitch {
		cands := forcedCandidates(req, i, chosen)
		if !must || len(cands) == 0 {
			choices[i] = "pass"
			continue
		}
		c := cands[r.rng.IntN(len(cands))]
		chosen = append(chosen, c.Slot)
		choices[i] = fmt.Sprintf("switch %d", c.Slot)
	}
	return strings.Join(choices, ", "), nil
}

func (r *Random) Move(_ context.Context, req *game.Request, _ *game.BattleState) (string, error) {
	mech := allMechanics()
	var chosen []int
	choices := make([]string, 0, len(req.Active))
	for i, active := range req.Active {
		if slotLocked(req, i) {
			choices = append(choices, "pass")
			continue
		}
		mech.narrow(active)

		actions := make([]string, 0, 10)
		for _, o := range moveOptions(req, i, active, mech.zmove) {
			actions = append(actions, o.Choice)
		}
		var switches []switchCandidate
		if !active.Trapped {
			switches = benchCandidates(req, chosen)
		}
		for _, c := range switches {
			actions = append(actions, fmt.Sprintf("switch %d", c.Slot))
		}
		if len(actions) == 0 {
			return "", fmt.Errorf("slot %d: %w", i+1, ErrNoLegalAction)
		}

		k := r.rng.IntN(len(actions))
		choice := actions[k]
		if n := len(actions) - len(switches); k >= n {
			chosen = append(chosen, switches[k-n].Slot)
		} else if strings.HasSuffix(choice, " zmove") {
			mech.zmove = false
		}
		choices = append(choices, choice)
	}
	return strings.Join(choices, ", "), nil
}
