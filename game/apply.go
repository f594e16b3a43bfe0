package game

import (
	"strconv"
	"strings"
)

// Event is one decoded protocol line: the verb and its pipe-separated fields.
type Event struct {
	Kind string
	Args []string
}

func (e Event) Arg(i int) string {
	if i < 0 || i >= len(e.Args) {
		return ""
	}
	return strings.TrimSpace(e.Args[i])
}

type position struct {
	side *Side
	slot int
	name string
}

// position resolves tags like "p2a: Pikachu", "p1: Alice" or "p1b".
func (s *BattleState) position(tag string) (position, bool) {
	side := s.sideFor(tag)
	if side == nil {
		return position{}, false
	}
	pos := position{side: side, slot: -1}
	head, name, _ := strings.Cut(tag, ":")
	pos.name = strings.TrimSpace(name)
	if len(head) >= 3 {
		switch head[2] {
		case 'a':
			pos.slot = 0
		case 'b':
			pos.slot = 1
		case 'c':
			pos.slot = 2
		}
	}
	return pos, true
}

func (s *BattleState) target(tag string) (position, *Pokemon) {
	pos, ok := s.position(tag)
	if !ok {
		return pos, nil
	}
	return pos, pos.side.lookup(pos.slot, pos.name)
}

// Apply folds one event into the state. It never fails: unknown kinds are
// ignored and malformed fields leave the affected value untouched.
func (s *BattleState) Apply(ev Event) {
	if s.Ended {
		return
	}
	switch ev.Kind {
	case "start":
		s.Initialized = true

	case "player":
		if side := s.side(ev.Arg(0)); side != nil && ev.Arg(1) != "" {
			side.Name = ev.Arg(1)
		}

	case "poke":
		if side := s.side(ev.Arg(0)); side != nil {
			side.scout(speciesFromDetails(ev.Arg(1)), ev.Arg(1))
		}

	case "turn":
		n, _ := strconv.Atoi(ev.Arg(0))
		s.StartTurn(n)

	case "switch", "drag", "replace":
		pos, ok := s.position(ev.Arg(0))
		if !ok || pos.slot < 0 {
			return
		}
		species := speciesFromDetails(ev.Arg(1))
		if species == "" {
			species = CanonicalSpecies(pos.name)
		}
		if species == "" {
			return
		}
		if ev.Kind == "replace" {
			pos.side.reveal(pos.slot, species, pos.name, ev.Arg(1), ev.Arg(2))
			return
		}
		pos.side.switchIn(pos.slot, species, pos.name, ev.Arg(1), ev.Arg(2))

	case "detailschange", "-formechange":
		if _, p := s.target(ev.Arg(0)); p != nil && ev.Arg(1) != "" {
			p.Forme = speciesFromDetails(ev.Arg(1))
		}

	case "move":
		if _, p := s.target(ev.Arg(0)); p != nil && ev.Arg(1) != "" {
			p.addMove(ev.Arg(1))
		}

	case "-damage", "-heal", "-sethp":
		if _, p := s.target(ev.Arg(0)); p != nil && ev.Arg(1) != "" {
			p.Condition = ev.Arg(1)
		}

	case "faint":
		pos, p := s.target(ev.Arg(0))
		if pos.side == nil {
			return
		}
		species := CanonicalSpecies(pos.name)
		if p != nil {
			p.Condition = "0 fnt"
			p.Status = StatusNone
			species = CanonicalSpecies(p.Species)
		}
		if pos.slot >= 0 && pos.slot < len(pos.side.Active) {
			pos.side.Active[pos.slot] = -1
		}
		if pos.side == s.Opponent && species != "" {
			s.Opponent.Eliminated[species] = true
		}

	case "-boost", "-unboost", "-setboost":
		_, p := s.target(ev.Arg(0))
		stat := ev.Arg(1)
		amount, err := strconv.Atoi(ev.Arg(2))
		if p == nil || err != nil || !isBoostKey(stat) {
			return
		}
		switch ev.Kind {
		case "-boost":
			p.Boosts[stat] = clampStage(p.Boosts[stat] + amount)
		case "-unboost":
			p.Boosts[stat] = clampStage(p.Boosts[stat] - amount)
		default:
			p.Boosts[stat] = clampStage(amount)
		}

	case "-clearboost", "-clearnegativeboost":
		if _, p := s.target(ev.Arg(0)); p != nil {
			for k, v := range p.Boosts {
				if ev.Kind == "-clearboost" || v < 0 {
					delete(p.Boosts, k)
				}
			}
		}

	case "-clearallboost":
		for _, side := range []*Side{s.Player, s.Opponent} {
			for slot := range side.Active {
				if p := side.ActivePokemon(slot); p != nil {
					p.Boosts = make(map[string]int)
				}
			}
		}

	case "-status":
		if _, p := s.target(ev.Arg(0)); p != nil {
			if st, ok := ParseStatus(ev.Arg(1)); ok {
				p.Status = st
			}
		}

	case "-curestatus":
		if _, p := s.target(ev.Arg(0)); p != nil {
			p.Status = StatusNone
		}

	case "-ability":
		if _, p := s.target(ev.Arg(0)); p != nil && ev.Arg(1) != "" {
			p.Ability = ev.Arg(1)
		}

	case "-weather":
		w := ev.Arg(0)
		if w == "" || strings.EqualFold(w, "none") {
			s.Field.Weather = WeatherNone
			return
		}
		if weather, ok := ParseWeather(w); ok {
			s.Field.Weather = weather
		}

	case "-fieldstart":
		if name := effectName(ev.Arg(0)); name != "" {
			s.Field.Terrains[name] = true
		}

	case "-fieldend":
		delete(s.Field.Terrains, effectName(ev.Arg(0)))

	case "-sidestart":
		if side := s.sideFor(ev.Arg(0)); side != nil {
			if name := effectName(ev.Arg(1)); name != "" {
				side.Effects[name] = true
			}
		}

	case "-sideend":
		if side := s.sideFor(ev.Arg(0)); side != nil {
			delete(side.Effects, effectName(ev.Arg(1)))
		}

	case "-terastallize":
		pos, p := s.target(ev.Arg(0))
		if pos.side == nil || pos.side.Tera != nil || ev.Arg(1) == "" {
			return
		}
		species := CanonicalSpecies(pos.name)
		if p != nil {
			species = CanonicalSpecies(p.Species)
		}
		tera := &Tera{Species: species, Type: ev.Arg(1)}
		pos.side.Tera = tera
		if p != nil {
			p.Tera = tera
		}

	case "win":
		s.Ended = true
		s.Winner = ev.Arg(0)

	case "tie":
		s.Ended = true
		s.Tie = true
	}
}

func effectName(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "move: "))
}
