package calc

import (
	"strings"

	"showdown-agent/data"
)

type Stat string

const (
	HP  Stat = "hp"
	Atk Stat = "atk"
	Def Stat = "def"
	Spa Stat = "spa"
	Spd Stat = "spd"
	Spe Stat = "spe"
)

var AllStats = [...]Stat{HP, Atk, Def, Spa, Spd, Spe}

type Stats struct {
	HP, Atk, Def, Spa, Spd, Spe int
}

func (s Stats) Get(stat Stat) int {
	switch stat {
	case HP:
		return s.HP
	case Atk:
		return s.Atk
	case Def:
		return s.Def
	case Spa:
		return s.Spa
	case Spd:
		return s.Spd
	case Spe:
		return s.Spe
	}
	return 0
}

func (s *Stats) set(stat Stat, v int) {
	switch stat {
	case HP:
		s.HP = v
	case Atk:
		s.Atk = v
	case Def:
		s.Def = v
	case Spa:
		s.Spa = v
	case Spd:
		s.Spd = v
	case Spe:
		s.Spe = v
	}
}

// Uniform returns a spread with every stat set to v.
func Uniform(v int) Stats {
	return Stats{HP: v, Atk: v, Def: v, Spa: v, Spd: v, Spe: v}
}

type natureMod struct {
	plus, minus Stat
}

var natures = map[string]natureMod{
	"adamant": {Atk, Spa},
	"lonely":  {Atk, Def},
	"brave":   {Atk, Spe},
	"naughty": {Atk, Spd},
	"bold":    {Def, Atk},
	"relaxed": {Def, Spe},
	"impish":  {Def, Spa},
	"lax":     {Def, Spd},
	"timid":   {Spe, Atk},
	"hasty":   {Spe, Def},
	"jolly":   {Spe, Spa},
	"naive":   {Spe, Spd},
	"modest":  {Spa, Atk},
	"mild":    {Spa, Def},
	"quiet":   {Spa, Spe},
	"rash":    {Spa, Spd},
	"calm":    {Spd, Atk},
	"gentle":  {Spd, Def},
	"sassy":   {Spd, Spe},
	"careful": {Spd, Spa},
	"hardy":   {},
	"docile":  {},
	"serious": {},
	"bashful": {},
	"quirky":  {},
}

// CalcStat applies the standard stat formula for one stat. Unknown natures are neutral.
func CalcStat(stat Stat, base, level, iv, ev int, nature string) int {
	core := (2*base + iv + ev/4) * level / 100
	if stat == HP {
		return core + level + 10
	}
	v := core + 5
	if mod, ok := natures[strings.ToLower(nature)]; ok {
		switch stat {
		case mod.plus:
			v = v * 110 / 100
		case mod.minus:
			v = v * 90 / 100
		}
	}
	return v
}

// CalcStats computes the full six-stat spread for a species.
func CalcStats(base data.BaseStats, level int, ivs, evs Stats, nature string) Stats {
	b := Stats{HP: base.HP, Atk: base.Atk, Def: base.Def, Spa: base.Spa, Spd: base.Spd, Spe: base.Spe}
	var out Stats
	for _, stat := range AllStats {
		out.set(stat, CalcStat(stat, b.Get(stat), level, ivs.Get(stat), evs.Get(stat), nature))
	}
	return out
}

// ApplyBoost scales a stat by its stage multiplier, clamping the stage to [-6, 6].
func ApplyBoost(stat, stage int) int {
	switch {
	case stage > 6:
		stage = 6
	case stage < -6:
		stage = -6
	}
	if stage >= 0 {
		return stat * (2 + stage) / 2
	}
	return stat * 2 / (2 - stage)
}
