package parser

import (
	"fmt"
	"html/template"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"showdown-agent/game"
)

func statLabel(stat string) string {
	switch stat {
	case "atk", "def", "spa", "spd", "spe":
		return strings.ToUpper(stat[:1]) + stat[1:]
	}
	// Casers are stateful, so one per call.
	return cases.Title(language.English).String(stat)
}

var statusColor = map[game.Status]string{
	game.StatusSleep:     "#95a5a6",
	game.StatusParalysis: "#f1c40f",
	game.StatusBurn:      "#e67e22",
	game.StatusPoison:    "#9b59b6",
	game.StatusFreeze:    "#7ed6df",
}

func esc(s string) string {
	return template.HTMLEscapeString(s)
}

func renderPokemon(sb *strings.Builder, poke *game.Pokemon) {
	name := poke.Species
	if poke.Forme != "" {
		name = poke.Forme
	}
	fainted := ""
	if poke.Fainted() {
		fainted = "<span style='color:#e74c3c;'>(fnt)</span>"
	}
	status := ""
	if poke.Status != game.StatusNone {
		status = fmt.Sprintf("<span style='color:%s;'>[%s]</span>", statusColor[poke.Status], strings.ToUpper(string(poke.Status)))
	}
	tera := ""
	if poke.Tera != nil {
		tera = fmt.Sprintf(" <span style='color:#1abc9c;'>Tera %s</span>", esc(poke.Tera.Type))
	}
	sb.WriteString(fmt.Sprintf("<b>%s</b> %s %s <span style='color:#aaa;'>[%s]</span>%s<br>",
		esc(name), fainted, status, esc(poke.Condition), tera))

	boosts := make([]string, 0, len(poke.Boosts))
	for _, stat := range game.BoostKeys {
		if val := poke.Boosts[stat]; val != 0 {
			boosts = append(boosts, fmt.Sprintf("%+d %s", val, statLabel(stat)))
		}
	}
	if len(boosts) > 0 {
		sb.WriteString("<span style='color:#e67e22;'>Boosts: " + strings.Join(boosts, ", ") + "</span><br>")
	}
	if len(poke.Moves) > 0 {
		sb.WriteString("Moves seen: " + esc(strings.Join(poke.Moves, ", ")) + "<br>")
	}
}

func renderSide(sb *strings.Builder, title string, side *game.Side) {
	name := side.Name
	if name == "" {
		name = side.ID
	}
	sb.WriteString(fmt.Sprintf("<h4>%s (%s)</h4>", esc(title), esc(name)))
	for slot := range side.Active {
		if poke := side.ActivePokemon(slot); poke != nil {
			renderPokemon(sb, poke)
		}
	}
	if len(side.Effects) > 0 {
		effects := make([]string, 0, len(side.Effects))
		for eff := range side.Effects {
			effects = append(effects, eff)
		}
		slices.Sort(effects)
		sb.WriteString("<div><b>Side:</b> " + esc(strings.Join(effects, ", ")) + "</div>")
	}
}

// RenderBattleState renders an HTML summary of the tracked battle for the status page.
func RenderBattleState(state *game.BattleState) string {
	var sb strings.Builder

	sb.WriteString("<div class='battle-summary'>")

	if state.Field.Weather != game.WeatherNone {
		sb.WriteString(fmt.Sprintf("<div><b>Weather:</b> %s</div>", esc(string(state.Field.Weather))))
	}
	if terrains := state.Field.TerrainList(); len(terrains) > 0 {
		sb.WriteString("<div><b>Field:</b> " + esc(strings.Join(terrains, ", ")) + "</div>")
	}
	if fresh := state.NewTerrains(); len(fresh) > 0 {
		sb.WriteString("<div><b>New this turn:</b> " + esc(strings.Join(fresh, ", ")) + "</div>")
	}

	sb.WriteString(fmt.Sprintf("<h3>Turn: %d</h3>", state.Turn))

	renderSide(&sb, "You", state.Player)
	renderSide(&sb, "Opponent", state.Opponent)

	alive := state.AliveOpponents()
	names := make([]string, 0, len(alive))
	for _, p := range alive {
		names = append(names, p.Species)
	}
	sb.WriteString(fmt.Sprintf("<div><b>Opponents left:</b> %d %s</div>", len(alive), esc(strings.Join(names, ", "))))

	if state.Ended {
		switch {
		case state.Tie:
			sb.WriteString("<div class='result'>Tie</div>")
		default:
			sb.WriteString(fmt.Sprintf("<div class='result'>Winner: %s</div>", esc(state.Winner)))
		}
	}

	sb.WriteString("</div>")
	return sb.String()
}
