package parser

import (
	"strings"

	"showdown-agent/game"
)

// ParseLine decodes "|verb|arg|arg..." into an event. Lines that are not
// protocol messages (chat, room headers, blanks) report false.
func ParseLine(line string) (game.Event, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "|") {
		return game.Event{}, false
	}
	parts := strings.Split(line, "|")
	if len(parts) < 2 || parts[1] == "" {
		return game.Event{}, false
	}
	return game.Event{Kind: parts[1], Args: parts[2:]}, true
}

// ParseLog replays a whole battle log into a fresh state.
func ParseLog(logText, mySide string) *game.BattleState {
	state := game.NewBattleState(mySide)
	for _, line := range strings.Split(logText, "\n") {
		ProcessLine(state, line)
	}
	return state
}

// ProcessLine applies one line and reports whether it was a protocol event.
func ProcessLine(state *game.BattleState, line string) bool {
	ev, ok := ParseLine(line)
	if !ok {
		return false
	}
	state.Apply(ev)
	return true
}
