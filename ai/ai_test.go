package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showdown-agent/config"
	"showdown-agent/data"
	"showdown-agent/game"
)

func fixtureDex() *data.Store {
	return data.NewStore(
		[]data.Species{
			{Name: "Pikachu", Types: []string{"Electric"}, BaseStats: data.BaseStats{HP: 35, Atk: 55, Def: 40, Spa: 50, Spd: 50, Spe: 90}},
			{Name: "Garchomp", Types: []string{"Dragon", "Ground"}, BaseStats: data.BaseStats{HP: 108, Atk: 130, Def: 95, Spa: 80, Spd: 85, Spe: 102}},
			{Name: "Snorlax", Types: []string{"Normal"}, BaseStats: data.BaseStats{HP: 160, Atk: 110, Def: 65, Spa: 65, Spd: 110, Spe: 30}},
			{Name: "Magikarp", Types: []string{"Water"}, BaseStats: data.BaseStats{HP: 20, Atk: 10, Def: 55, Spa: 15, Spd: 20, Spe: 80}},
		},
		[]data.Move{
			{Name: "Thunderbolt", Type: "Electric", Category: data.Special, BasePower: 90, Accuracy: 100},
			{Name: "Quick Attack", Type: "Normal", Category: data.Physical, BasePower: 40, Accuracy: 100, Priority: 1},
			{Name: "Swords Dance", Type: "Normal", Category: data.Status, Boosts: map[string]int{"atk": 2}},
			{Name: "Thunder Wave", Type: "Electric", Category: data.Status, Accuracy: 90, Status: "par"},
			{Name: "Recover", Type: "Normal", Category: data.Status, Heal: true},
			{Name: "Stealth Rock", Type: "Rock", Category: data.Status},
			{Name: "Gigavolt Havoc", Type: "Electric", Category: data.Special, BasePower: 175},
			{Name: "Trick Room", Type: "Psychic", Category: data.Status, Priority: -7},
			{Name: "Helping Hand", Type: "Normal", Category: data.Status, Priority: 5, Target: "adjacentAlly"},
			{Name: "Focus Blast", Type: "Fighting", Category: data.Special, BasePower: 120, Accuracy: 70},
		},
	)
}

func mon(ident, details, condition string, active bool) game.RequestPokemon {
	return game.RequestPokemon{Ident: ident, Details: details, Condition: condition, Active: active}
}

func moves(names ...string) []game.MoveSlot {
	out := make([]game.MoveSlot, len(names))
	for i, n := range names {
		out[i] = game.MoveSlot{Move: n, ID: data.ToID(n), PP: 10, MaxPP: 10, Target: "normal"}
	}
	return out
}

func singlesMoveRequest(condition string, active game.ActiveRequest, bench ...game.RequestPokemon) *game.Request {
	team := append([]game.RequestPokemon{mon("p1: Pikachu", "Pikachu, L50, M", condition, true)}, bench...)
	return &game.Request{
		Active: []game.ActiveRequest{active},
		Side:   game.RequestSide{Name: "bot", ID: "p1", Pokemon: team},
		RQID:   3,
	}
}

func TestDecide_Dispatch(t *testing.T) {
	ctx := context.Background()
	h := NewHeuristic(fixtureDex(), nil)

	choice, err := Decide(ctx, h, &game.Request{Wait: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, choice)

	choice, err = Decide(ctx, h, &game.Request{TeamPreview: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "default", choice)
}

func TestHeuristic_TeamPreviewRecordsScouting(t *testing.T) {
	st := game.NewBattleState("p1")
	st.Scout("Garchomp", "Snorlax")
	h := NewHeuristic(fixtureDex(), nil)

	choice, err := h.TeamPreview(context.Background(), &game.Request{TeamPreview: true}, st)
	require.NoError(t, err)
	assert.Equal(t, "default", choice)
	assert.Equal(t, []string{"Garchomp", "Snorlax"}, h.Scouted())
}

func TestHeuristic_ForceSwitchPicksOnlyHealthySlot(t *testing.T) {
	req := &game.Request{
		ForceSwitch: []bool{true},
		Side: game.RequestSide{ID: "p1", Pokemon: []game.RequestPokemon{
			mon("p1: Pikachu", "Pikachu, L50", "0 fnt", true),
			mon("p1: Garchomp", "Garchomp, L50", "0 fnt", false),
			mon("p1: Magikarp", "Magikarp, L50", "100/100", false),
			mon("p1: Snorlax", "Snorlax, L50", "0 fnt", false),
		}},
	}
	h := NewHeuristic(fixtureDex(), nil)
	for range 5 {
		choice, err := h.ForceSwitch(context.Background(), req, nil)
		require.NoError(t, err)
		assert.Equal(t, "switch 3", choice)
	}
}

func TestHeuristic_ForceSwitchReviving(t *testing.T) {
	team := []game.RequestPokemon{
		mon("p1: Pikachu", "Pikachu, L50", "100/100", true),
		mon("p1: Magikarp", "Magikarp, L50", "100/100", false),
		mon("p1: Garchomp", "Garchomp, L50", "0 fnt", false),
	}
	team[0].Reviving = true
	req := &game.Request{ForceSwitch: []bool{true}, Side: game.RequestSide{ID: "p1", Pokemon: team}}

	choice, err := NewHeuristic(fixtureDex(), nil).ForceSwitch(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "switch 3", choice, "a reviving slot only targets fainted teammates")

	team[0].Reviving = false
	choice, err = NewHeuristic(fixtureDex(), nil).ForceSwitch(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "switch 2", choice)
}

func TestHeuristic_ForceSwitchScoring(t *testing.T) {
	tests := []struct {
		name  string
		bench []game.RequestPokemon
		want  string
	}{
		{
			name: "higher hp wins",
			bench: []game.RequestPokemon{
				mon("p1: Snorlax", "Snorlax, L50", "50/100", false),
				mon("p1: Magikarp", "Magikarp, L50", "100/100", false),
			},
			want: "switch 3",
		},
		{
			name: "stat total breaks equal hp",
			bench: []game.RequestPokemon{
				mon("p1: Magikarp", "Magikarp, L50", "100/100", false),
				mon("p1: Garchomp", "Garchomp, L50", "100/100", false),
			},
			want: "switch 3",
		},
		{
			name: "ailment penalty",
			bench: []game.RequestPokemon{
				mon("p1: Garchomp", "Garchomp, L50", "100/100 slp", false),
				mon("p1: Snorlax", "Snorlax, L50", "100/100", false),
			},
			want: "switch 3",
		},
		{
			name: "ties keep the first candidate",
			bench: []game.RequestPokemon{
				mon("p1: Magikarp", "Magikarp, L50", "100/100", false),
				mon("p1: Magikarp", "Magikarp, L50", "100/100", false),
			},
			want: "switch 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team := append([]game.RequestPokemon{mon("p1: Pikachu", "Pikachu, L50", "0 fnt", true)}, tt.bench...)
			req := &game.Request{ForceSwitch: []bool{true}, Side: game.RequestSide{ID: "p1", Pokemon: team}}
			choice, err := NewHeuristic(fixtureDex(), nil).ForceSwitch(context.Background(), req, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, choice)
		})
	}
}

func TestHeuristic_ForceSwitchDoubles(t *testing.T) {
	req := &game.Request{
		ForceSwitch: []bool{true, true},
		Side: game.RequestSide{ID: "p1", Pokemon: []game.RequestPokemon{
			mon("p1: Pikachu", "Pikachu, L50", "0 fnt", true),
			mon("p1: Snorlax", "Snorlax, L50", "0 fnt", true),
			mon("p1: Magikarp", "Magikarp, L50", "100/100", false),
			mon("p1: Garchomp", "Garchomp, L50", "0 fnt", false),
		}},
	}
	choice, err := NewHeuristic(fixtureDex(), nil).ForceSwitch(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "switch 3, pass", choice, "a slot is never chosen twice")
}

func TestHeuristic_AsleepSwitchesOut(t *testing.T) {
	req := singlesMoveRequest("100/100 slp",
		game.ActiveRequest{Moves: moves("Thunderbolt", "Quick Attack")},
		mon("p1: Snorlax", "Snorlax, L50", "100/100", false),
	)
	choice, err := NewHeuristic(fixtureDex(), nil).Move(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "switch 2", choice)
}

func TestHeuristic_SwitchRules(t *testing.T) {
	bench := mon("p1: Snorlax", "Snorlax, L50", "100/100", false)
	disabled := moves("Thunderbolt")
	disabled[0].Disabled = game.Flag{Set: true}

	tests := []struct {
		name      string
		condition string
		active    game.ActiveRequest
		bench     []game.RequestPokemon
		want      string
	}{
		{"low hp", "15/100", game.ActiveRequest{Moves: moves("Thunderbolt")}, []game.RequestPokemon{bench}, "switch 2"},
		{"low hp but nothing to switch to", "15/100", game.ActiveRequest{Moves: moves("Thunderbolt")}, nil, "move 1"},
		{"asleep but trapped", "100/100 slp", game.ActiveRequest{Moves: moves("Thunderbolt"), Trapped: true}, []game.RequestPokemon{bench}, "move 1"},
		{"no usable moves", "100/100", game.ActiveRequest{Moves: disabled}, []game.RequestPokemon{bench}, "switch 2"},
		{"fainted bench is ignored", "15/100", game.ActiveRequest{Moves: moves("Thunderbolt")},
			[]game.RequestPokemon{mon("p1: Snorlax", "Snorlax, L50", "0 fnt", false)}, "move 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := singlesMoveRequest(tt.condition, tt.active, tt.bench...)
			choice, err := NewHeuristic(fixtureDex(), nil).Move(context.Background(), req, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, choice)
		})
	}
}

func TestHeuristic_NoLegalAction(t *testing.T) {
	disabled := moves("Thunderbolt")
	disabled[0].Disabled = game.Flag{Set: true}
	req := singlesMoveRequest("100/100", game.ActiveRequest{Moves: disabled})

	_, err := NewHeuristic(fixtureDex(), nil).Move(context.Background(), req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoLegalAction)
}

func TestHeuristic_MoveScoring(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		moves     []string
		want      string
	}{
		{"power beats priority", "100/100", []string{"Quick Attack", "Thunderbolt"}, "move 2"},
		{"setup beats weak attack", "100/100", []string{"Quick Attack", "Swords Dance"}, "move 2"},
		{"accuracy scales score", "100/100", []string{"Thunderbolt", "Focus Blast"}, "move 1"},
		{"ailment beats negative priority", "100/100", []string{"Trick Room", "Thunder Wave"}, "move 2"},
		{"hazard", "100/100", []string{"Stealth Rock", "Trick Room"}, "move 1"},
		{"heal at low hp", "30/100", []string{"Thunder Wave", "Recover"}, "move 2"},
		{"heal at high hp", "90/100", []string{"Recover", "Thunder Wave"}, "move 2"},
		{"unknown moves score zero", "100/100", []string{"Splash", "Quick Attack"}, "move 2"},
		{"ties keep input order", "100/100", []string{"Splash", "Hyper Splash"}, "move 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := singlesMoveRequest(tt.condition, game.ActiveRequest{Moves: moves(tt.moves...)})
			choice, err := NewHeuristic(fixtureDex(), nil).Move(context.Background(), req, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, choice)
		})
	}
}

func TestHeuristic_MoveScoreValues(t *testing.T) {
	h := NewHeuristic(fixtureDex(), nil)
	score := func(move string, hp float64, z bool) float64 {
		return h.moveScore(moveOption{Move: move, ZMove: z}, hp, nil)
	}
	assert.InDelta(t, 108, score("Thunderbolt", 100, false), 1e-9)
	assert.InDelta(t, 63, score("Quick Attack", 100, false), 1e-9)
	assert.InDelta(t, 85, score("Swords Dance", 100, false), 1e-9)
	assert.InDelta(t, 40.5, score("Thunder Wave", 100, false), 1e-9)
	assert.InDelta(t, 60, score("Recover", 30, false), 1e-9)
	assert.InDelta(t, 20, score("Recover", 80, false), 1e-9)
	assert.InDelta(t, 40, score("Stealth Rock", 100, false), 1e-9)
	assert.InDelta(t, -70, score("Trick Room", 100, false), 1e-9)
	assert.InDelta(t, 100.8, score("Focus Blast", 100, false), 1e-9)
	assert.InDelta(t, 210+40, score("Gigavolt Havoc", 100, true), 1e-9)
	assert.InDelta(t, 210+80, score("Gigavolt Havoc", 30, true), 1e-9)
	assert.Zero(t, score("Splash", 100, false))
}

func TestHeuristic_Mechanics(t *testing.T) {
	tera := game.ActiveRequest{Moves: moves("Thunderbolt"), CanTerastallize: game.Flag{Set: true, Value: "Electric"}, CanDynamax: true}
	dyna := game.ActiveRequest{Moves: moves("Thunderbolt"), CanDynamax: true, CanMegaEvo: true}
	mega := game.ActiveRequest{Moves: moves("Thunderbolt"), CanMegaEvo: true, CanUltraBurst: true}
	ultra := game.ActiveRequest{Moves: moves("Thunderbolt"), CanUltraBurst: true}
	zmove := game.ActiveRequest{
		Moves:           moves("Thunderbolt"),
		CanZMove:        []*game.MoveSlot{{Move: "Gigavolt Havoc", Target: "normal"}},
		CanTerastallize: game.Flag{Set: true, Value: "Electric"},
	}

	tests := []struct {
		name      string
		condition string
		active    game.ActiveRequest
		want      string
	}{
		{"tera in the window", "60/100", tera, "move 1 terastallize"},
		{"healthy keeps tera", "90/100", tera, "move 1"},
		{"low hp keeps tera", "35/100", tera, "move 1"},
		{"dynamax", "60/100", dyna, "move 1 dynamax"},
		{"mega needs more hp", "55/100", mega, "move 1 ultra"},
		{"mega", "70/100", mega, "move 1 mega"},
		{"ultra", "60/100", ultra, "move 1 ultra"},
		{"zmove consumes the turn's mechanic", "60/100", zmove, "move 1 zmove"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := singlesMoveRequest(tt.condition, tt.active)
			choice, err := NewHeuristic(fixtureDex(), nil).Move(context.Background(), req, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, choice)
		})
	}
}

func TestHeuristic_UsesCalculatorAgainstKnownFoe(t *testing.T) {
	st := game.NewBattleState("p1")
	st.Apply(game.Event{Kind: "switch", Args: []string{"p1a: Pikachu", "Pikachu, L50, M", "100/100"}})
	st.Apply(game.Event{Kind: "switch", Args: []string{"p2a: Garchomp", "Garchomp, L50, M", "100/100"}})

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	req := singlesMoveRequest("100/100", game.ActiveRequest{Moves: moves("Thunderbolt", "Quick Attack")})
	choice, err := NewHeuristic(fixtureDex(), logger).Move(context.Background(), req, st)
	require.NoError(t, err)
	assert.Equal(t, "move 2", choice, "ground types are immune to thunderbolt")
	assert.Contains(t, logs.String(), `msg="damage estimate" move=Thunderbolt target=Garchomp damage=`)

	st.Apply(game.Event{Kind: "switch", Args: []string{"p2a: Magikarp", "Magikarp, L50", "100/100"}})
	choice, err = NewHeuristic(fixtureDex(), nil).Move(context.Background(), req, st)
	require.NoError(t, err)
	assert.Equal(t, "move 1", choice)
}

func TestHeuristic_Bookkeeping(t *testing.T) {
	h := NewHeuristic(fixtureDex(), nil)
	req := singlesMoveRequest("100/100", game.ActiveRequest{Moves: moves("Thunderbolt")})
	for range 3 {
		_, err := h.Move(context.Background(), req, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, h.Turns())
	require.Len(t, h.History(), 3)
	assert.Equal(t, MoveRecord{Pokemon: "Pikachu", Move: "Thunderbolt"}, h.History()[0])
}

func doublesRequest(allyCondition string, a, b game.ActiveRequest) *game.Request {
	return &game.Request{
		Active: []game.ActiveRequest{a, b},
		Side: game.RequestSide{ID: "p1", Pokemon: []game.RequestPokemon{
			mon("p1: Pikachu", "Pikachu, L50", "100/100", true),
			mon("p1: Snorlax", "Snorlax, L50", allyCondition, true),
		}},
	}
}

func TestMoveOptions_DoublesTargets(t *testing.T) {
	active := game.ActiveRequest{Moves: []game.MoveSlot{
		{Move: "Thunderbolt", Target: "normal"},
		{Move: "Helping Hand", Target: "adjacentAlly"},
		{Move: "Acupressure", Target: "adjacentAllyOrSelf"},
		{Move: "Earthquake", Target: "allAdjacent"},
	}}

	req := doublesRequest("100/100", active, active)
	got := moveOptions(req, 0, active, false)
	choices := make([]string, len(got))
	for i, o := range got {
		choices[i] = o.Choice
	}
	assert.Equal(t, []string{"move 1 1", "move 2 -2", "move 3 -1", "move 4"}, choices)

	got = moveOptions(req, 1, active, false)
	assert.Equal(t, "move 2 -1", got[1].Choice)

	req = doublesRequest("0 fnt", active, active)
	got = moveOptions(req, 0, active, false)
	choices = choices[:0]
	for _, o := range got {
		choices = append(choices, o.Choice)
	}
	assert.Equal(t, []string{"move 1 1", "move 3 -1", "move 4"}, choices, "ally moves dropped without an ally")
}

func TestMoveOptions_KeepsAllyMovesWhenNothingElse(t *testing.T) {
	active := game.ActiveRequest{Moves: []game.MoveSlot{{Move: "Helping Hand", Target: "adjacentAlly"}}}
	req := singlesMoveRequest("100/100", active)
	got := moveOptions(req, 0, active, false)
	require.Len(t, got, 1)
	assert.Equal(t, "move 1", got[0].Choice)
}

func TestMoveOptions_MaxMoves(t *testing.T) {
	active := game.ActiveRequest{
		Moves:    moves("Thunderbolt", "Quick Attack"),
		MaxMoves: &game.MaxMoves{MaxMoves: moves("Max Lightning", "Max Strike")},
	}
	got := moveOptions(singlesMoveRequest("100/100", active), 0, active, false)
	require.Len(t, got, 2)
	assert.Equal(t, "Max Lightning", got[0].Move)

	active.CanDynamax = true
	got = moveOptions(singlesMoveRequest("100/100", active), 0, active, false)
	assert.Equal(t, "Thunderbolt", got[0].Move, "max moves only once dynamaxed")
}

func TestHeuristic_DoublesJoinsChoices(t *testing.T) {
	a := game.ActiveRequest{Moves: []game.MoveSlot{{Move: "Thunderbolt", Target: "normal"}}}
	req := doublesRequest("0 fnt", a, a)
	choice, err := NewHeuristic(fixtureDex(), nil).Move(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "move 1 1, pass", choice)
}

func legalChoices(req *game.Request) []string {
	active := req.Active[0]
	var out []string
	for _, o := range moveOptions(req, 0, active, len(active.CanZMove) > 0) {
		out = append(out, o.Choice)
	}
	if !active.Trapped {
		for _, c := range benchCandidates(req, nil) {
			out = append(out, fmt.Sprintf("switch %d", c.Slot))
		}
	}
	return out
}

func TestRandom_OnlyLegalActions(t *testing.T) {
	disabled := moves("Thunderbolt", "Quick Attack", "Recover")
	disabled[1].Disabled = game.Flag{Set: true}
	req := singlesMoveRequest("100/100", game.ActiveRequest{Moves: disabled},
		mon("p1: Snorlax", "Snorlax, L50", "100/100", false),
		mon("p1: Garchomp", "Garchomp, L50", "0 fnt", false),
	)
	legal := legalChoices(req)
	r := NewRandom(rand.New(rand.NewPCG(1, 2)))
	seen := map[string]bool{}
	for range 200 {
		choice, err := r.Move(context.Background(), req, nil)
		require.NoError(t, err)
		require.Contains(t, legal, choice)
		seen[choice] = true
	}
	assert.Len(t, seen, len(legal), "every legal action is reachable")

	req.Active[0].Trapped = true
	for range 50 {
		choice, err := r.Move(context.Background(), req, nil)
		require.NoError(t, err)
		assert.False(t, strings.HasPrefix(choice, "switch"))
	}
}

func TestRandom_ForceSwitchAndErrors(t *testing.T) {
	r := NewRandom(rand.New(rand.NewPCG(7, 7)))
	req := &game.Request{
		ForceSwitch: []bool{true},
		Side: game.RequestSide{ID: "p1", Pokemon: []game.RequestPokemon{
			mon("p1: Pikachu", "Pikachu, L50", "0 fnt", true),
			mon("p1: Snorlax", "Snorlax, L50", "0 fnt", false),
			mon("p1: Magikarp", "Magikarp, L50", "40/100", false),
		}},
	}
	choice, err := r.ForceSwitch(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "switch 3", choice)

	disabled := moves("Thunderbolt")
	disabled[0].Disabled = game.Flag{Set: true}
	_, err = r.Move(context.Background(), singlesMoveRequest("100/100", game.ActiveRequest{Moves: disabled}), nil)
	assert.ErrorIs(t, err, ErrNoLegalAction)
}

type stubEngine struct {
	choice string
	err    error
	calls  int
	closed bool
}

func (s *stubEngine) answer() (string, error) {
	s.calls++
	return s.choice, s.err
}

func (s *stubEngine) TeamPreview(context.Context, *game.Request, *game.BattleState) (string, error) {
	return s.answer()
}

func (s *stubEngine) ForceSwitch(context.Context, *game.Request, *game.BattleState) (string, error) {
	return s.answer()
}

func (s *stubEngine) Move(context.Context, *game.Request, *game.BattleState) (string, error) {
	return s.answer()
}

func (s *stubEngine) Close() error {
	s.closed = true
	return nil
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	req := &game.Request{Active: []game.ActiveRequest{{}}}

	primary := &stubEngine{choice: "move 2"}
	secondary := &stubEngine{choice: "move 1"}
	f := &Fallback{Primary: primary, Secondary: secondary}
	choice, err := Decide(ctx, f, req, nil)
	require.NoError(t, err)
	assert.Equal(t, "move 2", choice)
	assert.Zero(t, secondary.calls)

	primary.err = ErrDelegateTimeout
	choice, err = Decide(ctx, f, req, nil)
	require.NoError(t, err)
	assert.Equal(t, "move 1", choice)
	assert.Equal(t, 1, secondary.calls)

	secondary.err = ErrNoLegalAction
	_, err = Decide(ctx, f, req, nil)
	assert.ErrorIs(t, err, ErrNoLegalAction)

	require.NoError(t, Close(f))
	assert.True(t, primary.closed)
	assert.True(t, secondary.closed)
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	dex := fixtureDex()

	e, err := New(ctx, config.EngineConfig{}, dex, nil)
	require.NoError(t, err)
	assert.IsType(t, &Heuristic{}, e)

	e, err = New(ctx, config.EngineConfig{Kind: "Random"}, dex, nil)
	require.NoError(t, err)
	assert.IsType(t, &Random{}, e)

	e, err = New(ctx, config.EngineConfig{Kind: "delegate"}, dex, nil)
	require.NoError(t, err)
	assert.IsType(t, &Heuristic{}, e, "delegate without a command degrades")

	e, err = New(ctx, config.EngineConfig{Kind: "delegate", Delegate: config.DelegateConfig{Command: "/nonexistent/showdown-delegate"}}, dex, nil)
	require.NoError(t, err)
	assert.IsType(t, &Heuristic{}, e, "delegate that cannot start degrades")

	_, err = New(ctx, config.EngineConfig{Kind: "minimax"}, dex, nil)
	assert.True(t, errors.Is(err, ErrUnknownEngine))

	assert.NoError(t, CheckKind("Delegate"))
	assert.ErrorIs(t, CheckKind("minimax"), ErrUnknownEngine)
}

func TestCombatantFor(t *testing.T) {
	st := game.NewBattleState("p1")
	st.Apply(game.Event{Kind: "switch", Args: []string{"p2a: Garchomp", "Garchomp, L78, F", "100/100 brn"}})
	st.Apply(game.Event{Kind: "-boost", Args: []string{"p2a: Garchomp", "atk", "1"}})
	st.Apply(game.Event{Kind: "-terastallize", Args: []string{"p2a: Garchomp", "Steel"}})
	st.Apply(game.Event{Kind: "-sidestart", Args: []string{"p1: bot", "Reflect"}})
	st.Apply(game.Event{Kind: "-weather", Args: []string{"RainDance"}})
	st.Apply(game.Event{Kind: "-fieldstart", Args: []string{"move: Grassy Terrain"}})

	foe := st.Active("p2", 0)
	require.NotNil(t, foe)
	cb := CombatantFor(foe, st.Opponent.Tera)
	assert.Equal(t, "Garchomp", cb.Species)
	assert.Equal(t, 78, cb.Level)
	assert.Equal(t, "brn", cb.Status)
	assert.Equal(t, 1, cb.Boosts["atk"])
	assert.True(t, cb.Terastallized)
	assert.Equal(t, "Steel", cb.TeraType)

	cond := FieldConditions(st, "p1")
	assert.Equal(t, "RainDance", cond.Weather)
	assert.Equal(t, "Grassy Terrain", cond.Terrain)
	assert.True(t, cond.Reflect)
	assert.False(t, cond.LightScreen)
	assert.False(t, FieldConditions(st, "p2").Reflect)
}

func TestMechanicsNarrowAcrossSlots(t *testing.T) {
	m := allMechanics()
	m.narrow(game.ActiveRequest{CanMegaEvo: true, CanDynamax: true, CanTerastallize: game.Flag{Set: true}})
	m.narrow(game.ActiveRequest{CanDynamax: true})
	assert.Equal(t, mechanics{dynamax: true}, m)
	assert.False(t, slices.Contains([]bool{m.mega, m.tera, m.zmove, m.ultra}, true))
}
