package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

type RequestKind int

const (
	KindWait RequestKind = iota
	KindTeamPreview
	KindForceSwitch
	KindMove
)

func (k RequestKind) String() string {
	switch k {
	case KindTeamPreview:
		return "team-preview"
	case KindForceSwitch:
		return "force-switch"
	case KindMove:
		return "move"
	}
	return "wait"
}

// Flag decodes request fields that Showdown sends as a bool, a string or null.
type Flag struct {
	Set   bool
	Value string
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case bool:
		f.Set = x
	case string:
		f.Set = x != ""
		f.Value = x
	case float64:
		f.Set = x != 0
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if f.Value != "" {
		return json.Marshal(f.Value)
	}
	return json.Marshal(f.Set)
}

type MoveSlot struct {
	Move     string `json:"move"`
	ID       string `json:"id"`
	PP       int    `json:"pp"`
	MaxPP    int    `json:"maxpp"`
	Target   string `json:"target"`
	Disabled Flag   `json:"disabled"`
}

type MaxMoves struct {
	MaxMoves []MoveSlot `json:"maxMoves"`
}

type ActiveRequest struct {
	Moves           []MoveSlot  `json:"moves"`
	Trapped         bool        `json:"trapped"`
	MaybeTrapped    bool        `json:"maybeTrapped"`
	CanMegaEvo      bool        `json:"canMegaEvo"`
	CanUltraBurst   bool        `json:"canUltraBurst"`
	CanZMove        []*MoveSlot `json:"canZMove"`
	CanDynamax      bool        `json:"canDynamax"`
	MaxMoves        *MaxMoves   `json:"maxMoves"`
	CanTerastallize Flag        `json:"canTerastallize"`
}

type RequestPokemon struct {
	Ident       string         `json:"ident"`
	Details     string         `json:"details"`
	Condition   string         `json:"condition"`
	Active      bool           `json:"active"`
	Stats       map[string]int `json:"stats"`
	Moves       []string       `json:"moves"`
	BaseAbility string         `json:"baseAbility"`
	Item        string         `json:"item"`
	TeraType    string         `json:"teraType"`
	Reviving    bool           `json:"reviving"`
	Commanding  bool           `json:"commanding"`
}

func (p RequestPokemon) Species() string {
	return speciesFromDetails(p.Details)
}

// Name is the nickname part of the ident ("p1: Sparky" -> "Sparky").
func (p RequestPokemon) Name() string {
	_, name, ok := strings.Cut(p.Ident, ":")
	if !ok {
		return p.Species()
	}
	return strings.TrimSpace(name)
}

func (p RequestPokemon) Level() int {
	return levelFromDetails(p.Details)
}

func (p RequestPokemon) Fainted() bool {
	return IsFaintedCondition(p.Condition)
}

type RequestSide struct {
	Name    string           `json:"name"`
	ID      string           `json:"id"`
	Pokemon []RequestPokemon `json:"pokemon"`
}

// Request is Showdown's "what can I do now" message.
type Request struct {
	Active      []ActiveRequest `json:"active"`
	Side        RequestSide     `json:"side"`
	ForceSwitch []bool          `json:"forceSwitch"`
	TeamPreview bool            `json:"teamPreview"`
	Wait        bool            `json:"wait"`
	RQID        int             `json:"rqid"`
}

func (r *Request) Kind() RequestKind {
	switch {
	case r.Wait:
		return KindWait
	case r.TeamPreview:
		return KindTeamPreview
	case len(r.ForceSwitch) > 0:
		return KindForceSwitch
	case len(r.Active) > 0:
		return KindMove
	}
	return KindWait
}

func ParseRequest(raw string) (*Request, error) {
	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return &req, nil
}
