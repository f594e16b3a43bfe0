package ai

import (
	"context"
	"errors"
	"io"

	"showdown-agent/game"
)

var (
	// ErrNoLegalAction means a slot has neither a usable move nor a switch target.
	ErrNoLegalAction   = errors.New("no legal action")
	ErrDelegateTimeout = errors.New("delegate timed out")
	ErrDelegateFailed  = errors.New("delegate failed")
	ErrUnknownEngine   = errors.New("unknown engine")
)

// Engine answers one kind of request each. Implementations return either a
// complete choice string or an error; they never retry internally.
type Engine interface {
	TeamPreview(ctx context.Context, req *game.Request, st *game.BattleState) (string, error)
	ForceSwitch(ctx context.Context, req *game.Request, st *game.BattleState) (string, error)
	Move(ctx context.Context, req *game.Request, st *game.BattleState) (string, error)
}

// Decide dispatches req to the matching engine method. Wait requests yield
// an empty choice.
func Decide(ctx context.Context, e Engine, req *game.Request, st *game.BattleState) (string, error) {
	switch req.Kind() {
	case game.KindTeamPreview:
		return e.TeamPreview(ctx, req, st)
	case game.KindForceSwitch:
		return e.ForceSwitch(ctx, req, st)
	case game.KindMove:
		return e.Move(ctx, req, st)
	}
	return "", nil
}

// Close releases engine resources when the engine holds any.
func Close(e Engine) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
