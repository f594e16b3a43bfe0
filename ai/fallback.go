package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"showdown-agent/config"
	"showdown-agent/data"
	"showdown-agent/game"
)

// Fallback asks Secondary whenever Primary fails.
type Fallback struct {
	Primary   Engine
	Secondary Engine
	Log       *slog.Logger
}

func (f *Fallback) logger() *slog.Logger {
	if f.Log == nil {
		return slog.Default()
	}
	return f.Log
}

func (f *Fallback) try(kind string, primary, secondary func() (string, error)) (string, error) {
	choice, err := primary()
	if err == nil {
		return choice, nil
	}
	f.logger().Warn("primary engine failed, falling back", "request", kind, "err", err)
	return secondary()
}

func (f *Fallback) TeamPreview(ctx context.Context, req *game.Request, st *game.BattleState) (string, error) {
	return f.try("team-preview",
		func() (string, error) { return f.Primary.TeamPreview(ctx, req, st) },
		func() (string, error) { return f.Secondary.TeamPreview(ctx, req, st) })
}

func (f *Fallback) ForceSwitch(ctx context.Context, req *game.Request, st *game.BattleState) (string, error) {
	return f.try("force-switch",
		func() (string, error) { return f.Primary.ForceSwitch(ctx, req, st) },
		func() (string, error) { return f.Secondary.ForceSwitch(ctx, req, st) })
}

func (f *Fallback) Move(ctx context.Context, req *game.Request, st *game.BattleState) (string, error) {
	return f.try("move",
		func() (string, error) { return f.Primary.Move(ctx, req, st) },
		func() (string, error) { return f.Secondary.Move(ctx, req, st) })
}

func (f *Fallback) Close() error {
	return errors.Join(Close(f.Primary), Close(f.Secondary))
}

// CheckKind reports ErrUnknownEngine for kinds New does not build.
func CheckKind(kind string) error {
	switch strings.ToLower(kind) {
	case "", "heuristic", "random", "delegate":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownEngine, kind)
}

// New builds the engine named by cfg.Kind for one battle. A delegate that is
// unconfigured or fails to start degrades to the heuristic; a running
// delegate is backed by the heuristic for individual failed decisions.
func New(ctx context.Context, cfg config.EngineConfig, dex data.Dex, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Kind) {
	case "", "heuristic":
		return NewHeuristic(dex, logger), nil
	case "random":
		return NewRandom(nil), nil
	case "delegate":
		if cfg.Delegate.Command == "" {
			logger.Warn("delegate engine has no command, using heuristic")
			return NewHeuristic(dex, logger), nil
		}
		d, err := StartDelegate(ctx, cfg.Delegate, logger)
		if err != nil {
			logger.Warn("delegate unavailable, using heuristic", "err", err)
			return NewHeuristic(dex, logger), nil
		}
		return &Fallback{Primary: d, Secondary: NewHeuristic(dex, logger), Log: logger}, nil
	}
	return nil, CheckKind(cfg.Kind)
}
