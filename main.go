package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"showdown-agent/ai"
	"showdown-agent/bot"
	"showdown-agent/client"
	"showdown-agent/config"
	"showdown-agent/data"
	"showdown-agent/status"
	"showdown-agent/store"
)

const ConfigPath = "config/agent.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func run(ctx context.Context) error {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfgPath := ConfigPath
	if p := os.Getenv("SHOWDOWN_AGENT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyEnv()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})))
	slog.Info("showdown agent starting", "config", cfgPath, "server", cfg.ServerURL,
		"user", cfg.Username, "engine", cfg.Engine.Kind)

	dex, err := data.LoadStore(cfg.Data.Pokedex, cfg.Data.Moves)
	if err != nil {
		return fmt.Errorf("loading data: %w", err)
	}
	species, moves := dex.Len()
	slog.Info("data loaded", "species", species, "moves", moves)

	var (
		recorder bot.Recorder
		results  status.Results
	)
	if cfg.DatabaseDSN != "" {
		repo, err := store.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer repo.Close()
		recorder, results = repo, repo
		slog.Info("database ready")
	} else {
		slog.Info("no database configured, results are only logged")
	}

	if err := ai.CheckKind(cfg.Engine.Kind); err != nil {
		return fmt.Errorf("checking engine: %w", err)
	}

	sc, err := client.Dial(ctx, cfg.ServerURL, slog.Default())
	if err != nil {
		return fmt.Errorf("connecting to showdown: %w", err)
	}

	router := bot.NewRouter(sc, func(ctx context.Context) (ai.Engine, error) {
		return ai.New(ctx, cfg.Engine, dex, slog.Default())
	}, recorder, bot.Options{
		Username:      cfg.Username,
		Password:      cfg.Password,
		AuthURL:       cfg.AuthURL,
		AcceptFormats: cfg.AcceptFormats,
		AutoJoin:      cfg.AutoJoin,
	}, slog.Default())

	srv := &http.Server{
		Addr:              cfg.StatusAddr,
		Handler:           status.NewServer(router, results, slog.Default()).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer router.Close()
		for {
			frame, err := sc.ReadMessage()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("showdown connection: %w", err)
			}
			router.Dispatch(gctx, frame)
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return sc.Close()
	})

	g.Go(func() error {
		slog.Info("status page listening", "addr", cfg.StatusAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("agent error: %w", err)
	}
	return nil
}
