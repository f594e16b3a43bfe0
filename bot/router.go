package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"showdown-agent/ai"
	"showdown-agent/parser"
)

const (
	frameBuffer  = 32
	keepFinished = 20
)

// Client is the transport the router drives.
type Client interface {
	Sender
	Accept(user string) error
	JoinRoom(room string) error
	Login(ctx context.Context, authURL, user, pass, challstr string) error
}

// EngineFactory builds a fresh engine for each battle.
type EngineFactory func(ctx context.Context) (ai.Engine, error)

type Options struct {
	Username      string
	Password      string
	AuthURL       string
	AcceptFormats []string
	AutoJoin      []string
}

type roomWorker struct {
	session *Session
	frames  chan []string
	done    chan struct{}
}

// Router owns one Session per battle room, each on its own goroutine.
// Dispatch must be called from a single goroutine (the transport reader).
type Router struct {
	client    Client
	newEngine EngineFactory
	rec       Recorder
	opts      Options
	log       *slog.Logger

	mu       sync.Mutex
	rooms    map[string]*roomWorker
	finished map[string]bool
	recent   []Summary
	closed   bool
	quit     chan struct{}
	wg       sync.WaitGroup

	joined bool
}

// NewRouter creates a router. rec may be nil.
func NewRouter(client Client, newEngine EngineFactory, rec Recorder, opts Options, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		client:    client,
		newEngine: newEngine,
		rec:       rec,
		opts:      opts,
		log:       logger,
		rooms:     make(map[string]*roomWorker),
		finished:  make(map[string]bool),
		quit:      make(chan struct{}),
	}
}

// Dispatch routes one websocket frame.
func (r *Router) Dispatch(ctx context.Context, frame string) {
	room, lines := SplitMessage(frame)
	if len(lines) == 0 {
		return
	}
	if !strings.HasPrefix(room, "battle-") {
		r.handleGlobal(ctx, lines)
		return
	}
	w := r.worker(ctx, room)
	if w == nil {
		return
	}
	select {
	case w.frames <- lines:
	case <-w.done:
	case <-ctx.Done():
	}
}

func (r *Router) worker(ctx context.Context, room string) *roomWorker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.rooms[room]; ok {
		return w
	}
	if r.closed || r.finished[room] {
		return nil
	}
	w := &roomWorker{
		session: NewSession(room, r.opts.Username, nil, r.client, r.rec, r.log),
		frames:  make(chan []string, frameBuffer),
		done:    make(chan struct{}),
	}
	r.rooms[room] = w
	r.wg.Add(1)
	go r.run(ctx, w)
	r.log.Info("battle joined", "room", room)
	return w
}

// run builds the room's engine and then plays its frames. Frames that
// arrive while the engine starts wait in the worker's buffer.
func (r *Router) run(ctx context.Context, w *roomWorker) {
	defer r.wg.Done()

	engine, err := r.newEngine(ctx)
	if err != nil {
		r.log.Error("creating engine", "room", w.session.Room, "err", err)
		r.retire(w, false)
		return
	}
	w.session.engine = engine

	defer r.retire(w, true)
	defer w.session.Close()

	for {
		select {
		case lines := <-w.frames:
			w.session.Handle(ctx, lines)
			if w.session.Done() {
				return
			}
		case <-r.quit:
			// play out what was already received
			for {
				select {
				case lines := <-w.frames:
					w.session.Handle(ctx, lines)
					if w.session.Done() {
						return
					}
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// retire forgets a worker's room for good. Rooms that never got an
// engine are not listed among the finished battles.
func (r *Router) retire(w *roomWorker, played bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, w.session.Room)
	r.finished[w.session.Room] = true
	if played {
		r.recent = append(r.recent, w.session.Summary())
		if len(r.recent) > keepFinished {
			r.recent = slices.Delete(r.recent, 0, len(r.recent)-keepFinished)
		}
	}
	close(w.done)
}

// Close stops all sessions after they drain their queued frames.
func (r *Router) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.quit)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Snapshot lists live battles followed by recently finished ones.
func (r *Router) Snapshot() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := make([]Summary, 0, len(r.rooms))
	for _, w := range r.rooms {
		live = append(live, w.session.Summary())
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Room < live[j].Room })
	for i := len(r.recent) - 1; i >= 0; i-- {
		live = append(live, r.recent[i])
	}
	return live
}

// Lookup returns the latest summary for room.
func (r *Router) Lookup(room string) (Summary, bool) {
	for _, s := range r.Snapshot() {
		if s.Room == room {
			return s, true
		}
	}
	return Summary{}, false
}

func (r *Router) handleGlobal(ctx context.Context, lines []string) {
	for _, line := range lines {
		ev, ok := parser.ParseLine(line)
		if !ok {
			continue
		}
		switch ev.Kind {
		case "challstr":
			r.login(ctx, strings.TrimPrefix(strings.TrimRight(line, "\r"), "|challstr|"))
		case "updateuser":
			r.onUpdateUser(ev.Arg(0), ev.Arg(1) == "1")
		case "updatechallenges":
			r.acceptChallenges(strings.TrimPrefix(line, "|updatechallenges|"))
		case "popup":
			r.log.Warn("server popup", "msg", strings.Join(ev.Args, "|"))
		case "nametaken":
			r.log.Error("name taken", "name", ev.Arg(0), "msg", ev.Arg(1))
		case "pm":
			r.log.Debug("private message", "from", strings.TrimSpace(ev.Arg(0)), "msg", ev.Arg(2))
		}
	}
}

func (r *Router) login(ctx context.Context, challstr string) {
	if r.opts.Username == "" {
		r.log.Warn("no username configured, staying a guest")
		return
	}
	if err := r.client.Login(ctx, r.opts.AuthURL, r.opts.Username, r.opts.Password, challstr); err != nil {
		r.log.Error("login failed", "user", r.opts.Username, "err", err)
	}
}

func (r *Router) onUpdateUser(name string, named bool) {
	r.log.Info("user updated", "name", strings.TrimSpace(name), "named", named)
	if !named || r.joined {
		return
	}
	r.joined = true
	for _, room := range r.opts.AutoJoin {
		if err := r.client.JoinRoom(room); err != nil {
			r.log.Error("joining room", "room", room, "err", err)
		}
	}
}

type challenges struct {
	ChallengesFrom map[string]string `json:"challengesFrom"`
}

func (r *Router) acceptChallenges(raw string) {
	var c challenges
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		r.log.Warn("ignoring malformed challenge update", "err", err)
		return
	}
	users := make([]string, 0, len(c.ChallengesFrom))
	for u := range c.ChallengesFrom {
		users = append(users, u)
	}
	slices.Sort(users)
	for _, user := range users {
		format := c.ChallengesFrom[user]
		if !slices.Contains(r.opts.AcceptFormats, format) {
			r.log.Info("ignoring challenge", "from", user, "format", format)
			continue
		}
		if err := r.client.Accept(user); err != nil {
			r.log.Error("accepting challenge", "from", user, "err", err)
			continue
		}
		r.log.Info("challenge accepted", "from", user, "format", format)
	}
}
