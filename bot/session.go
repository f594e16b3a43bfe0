// Package bot routes server frames to per-battle sessions and answers requests.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"showdown-agent/ai"
	"showdown-agent/data"
	"showdown-agent/game"
	"showdown-agent/parser"
	"showdown-agent/store"
)

// Sender is the slice of the transport a battle needs.
type Sender interface {
	Choose(room, choice string, rqid int) error
	Leave(room string) error
}

// Recorder persists finished battles.
type Recorder interface {
	Record(ctx context.Context, r store.Result) error
}

// Summary is what the status page shows for one battle.
type Summary struct {
	Room      string    `json:"room"`
	Format    string    `json:"format"`
	Turn      int       `json:"turn"`
	Ended     bool      `json:"ended"`
	Winner    string    `json:"winner,omitempty"`
	HTML      string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SplitMessage splits one websocket frame. Frames addressed to a room start
// with ">roomid"; the rest belong to the global room "".
func SplitMessage(frame string) (room string, lines []string) {
	frame = strings.TrimRight(frame, "\r\n")
	if strings.HasPrefix(frame, ">") {
		head, rest, _ := strings.Cut(frame, "\n")
		room = strings.TrimSpace(head[1:])
		frame = rest
	}
	if frame == "" {
		return room, nil
	}
	return room, strings.Split(frame, "\n")
}

// FormatFromRoom extracts the format id from "battle-<format>-<n>[-<password>]".
func FormatFromRoom(room string) string {
	rest, ok := strings.CutPrefix(room, "battle-")
	if !ok {
		return ""
	}
	format, _, _ := strings.Cut(rest, "-")
	return format
}

// Session plays one battle. It is not safe for concurrent use; the router
// feeds it from a single goroutine. Summary may be read from anywhere.
type Session struct {
	Room   string
	Format string

	user    string
	state   *game.BattleState
	engine  ai.Engine
	send    Sender
	rec     Recorder
	log     *slog.Logger
	pending *game.Request
	done    bool
	closed  bool
	summary atomic.Pointer[Summary]
}

// NewSession creates a session for room. rec may be nil. The router passes
// a nil engine and fills it in on the session goroutine before any frame.
func NewSession(room, user string, engine ai.Engine, send Sender, rec Recorder, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		Room:   room,
		Format: FormatFromRoom(room),
		user:   user,
		state:  game.NewBattleState("p1"),
		engine: engine,
		send:   send,
		rec:    rec,
		log:    logger.With("room", room),
	}
	s.publish()
	return s
}

// State exposes the tracker; only the session goroutine may touch it.
func (s *Session) State() *game.BattleState { return s.state }

// Done reports whether the battle is over or the room went away.
func (s *Session) Done() bool { return s.done }

func (s *Session) Summary() Summary { return *s.summary.Load() }

// Handle applies one frame of room lines. A pending request is answered once
// the events that follow it have been applied: at a turn boundary in the
// same frame, or with the next frame.
func (s *Session) Handle(ctx context.Context, lines []string) {
	if s.done {
		return
	}
	boundary, fresh := false, false
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "|request|"):
			s.onRequest(strings.TrimPrefix(line, "|request|"))
			fresh = true
			continue
		case strings.HasPrefix(line, "|error|"):
			s.onError(strings.TrimPrefix(line, "|error|"))
			continue
		case line == "|deinit", strings.HasPrefix(line, "|noinit|"):
			s.log.Info("room closed")
			s.stop()
			return
		}
		ev, ok := parser.ParseLine(line)
		if !ok {
			continue
		}
		switch ev.Kind {
		case "turn", "upkeep", "teampreview":
			boundary = true
		}
		s.state.Apply(ev)
	}

	s.publish()
	if s.state.Ended {
		s.finish(ctx)
		return
	}
	if s.pending != nil && (boundary || !fresh) {
		s.answer(ctx)
	}
}

func (s *Session) onRequest(raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	req, err := game.ParseRequest(raw)
	if err != nil {
		s.log.Warn("ignoring malformed request", "err", err)
		return
	}
	s.state.SetRequest(req)
	if req.Kind() == game.KindWait {
		s.pending = nil
		return
	}
	s.pending = req
	s.log.Debug("request received", "rqid", req.RQID, "kind", req.Kind())
}

// onError handles "[Invalid choice] ..." by letting the server pick for the
// last answered request; "[Unavailable choice]" is followed by a fresh request.
func (s *Session) onError(msg string) {
	s.log.Warn("server rejected choice", "msg", msg)
	if !strings.HasPrefix(msg, "[Invalid choice]") || s.state.LastRequest == nil || s.pending != nil {
		return
	}
	if err := s.send.Choose(s.Room, "default", s.state.LastRequest.RQID); err != nil {
		s.log.Error("sending default choice", "err", err)
	}
}

func (s *Session) answer(ctx context.Context) {
	req := s.pending
	s.pending = nil

	choice, err := ai.Decide(ctx, s.engine, req, s.state)
	if err != nil {
		s.log.Error("decision failed, server picks", "rqid", req.RQID, "kind", req.Kind(), "err", err)
		choice = "default"
	}
	if choice == "" {
		return
	}
	s.state.AnswerRequest()
	if err := s.send.Choose(s.Room, choice, req.RQID); err != nil {
		s.log.Error("sending choice", "choice", choice, "err", err)
		return
	}
	s.log.Info("chose", "turn", s.state.Turn, "kind", req.Kind(), "choice", choice)
}

// Result describes the finished battle from our side.
func (s *Session) Result() store.Result {
	st := s.state
	won := false
	if !st.Tie && st.Winner != "" {
		w := data.ToID(st.Winner)
		won = w == data.ToID(s.user) || w == data.ToID(st.Player.Name)
	}
	return store.Result{
		Room:          s.Room,
		Format:        s.Format,
		MySide:        st.MySide,
		Winner:        st.Winner,
		Won:           won,
		Tie:           st.Tie,
		Turns:         st.Turn,
		OpponentsLeft: len(st.AliveOpponents()),
		FinishedAt:    time.Now().UTC(),
	}
}

func (s *Session) finish(ctx context.Context) {
	res := s.Result()
	s.log.Info("battle finished", "winner", res.Winner, "won", res.Won, "tie", res.Tie,
		"turns", res.Turns, "opponents_left", res.OpponentsLeft)

	if s.rec != nil {
		// shutdown must not lose the last result
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := s.rec.Record(rctx, res); err != nil {
			s.log.Error("recording result", "err", err)
		}
		cancel()
	}
	if err := s.send.Leave(s.Room); err != nil {
		s.log.Warn("leaving room", "err", err)
	}
	s.stop()
}

func (s *Session) stop() {
	s.done = true
	s.pending = nil
	s.Close()
}

// Close releases the engine. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if err := ai.Close(s.engine); err != nil {
		s.log.Warn("closing engine", "err", err)
	}
}

func (s *Session) publish() {
	st := s.state
	s.summary.Store(&Summary{
		Room:      s.Room,
		Format:    s.Format,
		Turn:      st.Turn,
		Ended:     st.Ended,
		Winner:    st.Winner,
		HTML:      parser.RenderBattleState(st),
		UpdatedAt: time.Now().UTC(),
	})
}
