// Package status serves a small web page with the agent's battles.
package status

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"showdown-agent/bot"
	"showdown-agent/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const recentResults = 50

// Battles is the live view the page reads from.
type Battles interface {
	Snapshot() []bot.Summary
	Lookup(room string) (bot.Summary, bool)
}

// Results lists persisted outcomes; nil when no database is configured.
type Results interface {
	Recent(ctx context.Context, limit int) ([]store.Result, error)
}

type Server struct {
	battles Battles
	results Results
	log     *slog.Logger

	// Poll is how often /events checks for a new summary.
	Poll time.Duration
	// Ping keeps idle event streams alive through proxies.
	Ping time.Duration
}

func NewServer(battles Battles, results Results, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		battles: battles,
		results: results,
		log:     logger,
		Poll:    time.Second,
		Ping:    20 * time.Second,
	}
}

// Handler returns the routes of the status page.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/battles/{room}", s.handleBattle).Methods("GET")
	r.HandleFunc("/events", s.handleEvents).Methods("GET")
	r.HandleFunc("/results", s.handleResults).Methods("GET")
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := templates.ExecuteTemplate(w, "index.html", s.battles.Snapshot()); err != nil {
		s.log.Error("rendering index", "err", err)
		http.Error(w, "Error al renderizar la plantilla", http.StatusInternalServerError)
	}
}

type battlePage struct {
	Room    string
	Ended   bool
	Summary template.HTML
}

func (s *Server) handleBattle(w http.ResponseWriter, r *http.Request) {
	room := normalizeRoom(mux.Vars(r)["room"])
	sum, ok := s.battles.Lookup(room)
	if !ok {
		http.Error(w, "Sala no encontrada", http.StatusNotFound)
		return
	}
	page := battlePage{Room: sum.Room, Ended: sum.Ended, Summary: template.HTML(sum.HTML)}
	if err := templates.ExecuteTemplate(w, "battle.html", page); err != nil {
		s.log.Error("rendering battle", "room", room, "err", err)
		http.Error(w, "Error al renderizar la plantilla", http.StatusInternalServerError)
	}
}

func normalizeRoom(room string) string {
	if room != "" && !strings.HasPrefix(room, "battle-") {
		return "battle-" + room
	}
	return room
}

// handleEvents streams the rendered summary of one room as server-sent
// events until the battle ends or the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	room := normalizeRoom(r.URL.Query().Get("roomid"))
	if room == "" {
		http.Error(w, "El ID de la sala no puede estar vacío", http.StatusBadRequest)
		return
	}
	if _, ok := s.battles.Lookup(room); !ok {
		http.Error(w, "Sala no encontrada", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming no soportado", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	log := s.log.With("room", room, "remote", r.RemoteAddr)
	log.Debug("event stream opened")
	defer log.Debug("event stream closed")

	poll := time.NewTicker(s.Poll)
	defer poll.Stop()
	ping := time.NewTicker(s.Ping)
	defer ping.Stop()

	var last time.Time
	for {
		if sum, ok := s.battles.Lookup(room); ok && !sum.UpdatedAt.Equal(last) {
			last = sum.UpdatedAt
			fmt.Fprintf(w, "data: %s\n\n", strings.ReplaceAll(sum.HTML, "\n", ""))
			if sum.Ended {
				fmt.Fprint(w, "event: end\ndata: ended\n\n")
				flusher.Flush()
				return
			}
			flusher.Flush()
		}
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-poll.C:
		}
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	out := []store.Result{}
	if s.results != nil {
		res, err := s.results.Recent(r.Context(), recentResults)
		if err != nil {
			s.log.Error("listing results", "err", err)
			http.Error(w, "Error al consultar resultados", http.StatusInternalServerError)
			return
		}
		if res != nil {
			out = res
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.Warn("writing results", "err", err)
	}
}
