// Package api exposes the network manager over HTTP/JSON.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"subway-network/internal/metrics"
	"subway-network/internal/network"
	"subway-network/internal/subway"
)

type Server struct {
	m       *network.Manager
	log     *slog.Logger
	metrics *metrics.Collector
	timeout time.Duration
	ready   func(context.Context) error
}

type Option func(*Server)

// WithReadiness makes /healthz report failure when check fails.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// WithTimeout bounds the time a handler may spend in the manager.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

func NewServer(m *network.Manager, mc *metrics.Collector, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{m: m, log: log, metrics: mc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API wrapped in the standard middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.health)

	mux.HandleFunc("POST /api/stations", s.createStation)
	mux.HandleFunc("GET /api/stations", s.listStations)
	mux.HandleFunc("PUT /api/stations/{id}", s.renameStation)
	mux.HandleFunc("DELETE /api/stations/{id}", s.deleteStation)

	mux.HandleFunc("POST /api/lines", s.createLine)
	mux.HandleFunc("GET /api/lines", s.listLines)
	mux.HandleFunc("GET /api/lines/{id}", s.getLine)
	mux.HandleFunc("PUT /api/lines/{id}", s.updateLine)
	mux.HandleFunc("DELETE /api/lines/{id}", s.deleteLine)
	mux.HandleFunc("POST /api/lines/{id}/sections", s.addSection)
	mux.HandleFunc("DELETE /api/lines/{id}/sections", s.removeStation)

	mux.HandleFunc("GET /api/paths", s.findPath)

	return WrapMiddleware(mux,
		WithRequestID,
		WithLogger(s.log),
		Recover(s.log),
		AccessLog(s.log, s.metrics),
	)
}

func (s *Server) context(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	RespondError(w, LoggerFromContext(r.Context(), s.log), err)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := s.context(r)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			LoggerFromContext(r.Context(), s.log).Warn("readiness check failed", "err", err)
			Respond(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Stations

func (s *Server) createStation(w http.ResponseWriter, r *http.Request) {
	req, err := Decode[stationRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()

	st, err := s.m.CreateStation(ctx, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	Respond(w, http.StatusCreated, st)
}

func (s *Server) listStations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	list, err := s.m.Stations(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []subway.Station{}
	}
	Respond(w, http.StatusOK, list)
}

func (s *Server) renameStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := Decode[stationRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()

	st, err := s.m.RenameStation(ctx, id, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	Respond(w, http.StatusOK, st)
}

func (s *Server) deleteStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()

	if err := s.m.DeleteStation(ctx, id); err != nil {
		s.fail(w, r, err)
		return
	}
	Respond(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Lines

func (s *Server) createLine(w http.ResponseWriter, r *http.Request) {
	req, err := Decode[lineRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()

	line, err := s.m.CreateLine(ctx, req.Name, req.Color, req.UpStationID, req.DownStationID, req.Distance)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	Respond(w, http.StatusCreated, newLineResponse(line))
}

func (s *Server) listLines(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	lines, err := s.m.Lines(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]lineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, newLineResponse(l))
	}
	Respond(w, http.StatusOK, out)
}

func (s *Server) getLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()

	line, err := s.m.Line(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	Respond(w, http.StatusOK, newLineResponse(line))
}

func (s *Server) updateLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := Decode[lineUpdateRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()

	line, err := s.m.UpdateLine(ctx, id, req.Name, req.Color)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	Respond(w, http.StatusOK, newLineResponse(line))
}

func (s *Server) deleteLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()

	if err := s.m.DeleteLine(ctx, id); err != nil {
		s.fail(w, r, err)
		return
	}
	Respond(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Sections and paths

func (s *Server) addSection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := Decode[sectionRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()

	line, err := s.m.AddSection(ctx, id, req.UpStationID, req.DownStationID, req.Distance)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	Respond(w, http.StatusCreated, newLineResponse(line))
}

func (s *Server) removeStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	stationID, err := queryID(r, "stationId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()

	if _, err := s.m.RemoveStation(ctx, id, stationID); err != nil {
		s.fail(w, r, err)
		return
	}
	Respond(w, http.StatusNoContent, nil)
}

func (s *Server) findPath(w http.ResponseWriter, r *http.Request) {
	source, err := queryID(r, "source")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	target, err := queryID(r, "target")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()

	res, err := s.m.FindPath(ctx, source, target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	Respond(w, http.StatusOK, newPathResponse(res))
}
