package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"subway-network/internal/routing"
	"subway-network/internal/subway"
)

// Respond sends v as JSON. A nil v writes only the status code.
func Respond(w http.ResponseWriter, code int, v any) {
	if v == nil {
		w.WriteHeader(code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// StatusFor maps an error kind to the HTTP status it is reported with.
func StatusFor(kind subway.Kind) int {
	switch kind {
	case subway.KindInvalidArgument,
		subway.KindDuplicateConnection,
		subway.KindDisconnectedInsertion,
		subway.KindDistanceExceedsSegment,
		subway.KindStationNotOnLine,
		subway.KindMinimumSectionViolation,
		subway.KindSameSourceAndTarget:
		return http.StatusBadRequest
	case subway.KindNotFound, subway.KindStationNotFound:
		return http.StatusNotFound
	case subway.KindDuplicateName, subway.KindStationInUse:
		return http.StatusConflict
	case subway.KindNoPathExists:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// RespondError writes err with the status of its kind. Errors without a kind
// and invalid topologies are internal: the client gets a generic message and
// the detail goes to the log.
func RespondError(w http.ResponseWriter, log *slog.Logger, err error) {
	kind := subway.KindOf(err)
	code := StatusFor(kind)
	if code == http.StatusInternalServerError {
		log.Error("request failed", "kind", kind, "err", err)
		Respond(w, code, errorResponse{Error: http.StatusText(code), Kind: string(kind)})
		return
	}
	log.Debug("request rejected", "kind", kind, "err", err)
	Respond(w, code, errorResponse{Error: err.Error(), Kind: string(kind)})
}

type sectionResponse struct {
	ID          int64          `json:"id"`
	UpStation   subway.Station `json:"upStation"`
	DownStation subway.Station `json:"downStation"`
	Distance    int            `json:"distance"`
}

type lineResponse struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Color         string            `json:"color"`
	Stations      []subway.Station  `json:"stations"`
	Sections      []sectionResponse `json:"sections"`
	TotalDistance int               `json:"totalDistance"`
}

func newLineResponse(l subway.Line) lineResponse {
	resp := lineResponse{
		ID:            l.ID,
		Name:          l.Name,
		Color:         l.Color,
		Stations:      l.Sections.Stations(),
		Sections:      []sectionResponse{},
		TotalDistance: l.Sections.TotalDistance(),
	}
	if resp.Stations == nil {
		resp.Stations = []subway.Station{}
	}
	for _, s := range l.Sections.All() {
		resp.Sections = append(resp.Sections, sectionResponse{
			ID:          s.ID,
			UpStation:   s.Up,
			DownStation: s.Down,
			Distance:    s.Distance,
		})
	}
	return resp
}

type pathResponse struct {
	Stations []subway.Station `json:"stations"`
	Distance int              `json:"distance"`
}

func newPathResponse(r routing.Result) pathResponse {
	return pathResponse{Stations: r.Stations, Distance: r.Distance}
}
