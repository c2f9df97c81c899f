package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"subway-network/internal/subway"
)

const maxBodySize = 1 << 20 // 1 MB

// Decode reads and decodes the JSON body of an HTTP request into a value of T.
// It limits the request body size, disallows unknown JSON fields, and rejects
// bodies containing more than a single JSON value.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	const op = "api.decode"
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	var data T
	if err := dec.Decode(&data); err != nil {
		return data, &subway.Error{Op: op, Kind: subway.KindInvalidArgument, Msg: "invalid JSON body", Err: err}
	}

	var trailing struct{}
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return data, subway.Errorf(op, subway.KindInvalidArgument, "body must contain a single JSON value")
		}
		return data, &subway.Error{Op: op, Kind: subway.KindInvalidArgument, Msg: "invalid JSON body", Err: err}
	}

	return data, nil
}

// pathID parses the {name} wildcard of the matched route as a positive id.
func pathID(r *http.Request, name string) (int64, error) {
	return parseID(name, r.PathValue(name))
}

func queryID(r *http.Request, name string) (int64, error) {
	return parseID(name, r.URL.Query().Get(name))
}

func parseID(name, raw string) (int64, error) {
	if raw == "" {
		return 0, subway.Errorf("api.param", subway.KindInvalidArgument, "%s is required", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, subway.Errorf("api.param", subway.KindInvalidArgument, "%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

type stationRequest struct {
	Name string `json:"name"`
}

type lineRequest struct {
	Name          string `json:"name"`
	Color         string `json:"color"`
	UpStationID   int64  `json:"upStationId"`
	DownStationID int64  `json:"downStationId"`
	Distance      int    `json:"distance"`
}

type lineUpdateRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type sectionRequest struct {
	UpStationID   int64 `json:"upStationId"`
	DownStationID int64 `json:"downStationId"`
	Distance      int   `json:"distance"`
}
