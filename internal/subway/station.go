package subway

import "strings"

type Station struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NormalizeName trims a station or line name and rejects blank ones.
func NormalizeName(op, name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", Errorf(op, KindInvalidArgument, "name must not be blank")
	}
	return n, nil
}
