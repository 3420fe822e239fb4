package controller

import (
	"fmt"
	"net/url"
	"strconv"
)

const maxLimit = 100

// parseLimit reads the optional limit parameter. Absent means 0, which commands treat as their
// default.
func parseLimit(q url.Values) (int, error) {
	if !q.Has("limit") {
		return 0, nil
	}

	limit, err := strconv.ParseInt(q.Get("limit"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unable to parse limit from query: %w", err)
	}
	if limit < 1 {
		return 0, fmt.Errorf("invalid limit value [%d]", limit)
	}
	if limit > maxLimit {
		return 0, fmt.Errorf("limit [%d] exceeds maximum [%d]", limit, maxLimit)
	}
	return int(limit), nil
}

func parseBool(q url.Values, name string) (bool, error) {
	if !q.Has(name) {
		return false, nil
	}

	switch q.Get(name) {
	case boolTrue:
		return true, nil
	case boolFalse, "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s value [%s]", name, q.Get(name))
	}
}

const (
	boolTrue  = "true"
	boolFalse = "false"
)
