package handler

import (
	"net/http"
	"strconv"
)

// parseLimit reads a positive integer query parameter, falling back to def
// when absent or invalid and capping at max.
func parseLimit(r *http.Request, key string, def, max int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
